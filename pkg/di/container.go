package di

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/goliatone/go-storefront/activation"
	"github.com/goliatone/go-storefront/cache"
	"github.com/goliatone/go-storefront/catalog"
	"github.com/goliatone/go-storefront/config"
	"github.com/goliatone/go-storefront/lifecycle"
	"github.com/goliatone/go-storefront/store"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

// Dependencies are the collaborators a Container cannot build from
// configuration alone. Nil optional fields get defaults.
type Dependencies struct {
	Categories store.CategoryStore
	Products   store.ProductStore
	Users      store.UserStore

	Hasher      activation.PasswordHasher
	Mailer      activation.Mailer
	Logger      *slog.Logger
	RedisClient redis.UniversalClient
	Clock       func() time.Time
}

// Container wires the storefront core. It owns singleton instances of the
// cache service, key serializer and the catalog, lifecycle and activation
// services built on top of them.
type Container struct {
	config        *config.Config
	logger        *slog.Logger
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	catalog       *catalog.Catalog
	lifecycle     *lifecycle.Lifecycle
	gate          *activation.Gate
	registrar     *activation.Registrar
	db            *bun.DB
}

// NewContainer builds the services described by cfg over the stores in deps.
func NewContainer(cfg *config.Config, deps Dependencies) (*Container, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cacheOpts := []cache.Option{cache.WithLogger(logger)}
	if deps.RedisClient != nil {
		cacheOpts = append(cacheOpts, cache.WithRedisClient(deps.RedisClient))
	}
	cacheService, err := cache.NewCacheService(cfg.Cache, cacheOpts...)
	if err != nil {
		return nil, err
	}

	keySerializer := cache.NewDefaultKeySerializer(cache.DefaultNamespace)

	cat := catalog.New(deps.Categories, deps.Products, cacheService,
		catalog.WithKeys(cache.NewCatalogKeys(keySerializer)),
		catalog.WithLogger(logger),
	)

	activationOpts := []activation.Option{activation.WithLogger(logger)}
	if deps.Clock != nil {
		activationOpts = append(activationOpts, activation.WithClock(deps.Clock))
	}

	return &Container{
		config:        cfg,
		logger:        logger,
		cacheService:  cacheService,
		keySerializer: keySerializer,
		catalog:       cat,
		lifecycle: lifecycle.New(deps.Categories, deps.Products, deps.Users,
			lifecycle.WithInvalidator(cat),
			lifecycle.WithLogger(logger),
		),
		gate:      activation.NewGate(deps.Users, activationOpts...),
		registrar: activation.NewRegistrar(deps.Users, deps.Hasher, deps.Mailer, cfg.Activation, activationOpts...),
	}, nil
}

// NewContainerWithDefaults builds a container from the default configuration.
func NewContainerWithDefaults(deps Dependencies) (*Container, error) {
	return NewContainer(config.Default(), deps)
}

// NewDatabaseContainer opens the configured database and builds the
// container over the bun stores. Store fields in deps are ignored. Close
// releases the connection.
func NewDatabaseContainer(ctx context.Context, cfg *config.Config, deps Dependencies) (*Container, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	stores := store.NewStores(db)
	deps.Categories = stores.Categories
	deps.Products = stores.Products
	deps.Users = stores.Users

	c, err := NewContainer(cfg, deps)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	c.db = db
	return c, nil
}

func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// CacheService returns the singleton cache service instance.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the serializer behind the catalog keys.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

func (c *Container) Catalog() *catalog.Catalog {
	return c.catalog
}

func (c *Container) Lifecycle() *lifecycle.Lifecycle {
	return c.lifecycle
}

func (c *Container) Gate() *activation.Gate {
	return c.gate
}

func (c *Container) Registrar() *activation.Registrar {
	return c.registrar
}

// DB is nil unless the container was built by NewDatabaseContainer.
func (c *Container) DB() *bun.DB {
	return c.db
}

// Close releases the database connection, if any, and the redis client the
// cache dialed itself. A client passed in Dependencies is left open.
func (c *Container) Close() error {
	err := cache.Close(c.cacheService)
	if c.db != nil {
		err = errors.Join(err, c.db.Close())
	}
	return err
}
