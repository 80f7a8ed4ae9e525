package di

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goliatone/go-storefront/activation"
	"github.com/goliatone/go-storefront/cache"
	"github.com/goliatone/go-storefront/config"
	"github.com/goliatone/go-storefront/model"
	"github.com/goliatone/go-storefront/pkg/testsupport"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// outbox records verification mail.
type outbox struct {
	mu   sync.Mutex
	sent []activation.Message
}

func (o *outbox) Send(ctx context.Context, msg activation.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) last() activation.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent[len(o.sent)-1]
}

func TestEndToEndCatalogFlow(t *testing.T) {
	deps, stores := seededDeps(t)
	container, err := NewContainerWithDefaults(deps)
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	ctx := context.Background()
	cat := container.Catalog()

	// warm every shape
	if _, err := cat.AllProducts(ctx); err != nil {
		t.Fatal(err)
	}
	books, err := cat.ProductsByCategory(ctx, testsupport.BooksID)
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 2 {
		t.Fatalf("expected 2 books, got %d", len(books))
	}
	if _, err := cat.Product(ctx, testsupport.GoBookID); err != nil {
		t.Fatal(err)
	}

	// product deactivation through the lifecycle drops the cached lists
	if err := container.Lifecycle().Deactivate(ctx, model.EntityProduct, testsupport.GoBookID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	books, _ = cat.ProductsByCategory(ctx, testsupport.BooksID)
	if active := model.ActiveProducts(books); len(active) != 1 {
		t.Errorf("expected one active book after deactivation, got %d", len(active))
	}
	detail, _ := cat.Product(ctx, testsupport.GoBookID)
	if detail.Active {
		t.Error("product detail should reflect the deactivation")
	}
	if n := stores.Products.Calls("FindByCategory"); n != 2 {
		t.Errorf("books list should reload once, got %d loads", n)
	}

	// reads after the reload are cached again
	stores.Products.ResetCalls()
	for i := 0; i < 3; i++ {
		if _, err := cat.AllProducts(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if n := stores.Products.Calls("FindAll"); n != 1 {
		t.Errorf("expected one reload then hits, got %d loads", n)
	}
}

func TestEndToEndRegistrationFlow(t *testing.T) {
	deps, stores := seededDeps(t)
	mail := &outbox{}
	clock := testsupport.NewClock(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	deps.Mailer = mail
	deps.Hasher = activation.BcryptHasher{Cost: bcrypt.MinCost}
	deps.Clock = clock.Now

	cfg := config.Default()
	cfg.Activation.BaseURL = "https://shop.example.com"
	container, err := NewContainer(cfg, deps)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	ctx := context.Background()

	user, err := container.Registrar().Register(ctx, activation.RegisterInput{
		Username: "grace",
		Email:    "grace@example.com",
		Password: "hopper1906",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	link := mail.last().Link
	if link != "https://shop.example.com/verify/grace@example.com/"+user.ActivationKey {
		t.Fatalf("unexpected link %q", link)
	}

	clock.Advance(47 * time.Hour)
	if got := container.Gate().Verify(ctx, "grace@example.com", user.ActivationKey); !got.Verified {
		t.Fatalf("verify inside the window failed: %s", got.Reason)
	}

	stored, err := stores.Users.FindByEmail(ctx, "grace@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Active || stored.ActivationKey != "" {
		t.Errorf("user should be active with the key cleared: %+v", stored)
	}

	if got := container.Gate().Verify(ctx, "grace@example.com", user.ActivationKey); got.Verified {
		t.Error("a consumed key must not verify again")
	}
}

func TestEndToEndExpiredActivation(t *testing.T) {
	deps, stores := seededDeps(t)
	clock := testsupport.NewClock(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	deps.Mailer = &outbox{}
	deps.Hasher = activation.BcryptHasher{Cost: bcrypt.MinCost}
	deps.Clock = clock.Now

	container, err := NewContainerWithDefaults(deps)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	user, err := container.Registrar().Register(ctx, activation.RegisterInput{
		Username: "linus", Email: "linus@example.com", Password: "penguin-1991",
	})
	if err != nil {
		t.Fatal(err)
	}

	clock.Advance(48*time.Hour + time.Second)
	got := container.Gate().Verify(ctx, user.Email, user.ActivationKey)
	if got.Verified || got.Reason != activation.ReasonKeyExpired {
		t.Fatalf("expected key_expired, got %+v", got)
	}

	stored, _ := stores.Users.FindByID(ctx, user.ID)
	if stored.Active {
		t.Error("expired verification must leave the user inactive")
	}
}

func TestSharedRedisInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := config.Default()
	cfg.Cache.Backend = cache.BackendRedis
	cfg.Cache.Redis.Addr = mr.Addr()

	// two processes sharing one database and one redis
	stores := testsupport.MustSeededStores(t)
	newNode := func() *Container {
		c, err := NewContainer(cfg, Dependencies{
			Categories:  stores.Categories,
			Products:    stores.Products,
			Users:       stores.Users,
			Logger:      quietLogger(),
			RedisClient: client,
		})
		if err != nil {
			t.Fatalf("NewContainer() failed: %v", err)
		}
		return c
	}
	a, b := newNode(), newNode()
	ctx := context.Background()

	if _, err := a.Catalog().ProductsByCategory(ctx, testsupport.GamesID); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Catalog().ProductsByCategory(ctx, testsupport.GamesID); err != nil {
		t.Fatal(err)
	}
	if n := stores.Products.Calls("FindByCategory"); n != 1 {
		t.Fatalf("second node should read the shared entry, got %d loads", n)
	}

	product, _ := stores.Products.FindByID(ctx, testsupport.SettlersID)
	product.Price = decimal.RequireFromString("55.00")
	if _, err := a.Catalog().SaveProduct(ctx, product); err != nil {
		t.Fatalf("SaveProduct: %v", err)
	}

	games, err := b.Catalog().ProductsByCategory(ctx, testsupport.GamesID)
	if err != nil {
		t.Fatal(err)
	}
	if len(games) != 1 || !games[0].Price.Equal(decimal.RequireFromString("55")) {
		t.Errorf("node b should see the new price after node a saved, got %+v", games)
	}
}

func TestContainerCloseReleasesDialedRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Cache.Backend = cache.BackendRedis
	cfg.Cache.Redis.Addr = mr.Addr()
	ctx := context.Background()

	deps, _ := seededDeps(t)
	dialed, err := NewContainer(cfg, deps)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	if err := dialed.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := dialed.CacheService().Delete(ctx, "k"); err == nil {
		t.Error("the client dialed for the cache should be closed")
	}

	shared := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { shared.Close() })
	deps.RedisClient = shared
	borrowed, err := NewContainer(cfg, deps)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	if err := borrowed.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := borrowed.CacheService().Delete(ctx, "k"); err != nil {
		t.Errorf("a client passed in Dependencies must stay open: %v", err)
	}
}

func TestErrorPropagation(t *testing.T) {
	deps, stores := seededDeps(t)
	container, err := NewContainerWithDefaults(deps)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	stores.Categories.Fail("FindAll", nil)
	if _, err := container.Catalog().AllCategories(ctx); err == nil {
		t.Fatal("expected store failure to reach the caller")
	}

	stores.Users.Fail("FindByEmail", nil)
	if got := container.Gate().Verify(ctx, "admin@example.com", "key"); got.Reason != activation.ReasonStoreError {
		t.Errorf("expected store_error, got %s", got.Reason)
	}

	stores.Categories.Heal()
	if _, err := container.Catalog().AllCategories(ctx); err != nil {
		t.Errorf("failure must not be cached: %v", err)
	}
}
