// Package config loads the storefront configuration from an optional YAML
// file, a .env file and STOREFRONT_* environment variables, in that order of
// precedence from lowest to highest.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-storefront/activation"
	"github.com/goliatone/go-storefront/cache"
	"github.com/goliatone/go-storefront/pkg/logger"
	"github.com/goliatone/go-storefront/store"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "STOREFRONT_"

type Config struct {
	Cache      cache.Config         `yaml:"cache"`
	Activation activation.Config    `yaml:"activation"`
	Database   store.DatabaseConfig `yaml:"database"`
	HTTP       HTTPConfig           `yaml:"http"`
	Log        logger.Config        `yaml:"log"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// AdminToken is the bearer token required on /admin routes. Empty leaves
	// them unauthenticated.
	AdminToken string `yaml:"admin_token"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Cache: cache.DefaultConfig(),
		Activation: activation.Config{
			TTL:     activation.DefaultTTL,
			BaseURL: "http://localhost:8080",
		},
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: logger.DefaultConfig(),
	}
}

// Load reads path when it is not empty, then the given env files (".env"
// when none is given, skipped when missing), then the environment.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	explicit := len(files) > 0
	if !explicit {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if !explicit && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []goerrors.FieldError

	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, goerrors.FieldError{Field: EnvPrefix + name, Message: "must be a boolean", Value: v})
				return
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, goerrors.FieldError{Field: EnvPrefix + name, Message: "must be an integer", Value: v})
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, goerrors.FieldError{Field: EnvPrefix + name, Message: "must be a duration", Value: v})
				return
			}
			*dst = d
		}
	}

	boolean("CACHE_ENABLED", &c.Cache.Enabled)
	if v, ok := lookup(EnvPrefix + "CACHE_BACKEND"); ok {
		c.Cache.Backend = cache.Backend(v)
	}
	duration("CACHE_TTL", &c.Cache.TTL)
	str("REDIS_ADDR", &c.Cache.Redis.Addr)
	str("REDIS_PASSWORD", &c.Cache.Redis.Password)
	integer("REDIS_DB", &c.Cache.Redis.DB)
	str("REDIS_PREFIX", &c.Cache.Redis.Prefix)
	str("DATABASE_DSN", &c.Database.DSN)
	duration("ACTIVATION_TTL", &c.Activation.TTL)
	str("BASE_URL", &c.Activation.BaseURL)
	str("HTTP_ADDR", &c.HTTP.Addr)
	str("HTTP_ADMIN_TOKEN", &c.HTTP.AdminToken)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_OUTPUT", &c.Log.Output)
	str("LOG_FILE", &c.Log.FilePath)

	if len(errs) > 0 {
		return goerrors.NewValidation("invalid environment", errs...)
	}
	return nil
}

// Validate checks every section. Cache sizing is checked by the cache
// package itself.
func (c *Config) Validate() error {
	if err := goerrors.ValidateWithOzzo(func() error {
		return validation.Errors{
			"activation.ttl":      validation.Validate(c.Activation.TTL, validation.Required, validation.Min(time.Minute)),
			"activation.base_url": validation.Validate(c.Activation.BaseURL, validation.Required, is.URL),
			"http.addr":           validation.Validate(c.HTTP.Addr, validation.Required),
			"log.level":           validation.Validate(strings.ToLower(c.Log.Level), validation.In("", "debug", "info", "warn", "warning", "error")),
			"log.format":          validation.Validate(strings.ToLower(c.Log.Format), validation.In("", "json", "text")),
			"log.output":          validation.Validate(strings.ToLower(c.Log.Output), validation.In("", "stdout", "file", "both")),
		}.Filter()
	}, "invalid configuration"); err != nil {
		return err
	}

	if err := c.Cache.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid cache configuration")
	}
	return nil
}
