package cache

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// mockCacheService for testing GetOrFetch function
type mockCacheService struct {
	result any
	err    error
}

func (m *mockCacheService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	return m.result, m.err
}

func (m *mockCacheService) Delete(ctx context.Context, key string) error {
	return nil
}

func (m *mockCacheService) DeleteByPrefix(ctx context.Context, prefix string) error {
	return nil
}

func (m *mockCacheService) InvalidateKeys(ctx context.Context, keys []string) error {
	return nil
}

func TestGetOrFetch_NilInterface(t *testing.T) {
	mock := &mockCacheService{result: nil}

	type Lister interface {
		List() []string
	}

	result, err := GetOrFetch[Lister](context.Background(), mock, "test-key", func(ctx context.Context) (Lister, error) {
		return nil, nil
	})
	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result but got: %v", result)
	}
}

func TestGetOrFetch_NilPointer(t *testing.T) {
	mock := &mockCacheService{result: (*string)(nil)}

	result, err := GetOrFetch[*string](context.Background(), mock, "test-key", func(ctx context.Context) (*string, error) {
		return nil, nil
	})
	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result but got: %v", result)
	}
}

func TestGetOrFetch_TypeAssertionFailure(t *testing.T) {
	mock := &mockCacheService{result: "wrong-type"}

	result, err := GetOrFetch[int](context.Background(), mock, "test-key", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if !errors.Is(err, ErrInvalidResultType) {
		t.Errorf("expected ErrInvalidResultType but got: %v", err)
	}
	if result != 0 {
		t.Errorf("expected zero value (0) but got: %v", result)
	}
}

func TestGetOrFetch_ErrorPropagates(t *testing.T) {
	boom := errors.New("store down")
	mock := &mockCacheService{err: boom}

	_, err := GetOrFetch[string](context.Background(), mock, "test-key", func(ctx context.Context) (string, error) {
		return "", nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected store error but got: %v", err)
	}
}

func TestGetOrFetch_ValidResult(t *testing.T) {
	mock := &mockCacheService{result: "test-value"}

	result, err := GetOrFetch[string](context.Background(), mock, "test-key", func(ctx context.Context) (string, error) {
		return "test-value", nil
	})
	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}
	if result != "test-value" {
		t.Errorf("expected 'test-value' but got: '%s'", result)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "disabled ignores other fields", mutate: func(c *Config) { c.Enabled = false; c.Capacity = 0 }},
		{name: "empty backend means memory", mutate: func(c *Config) { c.Backend = "" }},
		{name: "zero capacity", mutate: func(c *Config) { c.Capacity = 0 }, wantErr: "Capacity"},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "memcached" }, wantErr: "Backend"},
		{name: "redis without addr", mutate: func(c *Config) { c.Backend = BackendRedis; c.Redis.Addr = "" }, wantErr: "Redis.Addr"},
		{name: "redis upper case", mutate: func(c *Config) { c.Backend = "REDIS" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewCacheService_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	svc, err := NewCacheService(cfg)
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}

	var calls int32
	fetch := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "v", nil
	}

	for i := 0; i < 3; i++ {
		if _, err := GetOrFetch(context.Background(), svc, "k", fetch); err != nil {
			t.Fatalf("GetOrFetch: %v", err)
		}
	}
	if calls != 3 {
		t.Errorf("disabled cache should call the loader every time, got %d calls", calls)
	}
}

func TestNewCacheService_Memory(t *testing.T) {
	svc, err := NewCacheService(DefaultConfig())
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}

	var calls int32
	fetch := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "v", nil
	}

	for i := 0; i < 3; i++ {
		if _, err := GetOrFetch(context.Background(), svc, "k", fetch); err != nil {
			t.Fatalf("GetOrFetch: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected a single loader call, got %d", calls)
	}
}

func TestNewCacheService_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := DefaultConfig()
	cfg.Backend = BackendRedis
	cfg.Redis.Addr = mr.Addr()

	svc, err := NewCacheService(cfg, WithRedisClient(client))
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}

	got, err := GetOrFetch(context.Background(), svc, "k", func(ctx context.Context) ([]string, error) {
		return []string{"a", "b"}, nil
	})
	if err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected result %v", got)
	}
	if !mr.Exists("storefront:k") {
		t.Errorf("expected entry under the configured prefix, keys: %v", mr.Keys())
	}
}

func TestClose(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := DefaultConfig()
	cfg.Backend = BackendRedis
	cfg.Redis.Addr = mr.Addr()

	owned, err := NewCacheService(cfg)
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}
	if err := Close(owned); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := owned.Delete(context.Background(), "k"); !errors.Is(err, redis.ErrClosed) {
		t.Errorf("dialed client should be closed, got %v", err)
	}

	shared := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = shared.Close() })
	borrowed, err := NewCacheService(cfg, WithRedisClient(shared))
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}
	if err := Close(borrowed); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := shared.Ping(context.Background()).Err(); err != nil {
		t.Errorf("a client passed in must stay open: %v", err)
	}

	disabled, err := NewCacheService(Config{})
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}
	if err := Close(disabled); err != nil {
		t.Errorf("Close of a disabled cache: %v", err)
	}
}
