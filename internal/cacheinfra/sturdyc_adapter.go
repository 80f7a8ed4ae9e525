package cacheinfra

import (
	"context"
	"errors"
	"strings"

	"github.com/viccon/sturdyc"
)

// sturdycService keeps catalog entries in process memory. Concurrent misses
// on the same key are de-duplicated by sturdyc, so the loader runs once per
// key at a time.
type sturdycService struct {
	client   *sturdyc.Client[any]
	versions *keyVersions
}

// entry boxes cached values so nil results and failed loads still satisfy
// sturdyc's type assertion on the fetch result.
type entry struct {
	value any
}

// staleLoad carries a value loaded while its key was invalidated. Returning
// it as an error keeps sturdyc from storing the value.
type staleLoad struct {
	value any
}

func (e *staleLoad) Error() string { return "cache key invalidated during load" }

// NewSturdycService validates cfg and creates the in-process cache.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &sturdycService{client: client, versions: newKeyVersions()}, nil
}

// GetOrFetch returns the entry for key, loading it through fetchFn on a miss.
// Loader errors are returned as is and leave the key empty. A value whose key
// was invalidated while it loaded is returned to the callers of that load but
// not kept.
func (s *sturdycService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if _, err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	cached, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		stamp := s.versions.begin(key)
		value, err := callFetch(ctx, fetchFn)
		fresh := s.versions.end(key, stamp)
		if err != nil {
			return entry{}, err
		}
		if !fresh {
			return entry{}, &staleLoad{value: value}
		}
		return entry{value: value}, nil
	})

	var stale *staleLoad
	if errors.As(err, &stale) {
		return stale.value, nil
	}
	if err != nil {
		return nil, err
	}
	if e, ok := cached.(entry); ok {
		return e.value, nil
	}
	return cached, nil
}

func (s *sturdycService) Delete(ctx context.Context, key string) error {
	s.versions.bump(key)
	s.client.Delete(key)
	return nil
}

func (s *sturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	s.versions.bumpPrefix(prefix)
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

func (s *sturdycService) InvalidateKeys(ctx context.Context, keys []string) error {
	s.versions.bump(keys...)
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}
