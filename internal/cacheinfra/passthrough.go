package cacheinfra

import "context"

// passthroughService is used when caching is switched off: every read goes
// to the loader and nothing is retained.
type passthroughService struct{}

// NewPassthroughService returns a cache service without storage.
func NewPassthroughService() *passthroughService {
	return &passthroughService{}
}

func (passthroughService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if _, err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}
	return callFetch(ctx, fetchFn)
}

func (passthroughService) Delete(ctx context.Context, key string) error { return nil }

func (passthroughService) DeleteByPrefix(ctx context.Context, prefix string) error { return nil }

func (passthroughService) InvalidateKeys(ctx context.Context, keys []string) error { return nil }
