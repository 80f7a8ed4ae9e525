// Package cache provides the read-through cache used by the storefront catalog.
//
// # Overview
//
// The package exports:
//
//   - CacheService: read-through lookups plus the invalidation hooks used after writes
//   - KeySerializer: builds stable keys from a method name and arguments
//   - CatalogKeys: the keys of the four cached catalog query shapes
//   - NewCacheService: builds the backend selected by Config
//
// Three backends exist. The in-process backend is built on sturdyc and
// de-duplicates concurrent misses on the same key. The redis backend stores
// JSON so several processes share entries and invalidations. When Config.Enabled
// is false a pass-through service is returned and every lookup reaches the store.
//
// # Basic Usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	keys := cache.NewCatalogKeys(nil)
//	products, err := cache.GetOrFetch(ctx, svc, keys.AllProducts(), func(ctx context.Context) ([]*model.Product, error) {
//		return store.FindAll(ctx)
//	})
//
// Loader errors are returned to the caller and nothing is stored for the key.
//
// # Keys
//
// Keys have the form namespace::shape::arg. Values implementing fmt.Stringer,
// such as uuid.UUID, are written in their string form. Parameterised shapes
// share a prefix (see CatalogKeys.Prefix) so a whole shape can be dropped with
// DeleteByPrefix.
//
// Function arguments serialize with %p and are stable only within a process.
// Do not pass them to the redis backend.
package cache
