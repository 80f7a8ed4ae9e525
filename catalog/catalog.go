// Package catalog is the read-through cache in front of the category and
// product stores. Every catalog read other layers perform goes through the
// four accessors; every catalog write goes through SaveCategory or
// SaveProduct so the affected entries are invalidated.
package catalog

import (
	"context"
	"errors"
	"log/slog"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-storefront/cache"
	"github.com/goliatone/go-storefront/model"
	"github.com/goliatone/go-storefront/store"
	"github.com/google/uuid"
)

const TextCodeInvalidation = "CACHE_INVALIDATION"

// Catalog serves catalog reads from the cache and keeps it consistent with
// writes made through it.
type Catalog struct {
	categories store.CategoryStore
	products   store.ProductStore
	cache      cache.CacheService
	keys       cache.CatalogKeys
	logger     *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithKeys overrides the key helpers, e.g. to use another namespace.
func WithKeys(keys cache.CatalogKeys) Option {
	return func(c *Catalog) { c.keys = keys }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a catalog over the given stores and cache.
func New(categories store.CategoryStore, products store.ProductStore, cacheService cache.CacheService, opts ...Option) *Catalog {
	c := &Catalog{
		categories: categories,
		products:   products,
		cache:      cacheService,
		keys:       cache.NewCatalogKeys(nil),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "catalog")
	return c
}

// Keys returns the key helpers used by the catalog.
func (c *Catalog) Keys() cache.CatalogKeys {
	return c.keys
}

// AllProducts returns every product, active or not.
func (c *Catalog) AllProducts(ctx context.Context) ([]*model.Product, error) {
	return cache.GetOrFetch(ctx, c.cache, c.keys.AllProducts(), func(ctx context.Context) ([]*model.Product, error) {
		return c.products.FindAll(ctx)
	})
}

// ProductsByCategory returns the products of one category. Each category id
// is cached under its own key.
func (c *Catalog) ProductsByCategory(ctx context.Context, categoryID uuid.UUID) ([]*model.Product, error) {
	return cache.GetOrFetch(ctx, c.cache, c.keys.ProductsByCategory(categoryID), func(ctx context.Context) ([]*model.Product, error) {
		return c.products.FindByCategory(ctx, categoryID)
	})
}

// AllCategories returns every category, active or not.
func (c *Catalog) AllCategories(ctx context.Context) ([]*model.Category, error) {
	return cache.GetOrFetch(ctx, c.cache, c.keys.AllCategories(), func(ctx context.Context) ([]*model.Category, error) {
		return c.categories.FindAll(ctx)
	})
}

// Product returns a single product. A NotFound result is not cached.
func (c *Catalog) Product(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return cache.GetOrFetch(ctx, c.cache, c.keys.Product(id), func(ctx context.Context) (*model.Product, error) {
		return c.products.FindByID(ctx, id)
	})
}

// SaveCategory validates and stores category, then drops the entries that
// may embed it. When invalidation fails the saved record is returned along
// with an operation error.
func (c *Catalog) SaveCategory(ctx context.Context, category *model.Category) (*model.Category, error) {
	if category == nil {
		return nil, goerrors.New("category is required", goerrors.CategoryBadInput)
	}

	category.Slug = model.EnsureSlug(category.Slug, category.Name)
	if err := category.Validate(); err != nil {
		return nil, err
	}

	saved, err := c.categories.Save(ctx, category)
	if err != nil {
		return nil, err
	}

	if err := c.InvalidateCategory(ctx, saved.ID); err != nil {
		return saved, err
	}
	return saved, nil
}

// SaveProduct validates and stores product. The referenced category must
// exist. Entries for both the new and the previous category are dropped when
// a product moves.
func (c *Catalog) SaveProduct(ctx context.Context, product *model.Product) (*model.Product, error) {
	if product == nil {
		return nil, goerrors.New("product is required", goerrors.CategoryBadInput)
	}

	product.Slug = model.EnsureSlug(product.Slug, product.Name)
	product.Normalize()
	if err := product.Validate(); err != nil {
		return nil, err
	}

	category, err := c.categories.FindByID(ctx, product.CategoryID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, goerrors.NewValidation("invalid product", goerrors.FieldError{
				Field:   "category_id",
				Message: "category does not exist",
				Value:   product.CategoryID.String(),
			})
		}
		return nil, err
	}

	var previousCategory uuid.UUID
	if product.ID != uuid.Nil {
		previous, err := c.products.FindByID(ctx, product.ID)
		if err != nil {
			return nil, err
		}
		previousCategory = previous.CategoryID
	}

	saved, err := c.products.Save(ctx, product)
	if err != nil {
		return nil, err
	}
	saved.Category = category

	categoryIDs := []uuid.UUID{saved.CategoryID}
	if previousCategory != uuid.Nil && previousCategory != saved.CategoryID {
		categoryIDs = append(categoryIDs, previousCategory)
	}

	if err := c.InvalidateProduct(ctx, saved.ID, categoryIDs...); err != nil {
		return saved, err
	}
	return saved, nil
}

// InvalidateCategory drops the entries derived from a category: both list
// shapes, the category's product list and every product detail.
func (c *Catalog) InvalidateCategory(ctx context.Context, id uuid.UUID) error {
	keys := []string{
		c.keys.AllCategories(),
		c.keys.AllProducts(),
		c.keys.ProductsByCategory(id),
	}

	err := errors.Join(
		c.cache.InvalidateKeys(ctx, keys),
		c.cache.DeleteByPrefix(ctx, c.keys.Prefix(cache.ShapeProduct)),
	)
	return c.invalidationFailed(ctx, err, "category", id)
}

// InvalidateProduct drops the entries derived from a product. categoryIDs
// lists the categories whose product lists contain or contained it.
func (c *Catalog) InvalidateProduct(ctx context.Context, id uuid.UUID, categoryIDs ...uuid.UUID) error {
	keys := []string{
		c.keys.AllProducts(),
		c.keys.Product(id),
	}
	for _, categoryID := range categoryIDs {
		if categoryID == uuid.Nil {
			continue
		}
		keys = append(keys, c.keys.ProductsByCategory(categoryID))
	}

	return c.invalidationFailed(ctx, c.cache.InvalidateKeys(ctx, keys), "product", id)
}

// Purge drops every catalog entry.
func (c *Catalog) Purge(ctx context.Context) error {
	return c.invalidationFailed(ctx, c.cache.DeleteByPrefix(ctx, c.keys.Root()), "catalog", uuid.Nil)
}

func (c *Catalog) invalidationFailed(ctx context.Context, err error, entity string, id uuid.UUID) error {
	if err == nil {
		return nil
	}

	c.logger.WarnContext(ctx, "catalog cache invalidation failed",
		"entity", entity,
		"id", id.String(),
		"error", err,
	)

	return goerrors.Wrap(err, goerrors.CategoryOperation, "catalog cache invalidation failed").
		WithTextCode(TextCodeInvalidation).
		WithMetadata(map[string]any{"entity": entity, "id": id.String()})
}
