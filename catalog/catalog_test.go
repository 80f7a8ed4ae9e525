package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-storefront/cache"
	"github.com/goliatone/go-storefront/model"
	"github.com/goliatone/go-storefront/pkg/testsupport"
	"github.com/goliatone/go-storefront/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCatalog(t *testing.T, cfg cache.Config) (*Catalog, testsupport.Stores) {
	t.Helper()

	stores := testsupport.MustSeededStores(t)
	svc, err := cache.NewCacheService(cfg)
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}
	return New(stores.Categories, stores.Products, svc, WithLogger(quietLogger())), stores
}

func TestCatalog_ReadThrough(t *testing.T) {
	c, stores := newTestCatalog(t, cache.DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		products, err := c.AllProducts(ctx)
		if err != nil {
			t.Fatalf("AllProducts: %v", err)
		}
		if len(products) != 4 {
			t.Fatalf("expected 4 products, got %d", len(products))
		}
	}
	if n := stores.Products.Calls("FindAll"); n != 1 {
		t.Errorf("expected one store call, got %d", n)
	}

	for i := 0; i < 2; i++ {
		if _, err := c.AllCategories(ctx); err != nil {
			t.Fatalf("AllCategories: %v", err)
		}
		if _, err := c.Product(ctx, testsupport.GoBookID); err != nil {
			t.Fatalf("Product: %v", err)
		}
	}
	if n := stores.Categories.Calls("FindAll"); n != 1 {
		t.Errorf("expected one category load, got %d", n)
	}
	if n := stores.Products.Calls("FindByID"); n != 1 {
		t.Errorf("expected one product load, got %d", n)
	}
}

func TestCatalog_CacheDisabled(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.Enabled = false
	c, stores := newTestCatalog(t, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.AllProducts(ctx); err != nil {
			t.Fatalf("AllProducts: %v", err)
		}
	}
	if n := stores.Products.Calls("FindAll"); n != 3 {
		t.Errorf("disabled cache should hit the store on every call, got %d", n)
	}
}

func TestCatalog_ProductsByCategoryKeyedPerCategory(t *testing.T) {
	c, stores := newTestCatalog(t, cache.DefaultConfig())
	ctx := context.Background()

	books, err := c.ProductsByCategory(ctx, testsupport.BooksID)
	if err != nil {
		t.Fatalf("books: %v", err)
	}
	games, err := c.ProductsByCategory(ctx, testsupport.GamesID)
	if err != nil {
		t.Fatalf("games: %v", err)
	}

	if len(books) != 2 || len(games) != 1 {
		t.Fatalf("expected 2 books and 1 game, got %d and %d", len(books), len(games))
	}
	for _, p := range games {
		if p.CategoryID != testsupport.GamesID {
			t.Errorf("games list holds a product of category %s", p.CategoryID)
		}
	}
	if n := stores.Products.Calls("FindByCategory"); n != 2 {
		t.Errorf("each category should load once, got %d loads", n)
	}

	if _, err := c.ProductsByCategory(ctx, testsupport.BooksID); err != nil {
		t.Fatalf("books again: %v", err)
	}
	if n := stores.Products.Calls("FindByCategory"); n != 2 {
		t.Errorf("second books read should be cached, got %d loads", n)
	}
}

func TestCatalog_FailedLoadNotCached(t *testing.T) {
	c, stores := newTestCatalog(t, cache.DefaultConfig())
	ctx := context.Background()

	stores.Products.Fail("FindAll", nil)
	_, err := c.AllProducts(ctx)
	if !store.IsUnavailable(err) {
		t.Fatalf("expected store failure, got %v", err)
	}
	if !goerrors.IsRetryableError(err) {
		t.Errorf("store failure should stay retryable through the catalog: %T", err)
	}

	stores.Products.Heal()
	products, err := c.AllProducts(ctx)
	if err != nil {
		t.Fatalf("AllProducts after heal: %v", err)
	}
	if len(products) != 4 {
		t.Errorf("expected 4 products, got %d", len(products))
	}

	missing := uuid.New()
	for i := 0; i < 2; i++ {
		if _, err := c.Product(ctx, missing); !store.IsNotFound(err) {
			t.Fatalf("expected NotFound, got %v", err)
		}
	}
	if n := stores.Products.Calls("FindByID"); n != 2 {
		t.Errorf("NotFound must not be cached, got %d loads", n)
	}
}

func TestCatalog_SaveProductInvalidates(t *testing.T) {
	c, stores := newTestCatalog(t, cache.DefaultConfig())
	ctx := context.Background()

	warm := func() {
		t.Helper()
		if _, err := c.AllProducts(ctx); err != nil {
			t.Fatal(err)
		}
		if _, err := c.ProductsByCategory(ctx, testsupport.BooksID); err != nil {
			t.Fatal(err)
		}
		if _, err := c.ProductsByCategory(ctx, testsupport.GamesID); err != nil {
			t.Fatal(err)
		}
		if _, err := c.Product(ctx, testsupport.GoBookID); err != nil {
			t.Fatal(err)
		}
	}
	warm()

	product, err := stores.Products.FindByID(ctx, testsupport.GoBookID)
	if err != nil {
		t.Fatal(err)
	}
	product.CategoryID = testsupport.GamesID
	product.Price = decimal.RequireFromString("19.999")

	saved, err := c.SaveProduct(ctx, product)
	if err != nil {
		t.Fatalf("SaveProduct: %v", err)
	}
	if saved.Price.String() != "20" {
		t.Errorf("price should be rounded to two places, got %s", saved.Price)
	}
	if saved.Category == nil || saved.Category.ID != testsupport.GamesID {
		t.Errorf("saved product should carry its category, got %+v", saved.Category)
	}

	books, _ := c.ProductsByCategory(ctx, testsupport.BooksID)
	games, _ := c.ProductsByCategory(ctx, testsupport.GamesID)
	if len(books) != 1 || len(games) != 2 {
		t.Errorf("moved product should leave books and join games, got %d books and %d games", len(books), len(games))
	}

	detail, err := c.Product(ctx, testsupport.GoBookID)
	if err != nil {
		t.Fatal(err)
	}
	if detail.CategoryID != testsupport.GamesID {
		t.Errorf("product detail should be reloaded, still in %s", detail.CategoryID)
	}

	all, _ := c.AllProducts(ctx)
	for _, p := range all {
		if p.ID == testsupport.GoBookID && p.CategoryID != testsupport.GamesID {
			t.Error("all_products should be reloaded after save")
		}
	}
}

func TestCatalog_SaveProductValidation(t *testing.T) {
	c, stores := newTestCatalog(t, cache.DefaultConfig())
	ctx := context.Background()

	tests := []struct {
		name    string
		product *model.Product
	}{
		{name: "nil", product: nil},
		{name: "negative price", product: &model.Product{Name: "x", Price: decimal.NewFromInt(-1), CategoryID: testsupport.BooksID}},
		{name: "missing category id", product: &model.Product{Name: "x", Price: decimal.NewFromInt(1)}},
		{name: "unknown category", product: &model.Product{Name: "x", Price: decimal.NewFromInt(1), CategoryID: uuid.New()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.SaveProduct(ctx, tt.product)
			if err == nil {
				t.Fatal("expected an error")
			}
			if goerrors.IsRetryableError(err) {
				t.Errorf("input errors must not be retryable: %v", err)
			}
		})
	}
	if n := stores.Products.Calls("Save"); n != 0 {
		t.Errorf("invalid products must not reach the store, got %d saves", n)
	}
}

func TestCatalog_SaveCategoryInvalidates(t *testing.T) {
	c, stores := newTestCatalog(t, cache.DefaultConfig())
	ctx := context.Background()

	if _, err := c.AllCategories(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Product(ctx, testsupport.GoBookID); err != nil {
		t.Fatal(err)
	}

	books, _ := stores.Categories.FindByID(ctx, testsupport.BooksID)
	books.Name = "Books & Comics"
	books.Slug = ""

	saved, err := c.SaveCategory(ctx, books)
	if err != nil {
		t.Fatalf("SaveCategory: %v", err)
	}
	if saved.Slug != "books-and-comics" {
		t.Errorf("blank slug should be derived from the name, got %q", saved.Slug)
	}

	categories, _ := c.AllCategories(ctx)
	found := false
	for _, cat := range categories {
		if cat.ID == testsupport.BooksID {
			found = cat.Name == "Books & Comics"
		}
	}
	if !found {
		t.Error("all_categories should be reloaded after save")
	}

	detail, _ := c.Product(ctx, testsupport.GoBookID)
	if detail.Category == nil || detail.Category.Name != "Books & Comics" {
		t.Errorf("product details embed their category and must be reloaded, got %+v", detail.Category)
	}

	created, err := c.SaveCategory(ctx, &model.Category{Name: "Music", Active: true})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if created.ID == uuid.Nil || created.Slug != "music" {
		t.Errorf("unexpected created category %+v", created)
	}

	if _, err := c.SaveCategory(ctx, &model.Category{Name: ""}); !goerrors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

// failingCache serves reads from an inner cache but fails every invalidation.
type failingCache struct {
	cache.CacheService
	err error
}

func (f *failingCache) InvalidateKeys(ctx context.Context, keys []string) error { return f.err }

func (f *failingCache) DeleteByPrefix(ctx context.Context, prefix string) error { return f.err }

func TestCatalog_InvalidationFailureReportsSavedRecord(t *testing.T) {
	stores := testsupport.MustSeededStores(t)
	inner, err := cache.NewCacheService(cache.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("redis gone")
	c := New(stores.Categories, stores.Products, &failingCache{CacheService: inner, err: boom}, WithLogger(quietLogger()))
	ctx := context.Background()

	saved, err := c.SaveCategory(ctx, &model.Category{Name: "Music", Active: true})
	if err == nil {
		t.Fatal("expected invalidation error")
	}
	if saved == nil || saved.ID == uuid.Nil {
		t.Fatal("the write stands and the saved record must be returned")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryOperation) {
		t.Errorf("expected operation error, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("cache failure should be wrapped, got %v", err)
	}

	if _, err := stores.Categories.FindByID(ctx, saved.ID); err != nil {
		t.Errorf("category should be persisted: %v", err)
	}
}

func TestCatalog_Purge(t *testing.T) {
	c, stores := newTestCatalog(t, cache.DefaultConfig())
	ctx := context.Background()

	if _, err := c.AllProducts(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Purge(ctx); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if _, err := c.AllProducts(ctx); err != nil {
		t.Fatal(err)
	}
	if n := stores.Products.Calls("FindAll"); n != 2 {
		t.Errorf("expected a reload after purge, got %d loads", n)
	}
}

// pausingProducts reads the rows on the first FindAll, then holds them until
// released, so a write can land while the old rows are in flight.
type pausingProducts struct {
	store.ProductStore
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (p *pausingProducts) FindAll(ctx context.Context) ([]*model.Product, error) {
	rows, err := p.ProductStore.FindAll(ctx)
	p.once.Do(func() {
		close(p.started)
		<-p.release
	})
	return rows, err
}

func TestCatalog_DeactivationDuringLoadIsNotLost(t *testing.T) {
	stores := testsupport.MustSeededStores(t)
	svc, err := cache.NewCacheService(cache.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	products := &pausingProducts{
		ProductStore: stores.Products,
		started:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	c := New(stores.Categories, products, svc, WithLogger(quietLogger()))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := c.AllProducts(ctx)
		done <- err
	}()
	<-products.started

	if err := stores.Products.SetActive(ctx, testsupport.GoBookID, false); err != nil {
		t.Fatal(err)
	}
	if err := c.InvalidateProduct(ctx, testsupport.GoBookID, testsupport.BooksID); err != nil {
		t.Fatal(err)
	}
	close(products.release)
	if err := <-done; err != nil {
		t.Fatalf("AllProducts: %v", err)
	}

	all, err := c.AllProducts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range all {
		if p.ID == testsupport.GoBookID && p.Active {
			t.Fatal("the list loaded before the deactivation was kept in the cache")
		}
	}
	if n := stores.Products.Calls("FindAll"); n != 2 {
		t.Errorf("expected a reload after the overlapping invalidation, got %d loads", n)
	}
}
