package testsupport

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-storefront/model"
	"github.com/google/uuid"
)

//go:embed testdata/catalog.json
var catalogFixture []byte

// Fixture ids from testdata/catalog.json.
var (
	BooksID    = uuid.MustParse("0b6f7c1e-2f4a-4d39-9a51-3f1d8c2e7a01")
	GamesID    = uuid.MustParse("5d2a9e40-7c1b-4f63-8e2d-6a4b1c9f0e02")
	ArchiveID  = uuid.MustParse("9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c03")
	GoBookID   = uuid.MustParse("a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c11")
	SettlersID = uuid.MustParse("c3d4e5f6-a7b8-4c9d-8e1f-2a3b4c5d6e13")
	AlmanacID  = uuid.MustParse("d4e5f6a7-b8c9-4d0e-9f2a-3b4c5d6e7f14")
	AdminID    = uuid.MustParse("e5f6a7b8-c9d0-4e1f-8a3b-4c5d6e7f8a21")
)

// CatalogData is the decoded catalog fixture.
type CatalogData struct {
	Categories []*model.Category `json:"categories"`
	Products   []*model.Product  `json:"products"`
	Users      []*model.User     `json:"users"`
}

// LoadCatalog decodes the embedded catalog fixture. Each call returns fresh
// records.
func LoadCatalog() (CatalogData, error) {
	var data CatalogData
	if err := json.Unmarshal(catalogFixture, &data); err != nil {
		return CatalogData{}, fmt.Errorf("decode catalog fixture: %w", err)
	}
	return data, nil
}

// SeededStores returns in-memory stores holding the catalog fixture.
func SeededStores() (Stores, error) {
	data, err := LoadCatalog()
	if err != nil {
		return Stores{}, err
	}

	categories := NewMemoryCategoryStore(data.Categories...)
	return Stores{
		Categories: categories,
		Products:   NewMemoryProductStore(categories, data.Products...),
		Users:      NewMemoryUserStore(data.Users...),
	}, nil
}

// MustSeededStores is SeededStores for tests.
func MustSeededStores(t testing.TB) Stores {
	t.Helper()
	stores, err := SeededStores()
	if err != nil {
		t.Fatalf("failed to seed stores: %v", err)
	}
	return stores
}

// WriteFile writes content to name inside a temporary directory removed at
// the end of the test and returns the full path.
func WriteFile(t testing.TB, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
