package testsupport

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-storefront/model"
	"github.com/goliatone/go-storefront/store"
	"github.com/google/uuid"
)

// ErrInjected is the default error returned by a failing method.
var ErrInjected = errors.New("testsupport: injected store failure")

// recorder counts calls per method and returns injected failures.
type recorder struct {
	mu     sync.Mutex
	calls  map[string]int
	faults map[string]error
}

func (r *recorder) record(method string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[method]++
	if err, ok := r.faults[method]; ok {
		return store.Unavailable(err, method)
	}
	return nil
}

// Calls returns how many times method was invoked.
func (r *recorder) Calls(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

// ResetCalls clears the call counters.
func (r *recorder) ResetCalls() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Fail makes method return a store failure wrapping err until Heal is
// called. A nil err uses ErrInjected.
func (r *recorder) Fail(method string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	if r.faults == nil {
		r.faults = make(map[string]error)
	}
	r.faults[method] = err
}

// Heal removes every injected failure.
func (r *recorder) Heal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults = nil
}

// MemoryCategoryStore is an in-memory store.CategoryStore. Records are
// copied on the way in and out.
type MemoryCategoryStore struct {
	recorder
	mu   sync.RWMutex
	rows map[uuid.UUID]model.Category
}

var _ store.CategoryStore = (*MemoryCategoryStore)(nil)

func NewMemoryCategoryStore(seed ...*model.Category) *MemoryCategoryStore {
	s := &MemoryCategoryStore{rows: make(map[uuid.UUID]model.Category)}
	for _, c := range seed {
		s.rows[c.ID] = *c
	}
	return s
}

func (s *MemoryCategoryStore) FindAll(ctx context.Context) ([]*model.Category, error) {
	if err := s.record("FindAll"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Category, 0, len(s.rows))
	for _, row := range s.rows {
		c := row
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryCategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	if err := s.record("FindByID"); err != nil {
		return nil, err
	}
	return s.get(id)
}

func (s *MemoryCategoryStore) get(id uuid.UUID) (*model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, store.NotFound("category", id)
	}
	return &row, nil
}

func (s *MemoryCategoryStore) Save(ctx context.Context, category *model.Category) (*model.Category, error) {
	if err := s.record("Save"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if category.ID != uuid.Nil {
		if _, ok := s.rows[category.ID]; !ok {
			return nil, store.NotFound("category", category.ID)
		}
	} else {
		category.ID = uuid.New()
	}

	for id, row := range s.rows {
		if id != category.ID && (row.Name == category.Name || row.Slug == category.Slug) {
			return nil, store.Conflict(errors.New("duplicate name or slug"), "category", store.TextCodeDuplicate)
		}
	}

	s.rows[category.ID] = *category
	saved := *category
	return &saved, nil
}

func (s *MemoryCategoryStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.record("SetActive"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return store.NotFound("category", id)
	}
	row.Active = active
	s.rows[id] = row
	return nil
}

// MemoryProductStore is an in-memory store.ProductStore. Returned products
// carry a copy of their category.
type MemoryProductStore struct {
	recorder
	mu         sync.RWMutex
	rows       map[uuid.UUID]model.Product
	categories *MemoryCategoryStore
}

var _ store.ProductStore = (*MemoryProductStore)(nil)

func NewMemoryProductStore(categories *MemoryCategoryStore, seed ...*model.Product) *MemoryProductStore {
	s := &MemoryProductStore{
		rows:       make(map[uuid.UUID]model.Product),
		categories: categories,
	}
	for _, p := range seed {
		row := *p
		row.Category = nil
		s.rows[p.ID] = row
	}
	return s
}

func (s *MemoryProductStore) withCategory(row model.Product) *model.Product {
	p := row
	if s.categories != nil {
		if c, err := s.categories.get(p.CategoryID); err == nil {
			p.Category = c
		}
	}
	return &p
}

func (s *MemoryProductStore) list(match func(model.Product) bool) []*model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Product, 0, len(s.rows))
	for _, row := range s.rows {
		if match(row) {
			out = append(out, s.withCategory(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *MemoryProductStore) FindAll(ctx context.Context) ([]*model.Product, error) {
	if err := s.record("FindAll"); err != nil {
		return nil, err
	}
	return s.list(func(model.Product) bool { return true }), nil
}

func (s *MemoryProductStore) FindByCategory(ctx context.Context, categoryID uuid.UUID) ([]*model.Product, error) {
	if err := s.record("FindByCategory"); err != nil {
		return nil, err
	}
	return s.list(func(p model.Product) bool { return p.CategoryID == categoryID }), nil
}

func (s *MemoryProductStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	if err := s.record("FindByID"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, store.NotFound("product", id)
	}
	return s.withCategory(row), nil
}

func (s *MemoryProductStore) Save(ctx context.Context, product *model.Product) (*model.Product, error) {
	if err := s.record("Save"); err != nil {
		return nil, err
	}
	product.Normalize()

	if s.categories != nil {
		if _, err := s.categories.get(product.CategoryID); err != nil {
			return nil, store.Conflict(errors.New("unknown category"), "product", store.TextCodeReference)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID != uuid.Nil {
		if _, ok := s.rows[product.ID]; !ok {
			return nil, store.NotFound("product", product.ID)
		}
	} else {
		product.ID = uuid.New()
	}

	for id, row := range s.rows {
		if id != product.ID && row.Slug == product.Slug {
			return nil, store.Conflict(errors.New("duplicate slug"), "product", store.TextCodeDuplicate)
		}
	}

	row := *product
	row.Category = nil
	s.rows[product.ID] = row
	return s.withCategory(row), nil
}

func (s *MemoryProductStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.record("SetActive"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return store.NotFound("product", id)
	}
	row.Active = active
	s.rows[id] = row
	return nil
}

// MemoryUserStore is an in-memory store.UserStore.
type MemoryUserStore struct {
	recorder
	mu   sync.RWMutex
	rows map[uuid.UUID]model.User
}

var _ store.UserStore = (*MemoryUserStore)(nil)

func NewMemoryUserStore(seed ...*model.User) *MemoryUserStore {
	s := &MemoryUserStore{rows: make(map[uuid.UUID]model.User)}
	for _, u := range seed {
		s.rows[u.ID] = *u
	}
	return s
}

func (s *MemoryUserStore) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if err := s.record("FindByID"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, store.NotFound("user", id)
	}
	return &row, nil
}

func (s *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := s.record("FindByEmail"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.TrimSpace(email)
	for _, row := range s.rows {
		if strings.EqualFold(row.Email, email) {
			u := row
			return &u, nil
		}
	}
	return nil, store.NotFound("user", email)
}

func (s *MemoryUserStore) Save(ctx context.Context, user *model.User) (*model.User, error) {
	if err := s.record("Save"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID != uuid.Nil {
		if _, ok := s.rows[user.ID]; !ok {
			return nil, store.NotFound("user", user.ID)
		}
	} else {
		user.ID = uuid.New()
	}

	for id, row := range s.rows {
		if id != user.ID && (strings.EqualFold(row.Email, user.Email) || row.Username == user.Username) {
			return nil, store.Conflict(errors.New("duplicate email or username"), "user", store.TextCodeDuplicate)
		}
	}

	s.rows[user.ID] = *user
	saved := *user
	return &saved, nil
}

func (s *MemoryUserStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.record("SetActive"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return store.NotFound("user", id)
	}
	row.Active = active
	s.rows[id] = row
	return nil
}

func (s *MemoryUserStore) ConsumeActivation(ctx context.Context, id uuid.UUID, key string) error {
	if err := s.record("ConsumeActivation"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || row.ActivationKey == "" || row.ActivationKey != key {
		return store.NotFound("user", id)
	}
	row.Active = true
	row.ActivationKey = ""
	row.ActivationKeyExpires = nil
	s.rows[id] = row
	return nil
}

// Stores bundles the three in-memory stores.
type Stores struct {
	Categories *MemoryCategoryStore
	Products   *MemoryProductStore
	Users      *MemoryUserStore
}

// NewStores returns empty in-memory stores.
func NewStores() Stores {
	categories := NewMemoryCategoryStore()
	return Stores{
		Categories: categories,
		Products:   NewMemoryProductStore(categories),
		Users:      NewMemoryUserStore(),
	}
}
