// Package store defines the entity store the storefront core reads and
// writes through, plus its bun implementation.
//
// Reads go through go-repository-bun repositories. Writes that must be a
// single statement (SetActive, ConsumeActivation) are issued with bun
// directly so each one is atomic at the row level.
package store

import (
	"context"

	"github.com/goliatone/go-storefront/model"
	"github.com/google/uuid"
)

// CategoryStore persists categories.
type CategoryStore interface {
	FindAll(ctx context.Context) ([]*model.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
	Save(ctx context.Context, category *model.Category) (*model.Category, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// ProductStore persists products. Products are returned with their Category
// relation loaded.
type ProductStore interface {
	FindAll(ctx context.Context) ([]*model.Product, error)
	FindByCategory(ctx context.Context, categoryID uuid.UUID) ([]*model.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	Save(ctx context.Context, product *model.Product) (*model.Product, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// UserStore persists users and their activation state.
type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Save(ctx context.Context, user *model.User) (*model.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	// ConsumeActivation activates the user and clears the key and expiry in
	// one write, provided the stored key still equals key. NotFound is
	// returned when no row matched.
	ConsumeActivation(ctx context.Context, id uuid.UUID, key string) error
}
