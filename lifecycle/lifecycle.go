// Package lifecycle implements soft deletion. Categories, products and users
// are never removed: deactivation clears their active flag with a single
// write, and reactivation sets it again.
package lifecycle

import (
	"context"
	"log/slog"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-storefront/model"
	"github.com/goliatone/go-storefront/store"
	"github.com/google/uuid"
)

// Invalidator drops cached catalog entries derived from an entity.
type Invalidator interface {
	InvalidateCategory(ctx context.Context, id uuid.UUID) error
	InvalidateProduct(ctx context.Context, id uuid.UUID, categoryIDs ...uuid.UUID) error
}

// Lifecycle flips the active flag of stored entities.
type Lifecycle struct {
	categories  store.CategoryStore
	products    store.ProductStore
	users       store.UserStore
	invalidator Invalidator
	logger      *slog.Logger
}

type Option func(*Lifecycle)

// WithInvalidator keeps a catalog cache consistent with deactivations.
func WithInvalidator(inv Invalidator) Option {
	return func(l *Lifecycle) { l.invalidator = inv }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Lifecycle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func New(categories store.CategoryStore, products store.ProductStore, users store.UserStore, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		categories: categories,
		products:   products,
		users:      users,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "lifecycle")
	return l
}

// Deactivate marks the entity inactive. Deactivating an inactive entity
// succeeds. Related entities are left untouched: products of a deactivated
// category keep referencing it.
func (l *Lifecycle) Deactivate(ctx context.Context, entityType model.EntityType, id uuid.UUID) error {
	return l.setActive(ctx, entityType, id, false)
}

// Reactivate marks the entity active again.
func (l *Lifecycle) Reactivate(ctx context.Context, entityType model.EntityType, id uuid.UUID) error {
	return l.setActive(ctx, entityType, id, true)
}

func (l *Lifecycle) setActive(ctx context.Context, entityType model.EntityType, id uuid.UUID, active bool) error {
	if !entityType.Valid() {
		return goerrors.New("unknown entity type "+string(entityType), goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithTextCode("UNKNOWN_ENTITY")
	}
	if id == uuid.Nil {
		return goerrors.NewValidation("invalid id", goerrors.FieldError{Field: "id", Message: "cannot be blank"})
	}

	switch entityType {
	case model.EntityUser:
		if err := l.users.SetActive(ctx, id, active); err != nil {
			return err
		}

	case model.EntityCategory:
		if err := l.categories.SetActive(ctx, id, active); err != nil {
			return err
		}
		if l.invalidator != nil {
			if err := l.invalidator.InvalidateCategory(ctx, id); err != nil {
				return err
			}
		}

	case model.EntityProduct:
		// The product's category is needed to drop its category list.
		product, err := l.products.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := l.products.SetActive(ctx, id, active); err != nil {
			return err
		}
		if l.invalidator != nil {
			if err := l.invalidator.InvalidateProduct(ctx, id, product.CategoryID); err != nil {
				return err
			}
		}
	}

	l.logger.InfoContext(ctx, "entity status changed",
		"entity", entityType.String(),
		"id", id.String(),
		"status", statusName(active),
	)
	return nil
}

func statusName(active bool) string {
	if active {
		return string(model.StatusActive)
	}
	return string(model.StatusInactive)
}
