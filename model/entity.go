package model

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/gosimple/slug"
)

// EntityType names the record families that share the soft delete lifecycle.
type EntityType string

const (
	EntityUser     EntityType = "user"
	EntityCategory EntityType = "category"
	EntityProduct  EntityType = "product"
)

func (e EntityType) String() string { return string(e) }

// Valid reports whether e is one of the known entity types.
func (e EntityType) Valid() bool {
	switch e {
	case EntityUser, EntityCategory, EntityProduct:
		return true
	}
	return false
}

// ParseEntityType accepts singular or plural names, case insensitive.
func ParseEntityType(s string) (EntityType, error) {
	e := EntityType(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s"))
	if e == "categorie" {
		e = EntityCategory
	}
	if !e.Valid() {
		return "", goerrors.New("unknown entity type: "+s, goerrors.CategoryBadInput).
			WithTextCode("UNKNOWN_ENTITY")
	}
	return e, nil
}

// Status is the tagged form of the active flag.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func statusOf(active bool) Status {
	if active {
		return StatusActive
	}
	return StatusInactive
}

// EnsureSlug normalizes current when it is set, otherwise it derives a slug
// from name.
func EnsureSlug(current, name string) string {
	if s := strings.TrimSpace(current); s != "" {
		return slug.Make(s)
	}
	return slug.Make(name)
}
