package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Category groups products. Name and slug are unique across all rows,
// active or not.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:cat"`

	ID          uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name        string    `bun:"name,notnull,unique" json:"name"`
	Description string    `bun:"description" json:"description,omitempty"`
	Active      bool      `bun:"active,notnull,default:true" json:"active"`
	Slug        string    `bun:"slug,notnull,unique" json:"slug"`
}

func (c *Category) Status() Status { return statusOf(c.Active) }

// Validate checks the admin editable fields.
func (c *Category) Validate() error {
	if err := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(c,
			validation.Field(&c.Name, validation.Required, validation.Length(1, 64)),
			validation.Field(&c.Slug, validation.Length(0, 256), validation.By(slugRule)),
		)
	}, "invalid category"); err != nil {
		return err
	}
	return nil
}
