package model

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// PriceScale is the number of decimal places kept for prices.
const PriceScale = 2

// Product belongs to exactly one Category. The category row is never removed,
// so CategoryID always resolves even when the category is inactive.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	Name        string          `bun:"name,notnull" json:"name"`
	Image       string          `bun:"image" json:"image,omitempty"`
	Description string          `bun:"description" json:"description,omitempty"`
	Price       decimal.Decimal `bun:"price,type:numeric(8,2),notnull" json:"price"`
	Quantity    int             `bun:"quantity,notnull,default:0" json:"quantity"`
	Active      bool            `bun:"active,notnull,default:true" json:"active"`
	Slug        string          `bun:"slug,notnull,unique" json:"slug"`
	CategoryID  uuid.UUID       `bun:"category_id,type:uuid,notnull" json:"category_id"`
	Category    *Category       `bun:"rel:belongs-to,join:category_id=id" json:"category,omitempty"`
}

func (p *Product) Status() Status { return statusOf(p.Active) }

// Normalize rounds the price to PriceScale places.
func (p *Product) Normalize() {
	p.Price = p.Price.Round(PriceScale)
}

// Validate checks the admin editable fields.
func (p *Product) Validate() error {
	if err := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(p,
			validation.Field(&p.Name, validation.Required, validation.Length(1, 128)),
			validation.Field(&p.Price, validation.By(nonNegativePrice)),
			validation.Field(&p.Quantity, validation.Min(0)),
			validation.Field(&p.Slug, validation.Length(0, 256), validation.By(slugRule)),
			validation.Field(&p.CategoryID, validation.By(requiredUUID)),
		)
	}, "invalid product"); err != nil {
		return err
	}
	return nil
}

func nonNegativePrice(value any) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return nil
	}
	if d.IsNegative() {
		return errors.New("must not be negative")
	}
	if d.GreaterThanOrEqual(decimal.New(1_000_000, 0)) {
		return errors.New("must be lower than 1000000")
	}
	return nil
}

func requiredUUID(value any) error {
	switch v := value.(type) {
	case uuid.UUID:
		if v == uuid.Nil {
			return errors.New("cannot be blank")
		}
	case string:
		if v == "" || v == uuid.Nil.String() {
			return errors.New("cannot be blank")
		}
	}
	return nil
}

func slugRule(value any) error {
	s, ok := value.(string)
	if !ok || s == "" {
		return nil
	}
	if !slug.IsSlug(s) {
		return errors.New("must be a valid slug")
	}
	return nil
}
