package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultAge is applied to users registered without an age.
const DefaultAge = 18

// User is a storefront account. A freshly registered user is inactive, holds
// a non blank ActivationKey and a future ActivationKeyExpires.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                   uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Username             string     `bun:"username,notnull,unique" json:"username"`
	Email                string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash         string     `bun:"password_hash,notnull" json:"-"`
	FirstName            string     `bun:"first_name" json:"first_name,omitempty"`
	LastName             string     `bun:"last_name" json:"last_name,omitempty"`
	Age                  int        `bun:"age,notnull,default:18" json:"age"`
	Avatar               string     `bun:"avatar" json:"avatar,omitempty"`
	Active               bool       `bun:"active,notnull,default:true" json:"active"`
	IsSuperuser          bool       `bun:"is_superuser,notnull,default:false" json:"is_superuser"`
	ActivationKey        string     `bun:"activation_key,notnull,default:''" json:"-"`
	ActivationKeyExpires *time.Time `bun:"activation_key_expires,nullzero" json:"-"`
}

func (u *User) Status() Status { return statusOf(u.Active) }

// Pending reports whether the user is waiting for email activation.
func (u *User) Pending() bool {
	return !u.Active && u.ActivationKey != ""
}

// KeyExpired reports whether the activation key is no longer usable at now.
// The boundary instant counts as expired, and a missing expiry never
// validates a key.
func (u *User) KeyExpired(now time.Time) bool {
	if u.ActivationKeyExpires == nil {
		return true
	}
	return !now.Before(*u.ActivationKeyExpires)
}

// Validate checks the profile fields editable through registration and admin
// forms.
func (u *User) Validate() error {
	if err := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(u,
			validation.Field(&u.Username, validation.Required, validation.Length(1, 150)),
			validation.Field(&u.Email, validation.Required, is.EmailFormat),
			validation.Field(&u.FirstName, validation.Length(0, 128)),
			validation.Field(&u.LastName, validation.Length(0, 128)),
			validation.Field(&u.Age, validation.Min(0), validation.Max(150)),
			validation.Field(&u.ActivationKey, validation.Length(0, 128)),
		)
	}, "invalid user"); err != nil {
		return err
	}
	return nil
}
