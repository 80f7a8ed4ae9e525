package activation

import (
	"strings"
	"time"

	"github.com/goliatone/go-storefront/model"
	"github.com/google/uuid"
)

// Issuer puts users in the pending state.
type Issuer struct {
	ttl time.Duration
	now func() time.Time
}

// NewIssuer returns an Issuer whose keys expire ttl after issue. A non
// positive ttl uses DefaultTTL.
func NewIssuer(ttl time.Duration, now func() time.Time) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{ttl: ttl, now: now}
}

// Pending marks user inactive and gives it a fresh key expiring one TTL from
// now. The key is returned.
func (i *Issuer) Pending(user *model.User) string {
	key := NewKey()
	expires := i.now().Add(i.ttl)

	user.Active = false
	user.ActivationKey = key
	user.ActivationKeyExpires = &expires
	return key
}

// NewKey returns a random 32 character hex key.
func NewKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
