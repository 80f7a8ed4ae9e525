// Package activation gates account activation behind a time bounded,
// single use key mailed to the user at registration.
//
// A registered user starts pending: inactive, with an activation key and an
// expiry. Verify activates the user when the presented key matches and has
// not expired, clearing key and expiry in the same write.
package activation

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-storefront/model"
	"github.com/goliatone/go-storefront/store"
)

// Reason explains the outcome of a verification.
type Reason string

const (
	ReasonVerified     Reason = "verified"
	ReasonUserNotFound Reason = "user_not_found"
	ReasonKeyMismatch  Reason = "key_mismatch"
	ReasonKeyExpired   Reason = "key_expired"
	ReasonKeyConsumed  Reason = "key_consumed"
	ReasonStoreError   Reason = "store_error"
)

// Result is the outcome of Verify. A failed verification is a normal
// outcome, not an error.
type Result struct {
	Verified bool   `json:"verified"`
	Reason   Reason `json:"reason"`
}

func failed(reason Reason) Result { return Result{Reason: reason} }

// Gate verifies activation keys.
type Gate struct {
	users  store.UserStore
	now    func() time.Time
	logger *slog.Logger
}

func NewGate(users store.UserStore, opts ...Option) *Gate {
	s := newSettings(opts)
	return &Gate{
		users:  users,
		now:    s.now,
		logger: s.logger.With("component", "activation"),
	}
}

// Verify activates the user registered with email when token equals the
// stored activation key and the key has not expired. The key is expired from
// the expiry instant on. Nothing is written unless verification succeeds.
func (g *Gate) Verify(ctx context.Context, email, token string) Result {
	email = strings.TrimSpace(email)

	user, err := g.users.FindByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			g.logger.DebugContext(ctx, "activation for unknown email", "email", email)
			return failed(ReasonUserNotFound)
		}
		g.storeError(ctx, "find user", email, err)
		return failed(ReasonStoreError)
	}

	if user.ActivationKey == "" {
		return g.reject(ctx, user, ReasonKeyConsumed)
	}
	if !keysEqual(user.ActivationKey, token) {
		return g.reject(ctx, user, ReasonKeyMismatch)
	}
	if user.KeyExpired(g.now()) {
		return g.reject(ctx, user, ReasonKeyExpired)
	}

	if err := g.users.ConsumeActivation(ctx, user.ID, user.ActivationKey); err != nil {
		// A concurrent verify consumed the key first.
		if store.IsNotFound(err) {
			return g.reject(ctx, user, ReasonKeyConsumed)
		}
		g.storeError(ctx, "consume activation", email, err)
		return failed(ReasonStoreError)
	}

	g.logger.InfoContext(ctx, "user activated", "user_id", user.ID.String())
	return Result{Verified: true, Reason: ReasonVerified}
}

func (g *Gate) reject(ctx context.Context, user *model.User, reason Reason) Result {
	g.logger.InfoContext(ctx, "activation rejected",
		"user_id", user.ID.String(),
		"reason", string(reason),
	)
	return failed(reason)
}

func (g *Gate) storeError(ctx context.Context, op, email string, err error) {
	args := []any{"operation", op, "email", email, "error", err}
	for _, attr := range goerrors.ToSlogAttributes(err) {
		args = append(args, attr)
	}
	g.logger.ErrorContext(ctx, "activation store failure", args...)
}

func keysEqual(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
