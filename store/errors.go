package store

import (
	"database/sql"
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun/driver/pgdriver"
)

// ErrorCategory is the go-errors category of store failures.
var ErrorCategory = goerrors.CategoryExternal.Extend("store")

const (
	TextCodeNotFound    = "NOT_FOUND"
	TextCodeUnavailable = "STORE_UNAVAILABLE"
	TextCodeDuplicate   = "DUPLICATE"
	TextCodeReference   = "REFERENCE_VIOLATION"
)

// NotFound reports a missing row.
func NotFound(entity string, id any) *goerrors.Error {
	return goerrors.New(fmt.Sprintf("%s %v not found", entity, id), goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound).
		WithTextCode(TextCodeNotFound).
		WithMetadata(map[string]any{"entity": entity, "id": fmt.Sprint(id)})
}

// Unavailable wraps a driver failure. The result is retryable.
func Unavailable(err error, op string) *goerrors.RetryableError {
	if err == nil {
		return nil
	}
	rerr := goerrors.WrapRetryable(err, ErrorCategory, op+" failed")
	// Wrap keeps the category of an existing *Error source.
	rerr.Category = ErrorCategory
	return rerr.
		WithCode(503).
		WithTextCode(TextCodeUnavailable).
		WithMetadata(map[string]any{"operation": op})
}

// Conflict reports a write rejected by a constraint.
func Conflict(err error, entity, textCode string) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryConflict, entity+" violates a constraint").
		WithCode(goerrors.CodeConflict).
		WithTextCode(textCode)
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	return goerrors.IsNotFound(err)
}

// IsUnavailable reports whether err is a store failure.
func IsUnavailable(err error) bool {
	return goerrors.IsCategory(err, ErrorCategory)
}

// classify maps a bun or driver error onto the store error kinds.
func classify(err error, entity string, id any, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) || goerrors.IsNotFound(err) {
		return NotFound(entity, id)
	}

	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
		switch pgErr.Field('C') {
		case "23505":
			return Conflict(err, entity, TextCodeDuplicate)
		case "23503":
			return Conflict(err, entity, TextCodeReference)
		}
	}

	return Unavailable(err, op)
}
