package httpapi

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-storefront/store"
	"github.com/gofiber/fiber/v2"
)

type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeUnavailable   = "STORE_UNAVAILABLE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

func SuccessResponse(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusOK).JSON(Response{Success: true, Data: data})
}

func CreatedResponse(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(Response{Success: true, Data: data})
}

func ErrorResponse(c *fiber.Ctx, status int, code, message string, details any) error {
	return c.Status(status).JSON(Response{
		Error: &ErrorInfo{Code: code, Message: message, Details: details},
	})
}

func BadRequestResponse(c *fiber.Ctx, message string) error {
	return ErrorResponse(c, fiber.StatusBadRequest, ErrCodeBadRequest, message, nil)
}

// ErrorFromCore writes the response for an error returned by the storefront
// core, choosing the status from its category.
func ErrorFromCore(c *fiber.Ctx, err error) error {
	status, code := classify(err)

	message := err.Error()
	var details any
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		message = rich.Message
		if fields := rich.AllValidationErrors(); len(fields) > 0 {
			details = fields
		}
	}
	if status >= fiber.StatusInternalServerError {
		message = "Internal server error"
		if status == fiber.StatusServiceUnavailable {
			message = "Service temporarily unavailable"
		}
	}
	return ErrorResponse(c, status, code, message, details)
}

func classify(err error) (int, string) {
	switch {
	case store.IsUnavailable(err):
		return fiber.StatusServiceUnavailable, ErrCodeUnavailable
	case goerrors.IsNotFound(err):
		return fiber.StatusNotFound, ErrCodeNotFound
	case goerrors.IsValidation(err):
		return fiber.StatusBadRequest, ErrCodeValidation
	case goerrors.IsCategory(err, goerrors.CategoryBadInput):
		return fiber.StatusBadRequest, ErrCodeBadRequest
	case goerrors.IsCategory(err, goerrors.CategoryConflict):
		return fiber.StatusConflict, ErrCodeConflict
	}
	return fiber.StatusInternalServerError, ErrCodeInternalError
}
