package httpapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/goliatone/go-storefront/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID propagates the X-Request-ID header, generating one when absent.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDHeader, requestID)
		c.SetUserContext(logger.ContextWithRequestID(c.UserContext(), requestID))
		c.Locals("request_id", requestID)
		return c.Next()
	}
}

// RequestLogger logs every completed request.
func RequestLogger(log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}

		ctx := c.UserContext()
		logger.WithRequestID(ctx, log).Log(ctx, level, "request completed",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", time.Since(start).String(),
		)
		return err
	}
}

// AdminToken admits requests carrying "Authorization: Bearer <token>".
func AdminToken(token string) fiber.Handler {
	want := sha256.Sum256([]byte(token))
	return keyauth.New(keyauth.Config{
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			got := sha256.Sum256([]byte(key))
			return subtle.ConstantTimeCompare(got[:], want[:]) == 1, nil
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return ErrorResponse(c, fiber.StatusUnauthorized, ErrCodeUnauthorized, "Missing or invalid admin token", nil)
		},
	})
}

// ErrorHandler renders errors that escape the handlers, such as unknown
// routes, in the JSON envelope.
func ErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code := ErrCodeInternalError
			switch fe.Code {
			case fiber.StatusBadRequest:
				code = ErrCodeBadRequest
			case fiber.StatusNotFound:
				code = ErrCodeNotFound
			case fiber.StatusConflict:
				code = ErrCodeConflict
			}
			return ErrorResponse(c, fe.Code, code, fe.Message, nil)
		}

		log.ErrorContext(c.UserContext(), "unhandled error", "path", c.Path(), "error", err)
		return ErrorFromCore(c, err)
	}
}
