// Package httpapi exposes the storefront core over HTTP with fiber: catalog
// reads, admin writes and status changes, registration and the activation
// link. Admin routes are guarded by the handlers in Config.AdminGuards;
// AdminToken is a bearer token guard. User authentication belongs to the
// application mounting these routes.
package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// AdminGuards run in front of every /admin route. Without any, admin
	// writes are open to every caller.
	AdminGuards []fiber.Handler
}

// NewApp returns a fiber app with every storefront route registered.
// cfg.AdminGuards protect the admin routes.
func NewApp(h *Handlers, cfg Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "storefront",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          ErrorHandler(h.logger),
	})

	app.Use(RequestID())
	app.Use(RequestLogger(h.logger))

	SetupRoutes(app, h, cfg.AdminGuards...)
	return app
}

// SetupRoutes registers every route group. adminGuards are passed to
// SetupAdminRoutes.
func SetupRoutes(router fiber.Router, h *Handlers, adminGuards ...fiber.Handler) {
	SetupCatalogRoutes(router, h)
	SetupAdminRoutes(router, h, adminGuards...)
	SetupAuthRoutes(router, h)
}

func SetupCatalogRoutes(router fiber.Router, h *Handlers) {
	catalog := router.Group("/catalog")
	catalog.Get("/categories", h.ListCategories)
	catalog.Get("/products", h.ListProducts)
	catalog.Get("/products/:id", h.GetProduct)
}

// SetupAdminRoutes registers the write routes. Mount them behind the
// application's admin guard.
func SetupAdminRoutes(router fiber.Router, h *Handlers, guards ...fiber.Handler) {
	admin := router.Group("/admin", guards...)
	admin.Post("/categories", h.SaveCategory)
	admin.Put("/categories/:id", h.SaveCategory)
	admin.Post("/products", h.SaveProduct)
	admin.Put("/products/:id", h.SaveProduct)
	admin.Post("/:entity/:id/deactivate", h.Deactivate)
	admin.Post("/:entity/:id/reactivate", h.Reactivate)
}

func SetupAuthRoutes(router fiber.Router, h *Handlers) {
	router.Get("/verify/:email/:key", h.Verify)
	router.Post("/auth/register", h.Register)
	router.Post("/auth/resend", h.Resend)
}
