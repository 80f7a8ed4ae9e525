package httpapi

import (
	"context"
	"log/slog"
	"net/url"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-storefront/activation"
	"github.com/goliatone/go-storefront/catalog"
	"github.com/goliatone/go-storefront/model"
	"github.com/goliatone/go-storefront/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Catalog is the catalog surface served over HTTP.
type Catalog interface {
	AllCategories(ctx context.Context) ([]*model.Category, error)
	AllProducts(ctx context.Context) ([]*model.Product, error)
	ProductsByCategory(ctx context.Context, categoryID uuid.UUID) ([]*model.Product, error)
	Product(ctx context.Context, id uuid.UUID) (*model.Product, error)
	SaveCategory(ctx context.Context, category *model.Category) (*model.Category, error)
	SaveProduct(ctx context.Context, product *model.Product) (*model.Product, error)
}

// Lifecycle flips the active flag of an entity.
type Lifecycle interface {
	Deactivate(ctx context.Context, entityType model.EntityType, id uuid.UUID) error
	Reactivate(ctx context.Context, entityType model.EntityType, id uuid.UUID) error
}

type Verifier interface {
	Verify(ctx context.Context, email, token string) activation.Result
}

type Registrar interface {
	Register(ctx context.Context, in activation.RegisterInput) (*model.User, error)
	Resend(ctx context.Context, email string) (*model.User, error)
}

// Handlers adapts the storefront core to fiber.
type Handlers struct {
	catalog   Catalog
	lifecycle Lifecycle
	verifier  Verifier
	registrar Registrar
	logger    *slog.Logger
}

func NewHandlers(cat Catalog, lc Lifecycle, verifier Verifier, registrar Registrar, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{
		catalog:   cat,
		lifecycle: lc,
		verifier:  verifier,
		registrar: registrar,
		logger:    log.With("component", "httpapi"),
	}
}

func (h *Handlers) log(ctx context.Context) *slog.Logger {
	return logger.WithRequestID(ctx, h.logger)
}

// ListCategories returns every category, active or not.
func (h *Handlers) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.AllCategories(c.UserContext())
	if err != nil {
		return ErrorFromCore(c, err)
	}
	return SuccessResponse(c, categories)
}

// ListProducts returns every product, or the products of ?category=<id>.
func (h *Handlers) ListProducts(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var (
		products []*model.Product
		err      error
	)
	if raw := c.Query("category"); raw != "" {
		categoryID, perr := uuid.Parse(raw)
		if perr != nil {
			return BadRequestResponse(c, "Invalid category ID")
		}
		products, err = h.catalog.ProductsByCategory(ctx, categoryID)
	} else {
		products, err = h.catalog.AllProducts(ctx)
	}
	if err != nil {
		return ErrorFromCore(c, err)
	}
	return SuccessResponse(c, products)
}

func (h *Handlers) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid product ID")
	}

	product, err := h.catalog.Product(c.UserContext(), id)
	if err != nil {
		return ErrorFromCore(c, err)
	}
	return SuccessResponse(c, product)
}

type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Slug        string `json:"slug"`
	Active      *bool  `json:"active"`
}

type ProductRequest struct {
	Name        string          `json:"name"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Slug        string          `json:"slug"`
	CategoryID  uuid.UUID       `json:"category_id"`
	Active      *bool           `json:"active"`
}

func activeOrDefault(active *bool) bool {
	return active == nil || *active
}

// SaveCategory creates a category (POST) or replaces one (PUT /:id).
func (h *Handlers) SaveCategory(c *fiber.Ctx) error {
	var req CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequestResponse(c, "Invalid request body")
	}

	category := &model.Category{
		Name:        req.Name,
		Description: req.Description,
		Slug:        req.Slug,
		Active:      activeOrDefault(req.Active),
	}
	if raw := c.Params("id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return BadRequestResponse(c, "Invalid category ID")
		}
		category.ID = id
	}

	created := category.ID == uuid.Nil
	saved, err := h.catalog.SaveCategory(c.UserContext(), category)
	return h.saved(c, saved, err, created)
}

// SaveProduct creates a product (POST) or replaces one (PUT /:id).
func (h *Handlers) SaveProduct(c *fiber.Ctx) error {
	var req ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequestResponse(c, "Invalid request body")
	}

	product := &model.Product{
		Name:        req.Name,
		Image:       req.Image,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Slug:        req.Slug,
		CategoryID:  req.CategoryID,
		Active:      activeOrDefault(req.Active),
	}
	if raw := c.Params("id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return BadRequestResponse(c, "Invalid product ID")
		}
		product.ID = id
	}

	created := product.ID == uuid.Nil
	saved, err := h.catalog.SaveProduct(c.UserContext(), product)
	return h.saved(c, saved, err, created)
}

// saved answers a catalog write. A failed cache invalidation does not undo
// the write, so the saved record is still returned.
func (h *Handlers) saved(c *fiber.Ctx, record any, err error, created bool) error {
	if err != nil {
		if !isInvalidationError(err) {
			return ErrorFromCore(c, err)
		}
		h.log(c.UserContext()).WarnContext(c.UserContext(), "write saved with stale cache", "error", err)
	}
	if created {
		return CreatedResponse(c, record)
	}
	return SuccessResponse(c, record)
}

func isInvalidationError(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.TextCode == catalog.TextCodeInvalidation
}

// Deactivate soft deletes /admin/:entity/:id.
func (h *Handlers) Deactivate(c *fiber.Ctx) error {
	return h.changeStatus(c, h.lifecycle.Deactivate)
}

// Reactivate restores /admin/:entity/:id.
func (h *Handlers) Reactivate(c *fiber.Ctx) error {
	return h.changeStatus(c, h.lifecycle.Reactivate)
}

func (h *Handlers) changeStatus(c *fiber.Ctx, apply func(context.Context, model.EntityType, uuid.UUID) error) error {
	entityType, err := model.ParseEntityType(c.Params("entity"))
	if err != nil {
		return ErrorFromCore(c, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid ID")
	}

	if err := apply(c.UserContext(), entityType, id); err != nil {
		if isInvalidationError(err) {
			h.log(c.UserContext()).WarnContext(c.UserContext(), "status saved with stale cache", "error", err)
		} else {
			return ErrorFromCore(c, err)
		}
	}
	return SuccessResponse(c, fiber.Map{
		"entity": entityType.String(),
		"id":     id.String(),
	})
}

// Verify consumes the link mailed at registration.
func (h *Handlers) Verify(c *fiber.Ctx) error {
	email, err := url.PathUnescape(c.Params("email"))
	if err != nil {
		return BadRequestResponse(c, "Invalid email")
	}
	key, err := url.PathUnescape(c.Params("key"))
	if err != nil {
		return BadRequestResponse(c, "Invalid key")
	}

	result := h.verifier.Verify(c.UserContext(), email, key)
	if result.Verified {
		return SuccessResponse(c, result)
	}

	status := fiber.StatusBadRequest
	if result.Reason == activation.ReasonStoreError {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(Response{
		Data:  result,
		Error: &ErrorInfo{Code: "ACTIVATION_FAILED", Message: "Activation link is invalid or expired"},
	})
}

func (h *Handlers) Register(c *fiber.Ctx) error {
	var in activation.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return BadRequestResponse(c, "Invalid request body")
	}

	user, err := h.registrar.Register(c.UserContext(), in)
	if err != nil && user == nil {
		return ErrorFromCore(c, err)
	}
	if err != nil {
		h.log(c.UserContext()).WarnContext(c.UserContext(), "user registered without verification mail", "error", err)
	}
	return CreatedResponse(c, user)
}

type ResendRequest struct {
	Email string `json:"email"`
}

func (h *Handlers) Resend(c *fiber.Ctx) error {
	var req ResendRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequestResponse(c, "Invalid request body")
	}

	if _, err := h.registrar.Resend(c.UserContext(), req.Email); err != nil {
		return ErrorFromCore(c, err)
	}
	return SuccessResponse(c, fiber.Map{"email": req.Email})
}
