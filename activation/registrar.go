package activation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-storefront/model"
	"github.com/goliatone/go-storefront/store"
)

const (
	TextCodeMailFailed = "VERIFICATION_MAIL_FAILED"
	TextCodeNotPending = "NOT_PENDING"
)

// Config holds the registration settings.
type Config struct {
	// TTL is the activation window. Zero uses DefaultTTL.
	TTL time.Duration `yaml:"ttl"`
	// BaseURL prefixes verification links.
	BaseURL string `yaml:"base_url"`
}

// RegisterInput is a registration form.
type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
	Avatar    string `json:"avatar"`
}

func (in RegisterInput) Validate() error {
	if err := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&in,
			validation.Field(&in.Username, validation.Required, validation.Length(1, 150)),
			validation.Field(&in.Email, validation.Required, is.EmailFormat),
			validation.Field(&in.Password, validation.Required, validation.Length(8, 72)),
			validation.Field(&in.Age, validation.Min(0), validation.Max(150)),
		)
	}, "invalid registration"); err != nil {
		return err
	}
	return nil
}

// Registrar creates pending users and mails their verification link.
type Registrar struct {
	users   store.UserStore
	hasher  PasswordHasher
	mailer  Mailer
	issuer  *Issuer
	baseURL string
	logger  *slog.Logger
}

func NewRegistrar(users store.UserStore, hasher PasswordHasher, mailer Mailer, cfg Config, opts ...Option) *Registrar {
	s := newSettings(opts)
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	logger := s.logger.With("component", "registration")
	if mailer == nil {
		mailer = NewLogMailer(s.logger)
	}
	return &Registrar{
		users:   users,
		hasher:  hasher,
		mailer:  mailer,
		issuer:  NewIssuer(cfg.TTL, s.now),
		baseURL: cfg.BaseURL,
		logger:  logger,
	}
}

// Register saves a pending user and sends the verification mail. When only
// the mail fails, the saved user is returned together with the error.
func (r *Registrar) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := r.hasher.Hash(in.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	age := in.Age
	if age == 0 {
		age = model.DefaultAge
	}
	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Age:          age,
		Avatar:       in.Avatar,
	}
	r.issuer.Pending(user)

	if err := user.Validate(); err != nil {
		return nil, err
	}

	saved, err := r.users.Save(ctx, user)
	if err != nil {
		return nil, err
	}
	r.logger.InfoContext(ctx, "user registered", "user_id", saved.ID.String())

	return saved, r.send(ctx, saved)
}

// Resend issues a new key for a user still waiting for activation and mails
// it.
func (r *Registrar) Resend(ctx context.Context, email string) (*model.User, error) {
	user, err := r.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if !user.Pending() {
		return nil, goerrors.New("user is not waiting for activation", goerrors.CategoryConflict).
			WithCode(goerrors.CodeConflict).
			WithTextCode(TextCodeNotPending)
	}

	r.issuer.Pending(user)
	saved, err := r.users.Save(ctx, user)
	if err != nil {
		return nil, err
	}
	return saved, r.send(ctx, saved)
}

// Addresses are stored lower case so a unique index on lower(email) holds.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *Registrar) send(ctx context.Context, user *model.User) error {
	msg := verificationMessage(r.baseURL, user.Username, user.Email, user.ActivationKey)
	if err := r.mailer.Send(ctx, msg); err != nil {
		r.logger.WarnContext(ctx, "verification mail failed", "user_id", user.ID.String(), "error", err)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send verification mail").
			WithTextCode(TextCodeMailFailed).
			WithMetadata(map[string]any{"user_id": user.ID.String()})
	}
	return nil
}
