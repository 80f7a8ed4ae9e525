package store

import (
	"context"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-storefront/model"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const entityUser = "user"

// UserRepository is the bun backed UserStore.
type UserRepository struct {
	db   *bun.DB
	repo repository.Repository[*model.User]
}

var _ UserStore = (*UserRepository)(nil)

func NewUserRepository(db *bun.DB) *UserRepository {
	return &UserRepository{
		db: db,
		repo: repository.NewRepository[*model.User](db, repository.ModelHandlers[*model.User]{
			NewRecord: func() *model.User { return &model.User{} },
			GetID: func(u *model.User) uuid.UUID {
				if u == nil {
					return uuid.Nil
				}
				return u.ID
			},
			SetID: func(u *model.User, id uuid.UUID) {
				u.ID = id
			},
			GetIdentifier: func() string { return "email" },
		}),
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	records, _, err := r.repo.List(ctx, whereID(id), limit(1))
	if err != nil {
		return nil, classify(err, entityUser, id, "find user")
	}
	if len(records) == 0 {
		return nil, NotFound(entityUser, id)
	}
	return records[0], nil
}

// FindByEmail matches the address case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.TrimSpace(email)
	byEmail := func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("lower(?TableAlias.email) = lower(?)", email)
	}

	records, _, err := r.repo.List(ctx, byEmail, limit(1))
	if err != nil {
		return nil, classify(err, entityUser, email, "find user by email")
	}
	if len(records) == 0 {
		return nil, NotFound(entityUser, email)
	}
	return records[0], nil
}

// Save inserts the user when its ID is nil, otherwise it rewrites the row.
func (r *UserRepository) Save(ctx context.Context, user *model.User) (*model.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
		created, err := r.repo.Create(ctx, user)
		if err != nil {
			return nil, classify(err, entityUser, user.ID, "create user")
		}
		return created, nil
	}

	q := r.db.NewUpdate().Model(user).WherePK()
	if err := execUpdate(ctx, q, entityUser, user.ID, "update user"); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	q := setActiveQuery(r.db, (*model.User)(nil), id, active)
	return execUpdate(ctx, q, entityUser, id, "set user active")
}

func (r *UserRepository) ConsumeActivation(ctx context.Context, id uuid.UUID, key string) error {
	return execUpdate(ctx, consumeActivationQuery(r.db, id, key), entityUser, id, "consume activation")
}

func consumeActivationQuery(db bun.IDB, id uuid.UUID, key string) *bun.UpdateQuery {
	return db.NewUpdate().
		Model((*model.User)(nil)).
		Set("active = ?", true).
		Set("activation_key = ?", "").
		Set("activation_key_expires = NULL").
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.activation_key = ?", key).
		Where("?TableAlias.activation_key <> ''")
}
