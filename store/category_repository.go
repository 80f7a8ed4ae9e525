package store

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-storefront/model"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const entityCategory = "category"

// CategoryRepository is the bun backed CategoryStore.
type CategoryRepository struct {
	db   *bun.DB
	repo repository.Repository[*model.Category]
}

var _ CategoryStore = (*CategoryRepository)(nil)

func NewCategoryRepository(db *bun.DB) *CategoryRepository {
	return &CategoryRepository{
		db: db,
		repo: repository.NewRepository[*model.Category](db, repository.ModelHandlers[*model.Category]{
			NewRecord: func() *model.Category { return &model.Category{} },
			GetID: func(c *model.Category) uuid.UUID {
				if c == nil {
					return uuid.Nil
				}
				return c.ID
			},
			SetID: func(c *model.Category, id uuid.UUID) {
				c.ID = id
			},
			GetIdentifier: func() string { return "slug" },
		}),
	}
}

func (r *CategoryRepository) FindAll(ctx context.Context) ([]*model.Category, error) {
	records, _, err := r.repo.List(ctx, orderBy("?TableAlias.name ASC"))
	if err != nil {
		return nil, classify(err, entityCategory, "*", "list categories")
	}
	return records, nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	records, _, err := r.repo.List(ctx, whereID(id), limit(1))
	if err != nil {
		return nil, classify(err, entityCategory, id, "find category")
	}
	if len(records) == 0 {
		return nil, NotFound(entityCategory, id)
	}
	return records[0], nil
}

// Save inserts the category when its ID is nil, otherwise it rewrites the row.
func (r *CategoryRepository) Save(ctx context.Context, category *model.Category) (*model.Category, error) {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
		created, err := r.repo.Create(ctx, category)
		if err != nil {
			return nil, classify(err, entityCategory, category.ID, "create category")
		}
		return created, nil
	}

	q := r.db.NewUpdate().Model(category).WherePK()
	if err := execUpdate(ctx, q, entityCategory, category.ID, "update category"); err != nil {
		return nil, err
	}
	return category, nil
}

func (r *CategoryRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	q := setActiveQuery(r.db, (*model.Category)(nil), id, active)
	return execUpdate(ctx, q, entityCategory, id, "set category active")
}

func whereID(id uuid.UUID) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id = ?", id)
	}
}

func orderBy(order string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr(order)
	}
}

func limit(n int) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Limit(n)
	}
}
