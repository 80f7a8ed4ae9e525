package store

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-storefront/model"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const entityProduct = "product"

// ProductRepository is the bun backed ProductStore.
type ProductRepository struct {
	db   *bun.DB
	repo repository.Repository[*model.Product]
}

var _ ProductStore = (*ProductRepository)(nil)

func NewProductRepository(db *bun.DB) *ProductRepository {
	return &ProductRepository{
		db: db,
		repo: repository.NewRepository[*model.Product](db, repository.ModelHandlers[*model.Product]{
			NewRecord: func() *model.Product { return &model.Product{} },
			GetID: func(p *model.Product) uuid.UUID {
				if p == nil {
					return uuid.Nil
				}
				return p.ID
			},
			SetID: func(p *model.Product, id uuid.UUID) {
				p.ID = id
			},
			GetIdentifier: func() string { return "slug" },
		}),
	}
}

func withCategory() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Relation("Category")
	}
}

func (r *ProductRepository) FindAll(ctx context.Context) ([]*model.Product, error) {
	records, _, err := r.repo.List(ctx, withCategory(), orderBy("?TableAlias.name ASC"))
	if err != nil {
		return nil, classify(err, entityProduct, "*", "list products")
	}
	return records, nil
}

func (r *ProductRepository) FindByCategory(ctx context.Context, categoryID uuid.UUID) ([]*model.Product, error) {
	byCategory := func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.category_id = ?", categoryID)
	}

	records, _, err := r.repo.List(ctx, withCategory(), byCategory, orderBy("?TableAlias.name ASC"))
	if err != nil {
		return nil, classify(err, entityProduct, categoryID, "list products by category")
	}
	return records, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	records, _, err := r.repo.List(ctx, withCategory(), whereID(id), limit(1))
	if err != nil {
		return nil, classify(err, entityProduct, id, "find product")
	}
	if len(records) == 0 {
		return nil, NotFound(entityProduct, id)
	}
	return records[0], nil
}

// Save inserts the product when its ID is nil, otherwise it rewrites the row.
// The price is rounded to two places first.
func (r *ProductRepository) Save(ctx context.Context, product *model.Product) (*model.Product, error) {
	product.Normalize()

	if product.ID == uuid.Nil {
		product.ID = uuid.New()
		created, err := r.repo.Create(ctx, product)
		if err != nil {
			return nil, classify(err, entityProduct, product.ID, "create product")
		}
		return created, nil
	}

	q := r.db.NewUpdate().Model(product).WherePK()
	if err := execUpdate(ctx, q, entityProduct, product.ID, "update product"); err != nil {
		return nil, err
	}
	return product, nil
}

func (r *ProductRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	q := setActiveQuery(r.db, (*model.Product)(nil), id, active)
	return execUpdate(ctx, q, entityProduct, id, "set product active")
}
