package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goliatone/go-storefront/model"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// DatabaseConfig configures the postgres connection.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	PingTimeout     time.Duration `yaml:"ping_timeout"`
}

// Open connects to postgres through pgdriver and returns a bun handle.
func Open(ctx context.Context, cfg DatabaseConfig) (*bun.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store: database dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	db := bun.NewDB(sqldb, pgdialect.New())

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, Unavailable(err, "open")
	}
	return db, nil
}

type schemaQuery interface {
	Exec(ctx context.Context, dest ...any) (sql.Result, error)
}

func schemaQueries(db *bun.DB) []schemaQuery {
	return []schemaQuery{
		db.NewCreateTable().Model((*model.Category)(nil)).IfNotExists(),
		db.NewCreateTable().Model((*model.Product)(nil)).IfNotExists().
			ForeignKey(`("category_id") REFERENCES "categories" ("id") ON DELETE RESTRICT`),
		db.NewCreateIndex().Model((*model.Product)(nil)).IfNotExists().
			Index("products_category_id_idx").Column("category_id"),
		db.NewCreateTable().Model((*model.User)(nil)).IfNotExists(),
		db.NewCreateIndex().Model((*model.User)(nil)).IfNotExists().Unique().
			Index("users_email_lower_idx").ColumnExpr("lower(email)"),
	}
}

// CreateSchema creates the catalog and user tables. It is safe to run twice.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, q := range schemaQueries(db) {
		if _, err := q.Exec(ctx); err != nil {
			return Unavailable(err, "create schema")
		}
	}
	return nil
}

// Stores bundles the bun backed stores.
type Stores struct {
	Categories *CategoryRepository
	Products   *ProductRepository
	Users      *UserRepository
}

// NewStores builds every store over db.
func NewStores(db *bun.DB) Stores {
	return Stores{
		Categories: NewCategoryRepository(db),
		Products:   NewProductRepository(db),
		Users:      NewUserRepository(db),
	}
}

func setActiveQuery(db bun.IDB, table any, id any, active bool) *bun.UpdateQuery {
	return db.NewUpdate().
		Model(table).
		Set("active = ?", active).
		Where("?TableAlias.id = ?", id)
}

// execUpdate runs q and maps zero affected rows to NotFound.
func execUpdate(ctx context.Context, q *bun.UpdateQuery, entity string, id any, op string) error {
	res, err := q.Exec(ctx)
	if err != nil {
		return classify(err, entity, id, op)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Unavailable(err, op)
	}
	if n == 0 {
		return NotFound(entity, id)
	}
	return nil
}
