package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"uniqtext/internal/model"
)

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// RowRepository mirrors appended output rows into Postgres.
type RowRepository struct {
	DB DB
}

const createRowsTable = `
CREATE TABLE IF NOT EXISTS product_rewrites (
	id               UUID PRIMARY KEY,
	source_url       TEXT NOT NULL,
	title            TEXT NOT NULL,
	brand            TEXT NOT NULL,
	country          TEXT NOT NULL,
	article          TEXT NOT NULL,
	meta_title       TEXT NOT NULL,
	keywords         TEXT NOT NULL,
	meta_description TEXT NOT NULL,
	short            TEXT NOT NULL,
	base_desc        TEXT NOT NULL,
	detail_desc      TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertRow = `
INSERT INTO product_rewrites
(id, source_url, title, brand, country, article, meta_title, keywords, meta_description, short, base_desc, detail_desc)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func (r *RowRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.Exec(ctx, createRowsTable)
	return err
}

func (r *RowRepository) Save(ctx context.Context, row model.OutputRow) error {
	_, err := r.DB.Exec(ctx, insertRow, rowArgs(uuid.New(), row)...)
	return err
}

func rowArgs(id uuid.UUID, row model.OutputRow) []any {
	args := []any{id}
	for _, v := range row.Values() {
		// Postgres rejects invalid UTF-8 in TEXT columns
		args = append(args, strings.ToValidUTF8(v, ""))
	}
	return args
}
