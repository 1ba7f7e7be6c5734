package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		ddl := `
			CREATE TABLE IF NOT EXISTS books (
				id SERIAL PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				title TEXT NOT NULL,
				author TEXT NOT NULL,
				publisher TEXT,
				cover_image_path TEXT
			)
`
		if db.Dialect().Name() == dialect.SQLite {
			// Tests run against in-memory SQLite, which has its own
			// autoincrement form.
			ddl = `
			CREATE TABLE IF NOT EXISTS books (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				title TEXT NOT NULL,
				author TEXT NOT NULL,
				publisher TEXT,
				cover_image_path TEXT
			)
`
		}
		_, err := db.Exec(ddl)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`DROP TABLE IF EXISTS books`)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
