// Package migrations embeds the pfwatch schema and applies it with goose.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// FS contains the embedded SQL migration files.
//
//go:embed *.sql
var FS embed.FS

// Dialect is the goose dialect for the modernc sqlite driver.
const Dialect = "sqlite3"

// Prepare points goose at the embedded files.
func Prepare() error {
	goose.SetBaseFS(FS)
	if err := goose.SetDialect(Dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return nil
}

// Run applies all pending migrations and returns the resulting schema version.
func Run(db *sql.DB) (int64, error) {
	if err := Prepare(); err != nil {
		return 0, err
	}
	if err := goose.Up(db, "."); err != nil {
		return 0, fmt.Errorf("run migrations: %w", err)
	}
	v, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}
