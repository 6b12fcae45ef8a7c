package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"pfwatch/internal/model"
	"pfwatch/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db      *sql.DB
	version int64
}

var _ Storage = (*SQLite)(nil)

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	version, err := migrations.Run(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, version: version}, nil
}

// SchemaVersion reports the migration version the database was opened at.
func (s *SQLite) SchemaVersion() int64 { return s.version }

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// UpsertFilter inserts a filter or replaces the condition and enabled flag of
// the filter with the same name. It populates ID and CreatedAt.
func (s *SQLite) UpsertFilter(ctx context.Context, f *model.FilterDef) error {
	cond, err := json.Marshal(f.Condition)
	if err != nil {
		return fmt.Errorf("encode condition: %w", err)
	}
	now := time.Now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO filters (name, criteria, enabled, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET criteria = excluded.criteria, enabled = excluded.enabled`,
		f.Name, string(cond), boolToInt(f.Enabled), now,
	)
	if err != nil {
		return fmt.Errorf("upsert filter %q: %w", f.Name, err)
	}

	stored, err := s.GetFilter(ctx, f.Name)
	if err != nil {
		return err
	}
	f.ID = stored.ID
	f.CreatedAt = stored.CreatedAt
	return nil
}

// GetFilter returns a filter by name or an error wrapping model.ErrNotFound.
func (s *SQLite) GetFilter(ctx context.Context, name string) (*model.FilterDef, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, criteria, enabled, created_at FROM filters WHERE name = ?`, name,
	)
	f, err := scanFilter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("filter %q: %w", name, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFilters returns every filter in creation order.
func (s *SQLite) ListFilters(ctx context.Context) ([]model.FilterDef, error) {
	return s.queryFilters(ctx,
		`SELECT id, name, criteria, enabled, created_at FROM filters ORDER BY id`)
}

// ListEnabledFilters returns the enabled filters in creation order.
func (s *SQLite) ListEnabledFilters(ctx context.Context) ([]model.FilterDef, error) {
	return s.queryFilters(ctx,
		`SELECT id, name, criteria, enabled, created_at FROM filters WHERE enabled = 1 ORDER BY id`)
}

// SetFilterEnabled toggles a filter by name.
func (s *SQLite) SetFilterEnabled(ctx context.Context, name string, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE filters SET enabled = ? WHERE name = ?`, boolToInt(enabled), name)
	if err != nil {
		return fmt.Errorf("update filter %q: %w", name, err)
	}
	return requireRow(res, fmt.Sprintf("filter %q", name))
}

// DeleteFilter removes a filter by name.
func (s *SQLite) DeleteFilter(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM filters WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete filter %q: %w", name, err)
	}
	return requireRow(res, fmt.Sprintf("filter %q", name))
}

// AddTarget records a watched listing id. Adding an existing id is a no-op.
func (s *SQLite) AddTarget(ctx context.Context, listingID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO targets (listing_id, added_at) VALUES (?, ?)`,
		listingID, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("add target %d: %w", listingID, err)
	}
	return nil
}

// RemoveTarget forgets a watched listing id.
func (s *SQLite) RemoveTarget(ctx context.Context, listingID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM targets WHERE listing_id = ?`, listingID)
	if err != nil {
		return fmt.Errorf("remove target %d: %w", listingID, err)
	}
	return nil
}

// ListTargets returns watched listing ids in the order they were added.
func (s *SQLite) ListTargets(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT listing_id FROM targets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query targets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLite) queryFilters(ctx context.Context, query string) ([]model.FilterDef, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query filters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var filters []model.FilterDef
	for rows.Next() {
		f, err := scanFilter(rows)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, rows.Err()
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanFilter(row scannable) (model.FilterDef, error) {
	var f model.FilterDef
	var cond, createdStr string
	var enabled int
	if err := row.Scan(&f.ID, &f.Name, &cond, &enabled, &createdStr); err != nil {
		return f, fmt.Errorf("scan filter: %w", err)
	}
	if err := json.Unmarshal([]byte(cond), &f.Condition); err != nil {
		return f, fmt.Errorf("decode condition of filter %q: %w", f.Name, err)
	}
	f.Enabled = enabled == 1
	f.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	return f, nil
}
