// Package sqlitestore implements store.RecordStore on an embedded SQLite
// database. Records are kept as JSON documents in a single table keyed by
// (collection, id); the schema is managed by embedded migrations.
package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fjacquet/finance-ledger/internal/logging"
	"fjacquet/finance-ledger/internal/store"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store is a SQLite-backed record store. It implements store.Incrementer by
// running the read-add-write inside one SQL transaction.
type Store struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
}

// Open opens (or creates) the database at path and applies migrations.
// Use ":memory:" for a throwaway database.
func Open(path string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	if path == ":memory:" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	// a single connection serialises writers and keeps :memory: databases alive
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("SQLite record store ready", logging.F("path", path))
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

func runMigrations(db *sql.DB, logger logging.Logger) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("could not load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migration instance creation failed: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("No new database migrations to apply")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Info("Database migrations applied")
	return nil
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func decodeBody(body string) (store.Record, error) {
	var rec store.Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("corrupt record body: %w", err)
	}
	return rec, nil
}

func (s *Store) FetchOne(ctx context.Context, collection, id string) (store.Record, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM records WHERE collection = ? AND id = ?`, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", collection, id, err)
	}
	return decodeBody(body)
}

func (s *Store) Insert(ctx context.Context, collection string, rec store.Record) (string, error) {
	out, id := store.PrepareInsert(rec, s.now())
	body, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode %s record: %w", collection, err)
	}

	stamp := out["created_at"]
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO records (collection, id, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (collection, id) DO NOTHING`,
		collection, id, string(body), stamp, stamp)
	if err != nil {
		return "", fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", fmt.Errorf("%s/%s: %w", collection, id, store.ErrDuplicate)
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields store.Record) error {
	return s.modify(ctx, collection, id, func(rec store.Record) error {
		store.ApplyUpdate(rec, fields, s.now())
		return nil
	})
}

// Increment adds delta to a decimal field inside a single SQL transaction.
func (s *Store) Increment(ctx context.Context, collection, id, field string, delta decimal.Decimal) (decimal.Decimal, error) {
	var next decimal.Decimal
	err := s.modify(ctx, collection, id, func(rec store.Record) error {
		var err error
		next, err = store.AddToField(rec, field, delta)
		if err == nil {
			rec["updated_at"] = s.stamp()
		}
		return err
	})
	return next, err
}

// modify runs read-change-write for one record inside a transaction.
func (s *Store) modify(ctx context.Context, collection, id string, change func(store.Record) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var body string
	err = tx.QueryRowContext(ctx,
		`SELECT body FROM records WHERE collection = ? AND id = ?`, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("fetch %s/%s: %w", collection, id, err)
	}

	rec, err := decodeBody(body)
	if err != nil {
		return err
	}
	if err := change(rec); err != nil {
		return err
	}
	now, _ := rec["updated_at"].(string)

	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET body = ?, updated_at = ? WHERE collection = ? AND id = ?`,
		string(encoded), now, collection, id); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return tx.Commit()
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	return nil
}

// List scans the collection in insertion order and applies the filter with
// store.Record.Matches so every backend agrees on filter semantics.
func (s *Store) List(ctx context.Context, collection string, filter store.Filter) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM records WHERE collection = ? ORDER BY seq`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close rows")
		}
	}()

	var out []store.Record
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		rec, err := decodeBody(body)
		if err != nil {
			return nil, err
		}
		if rec.Matches(filter) {
			out = append(out, rec)
		}
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
