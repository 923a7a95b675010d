package resultstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"feedcurator/internal/config"
	"feedcurator/internal/feed"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version. Bump it with schema.sql.
const schemaVersion = 1

// ErrSchemaMismatch reports a database created by another schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const timeLayout = time.RFC3339Nano

// Record is one persisted grouping.
type Record struct {
	Fingerprint string
	Groups      []feed.Group
	ItemCount   int
	Source      string
	Model       string
	CreatedAt   time.Time
	Hits        int
}

// Store manages curated result persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the result database under the state dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return OpenPath(cfg.ResultStorePath())
}

// OpenPath initializes or connects to the database at path.
func OpenPath(path string) (*Store, error) {
	// Pragmas in the DSN apply to every pooled connection, not just the first.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	store := &Store{db: db, path: path, now: time.Now}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database handle. Safe on a nil store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// migrate creates the schema in an empty database and refuses to touch one
// written by a different schema version. The version lives in user_version.
func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	switch version {
	case schemaVersion:
		return nil
	case 0:
	default:
		return fmt.Errorf("%w: %s has version %d, want %d (run 'feedcurator cache clear')",
			ErrSchemaMismatch, s.path, version, schemaVersion)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return tx.Commit()
}

// Save inserts or replaces the record for its fingerprint. A zero
// CreatedAt is set to the current time.
func (s *Store) Save(ctx context.Context, rec Record) error {
	rec.Fingerprint = strings.TrimSpace(rec.Fingerprint)
	if rec.Fingerprint == "" {
		return errors.New("fingerprint cannot be empty")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	if rec.ItemCount == 0 {
		rec.ItemCount = feed.ItemCount(rec.Groups)
	}
	groups := rec.Groups
	if groups == nil {
		groups = []feed.Group{}
	}
	encoded, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("encode groups: %w", err)
	}
	_, err = s.exec(ctx, `
INSERT INTO curated_results (fingerprint, groups_json, item_count, source, model, created_at, hits)
VALUES (?, ?, ?, ?, ?, ?, 0)
ON CONFLICT(fingerprint) DO UPDATE SET
    groups_json = excluded.groups_json,
    item_count  = excluded.item_count,
    source      = excluded.source,
    model       = excluded.model,
    created_at  = excluded.created_at`,
		rec.Fingerprint, string(encoded), rec.ItemCount, rec.Source, rec.Model,
		rec.CreatedAt.UTC().Format(timeLayout))
	return err
}

// Get returns the record for fingerprint, or nil when none exists. Records
// older than maxAge are treated as absent when maxAge > 0.
func (s *Store) Get(ctx context.Context, fingerprint string, maxAge time.Duration) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT fingerprint, groups_json, item_count, source, model, created_at, hits
FROM curated_results WHERE fingerprint = ?`, fingerprint)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if maxAge > 0 && s.now().Sub(rec.CreatedAt) > maxAge {
		return nil, nil
	}
	return rec, nil
}

// MarkHit increments the hit counter for fingerprint.
func (s *Store) MarkHit(ctx context.Context, fingerprint string) error {
	_, err := s.exec(ctx, "UPDATE curated_results SET hits = hits + 1 WHERE fingerprint = ?", fingerprint)
	return err
}

// List returns up to limit records, newest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := `
SELECT fingerprint, groups_json, item_count, source, model, created_at, hits
FROM curated_results ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM curated_results").Scan(&count); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return count, nil
}

// Prune deletes records created before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.exec(ctx, "DELETE FROM curated_results WHERE created_at < ?", cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune results: %w", err)
	}
	return n, nil
}

// Clear deletes every record and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	n, err := s.exec(ctx, "DELETE FROM curated_results")
	if err != nil {
		return 0, fmt.Errorf("clear results: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec        Record
		groupsJSON string
		createdAt  string
	)
	if err := row.Scan(&rec.Fingerprint, &groupsJSON, &rec.ItemCount, &rec.Source, &rec.Model, &createdAt, &rec.Hits); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan result: %w", err)
	}
	if err := json.Unmarshal([]byte(groupsJSON), &rec.Groups); err != nil {
		return nil, fmt.Errorf("decode groups for %s: %w", rec.Fingerprint, err)
	}
	parsed, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for %s: %w", rec.Fingerprint, err)
	}
	rec.CreatedAt = parsed
	return &rec, nil
}
