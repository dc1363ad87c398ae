// Package journal records every boundary model run in a SQLite database.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/hyperengineering/fluidbc/internal/types"
)

// DefaultListLimit is used by List when no limit is given.
const DefaultListLimit = 50

// Store is the SQLite-backed run journal.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal at path, applies pragmas and runs
// migrations. ":memory:" opens a private in-memory journal.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); path != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

func dsn(path string) string {
	q := make(url.Values)
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	if path == ":memory:" {
		return "file::memory:?" + q.Encode()
	}
	return "file:" + path + "?" + q.Encode()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a run and returns it with its ID and creation time set.
func (s *Store) Record(ctx context.Context, run types.RunRecord) (types.RunRecord, error) {
	if !run.Dimension.Valid() || strings.TrimSpace(run.Model) == "" {
		return types.RunRecord{}, fmt.Errorf("%w: dimension %d, model %q", ErrInvalidRun, run.Dimension, run.Model)
	}

	run.ID = ulid.Make().String()
	run.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, dimension, model, parameters, segments, points, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, int(run.Dimension), run.Model, run.Parameters, run.Segments, run.Points, run.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return types.RunRecord{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Get returns the run with the given ID.
func (s *Store) Get(ctx context.Context, id string) (types.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, dimension, model, parameters, segments, points, created_at
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.RunRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// List returns the most recent runs, newest first. A limit of zero means
// DefaultListLimit.
func (s *Store) List(ctx context.Context, limit int) ([]types.RunRecord, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	if limit == 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dimension, model, parameters, segments, points, created_at
		FROM runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []types.RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Count returns the number of recorded runs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (types.RunRecord, error) {
	var (
		run       types.RunRecord
		dim       int
		createdAt string
	)
	if err := sc.Scan(&run.ID, &dim, &run.Model, &run.Parameters, &run.Segments, &run.Points, &createdAt); err != nil {
		return types.RunRecord{}, err
	}
	run.Dimension = types.Dimension(dim)

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return types.RunRecord{}, fmt.Errorf("parse created_at of run %s: %w", run.ID, err)
	}
	run.CreatedAt = t
	return run, nil
}
