package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/labbrowse/internal/pipeline"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore records load runs in a SQLite database. It implements pipeline.Recorder.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ pipeline.Recorder = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new, unopened store.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens a connection to the SQLite database, creating parent directories as
// needed. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:"
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == MemoryPath {
		// each connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// OpenMigrated opens path and applies all migrations.
func OpenMigrated(path string) (*SQLiteStore, error) {
	s := NewSQLiteStore()
	if err := s.Open(path); err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database path given to Open.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func generateID() string {
	return uuid.New().String()
}

// Record stores one finished pipeline run.
func (s *SQLiteStore) Record(ctx context.Context, rec pipeline.RunRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var (
		kind, indep, dep, errMsg sql.NullString
		size                     sql.NullInt64
	)
	if rec.Data != nil {
		kind = sql.NullString{String: rec.Data.Kind.String(), Valid: true}
		size = sql.NullInt64{Int64: int64(rec.Data.Size()), Valid: true}
		indep = sql.NullString{String: strings.Join(rec.Data.Independent, ","), Valid: true}
		dep = sql.NullString{String: strings.Join(rec.Data.Dependent, ","), Valid: true}
	}
	if rec.Err != nil {
		errMsg = sql.NullString{String: rec.Err.Error(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO load_runs
			(id, path, operation, dimension, grid_on_load, started_at, duration_ms, kind, size, independent, dependent, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		generateID(), rec.Path, string(rec.Options.Operation), rec.Options.Dimension, rec.Options.GridOnLoad,
		rec.Started.UTC().UnixNano(), rec.Duration.Milliseconds(), kind, size, indep, dep, errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to record load run: %w", err)
	}
	return nil
}

// Recent returns up to n runs, newest first. n <= 0 returns all runs.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]*LoadRun, error) {
	return s.query(ctx, "", nil, n)
}

// RecentForPath returns up to n runs of one data file, newest first.
func (s *SQLiteStore) RecentForPath(ctx context.Context, path string, n int) ([]*LoadRun, error) {
	return s.query(ctx, "WHERE path = ?", []any{path}, n)
}

func (s *SQLiteStore) query(ctx context.Context, where string, args []any, n int) ([]*LoadRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	q := `SELECT id, path, operation, dimension, grid_on_load, started_at, duration_ms,
			kind, size, independent, dependent, error
		  FROM load_runs ` + where + ` ORDER BY started_at DESC, rowid DESC`
	if n > 0 {
		q += " LIMIT ?"
		args = append(args, n)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query load runs: %w", err)
	}
	defer rows.Close()

	var runs []*LoadRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate load runs: %w", err)
	}
	return runs, nil
}

func scanRun(rows *sql.Rows) (*LoadRun, error) {
	var (
		run                      LoadRun
		started, durMs           int64
		kind, indep, dep, errMsg sql.NullString
		size                     sql.NullInt64
	)
	err := rows.Scan(&run.ID, &run.Path, &run.Operation, &run.Dimension, &run.GridOnLoad,
		&started, &durMs, &kind, &size, &indep, &dep, &errMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to scan load run: %w", err)
	}

	run.StartedAt = time.Unix(0, started).UTC()
	run.Duration = time.Duration(durMs) * time.Millisecond
	run.Kind = kind.String
	run.Size = int(size.Int64)
	run.Independent = splitNames(indep)
	run.Dependent = splitNames(dep)
	run.Error = errMsg.String
	return &run, nil
}

func splitNames(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return strings.Split(ns.String, ",")
}

// Prune deletes runs that started before cutoff and returns how many were removed.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM load_runs WHERE started_at < ?`, cutoff.UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune load runs: %w", err)
	}
	return res.RowsAffected()
}
