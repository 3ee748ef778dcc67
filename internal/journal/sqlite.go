package journal

import (
	"context"
	"database/sql"
	"embed"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/rocksun/siteship/internal/paths"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Fixed-width UTC timestamps, so that text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Journal backed by a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// Opens a SQLite journal at dsn and runs all pending migrations.
//
// Use ":memory:" for an in-memory database. For a file path, the parent
// directory is created if it does not exist.
func OpenSQLite(dsn string) (*SQLite, error) {
	memory := dsn == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(dsn), paths.DefaultDirMode); err != nil {
			return nil, wrap("create directory", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrap("open sqlite", err)
	}

	// Every connection to ":memory:" is a separate database.
	if memory {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, wrap("enable WAL", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, wrap("set busy timeout", err)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, wrap("set goose dialect", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, wrap("run migrations", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Append(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, operation, project, stack, engine, status, failed_stage,
		                   resource_id, endpoint, error_detail, artifact_digest, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Operation, e.Project, e.Stack, e.Engine, e.Status, e.FailedStage,
		e.ResourceID, e.Endpoint, e.ErrorDetail, e.ArtifactDigest,
		formatTime(e.StartedAt), formatTime(e.FinishedAt),
	)
	if err != nil {
		return wrap("append run", err)
	}
	return nil
}

func (s *SQLite) Recent(ctx context.Context, project, stack string, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, operation, project, stack, engine, status, failed_stage,
		        resource_id, endpoint, error_detail, artifact_digest, started_at, finished_at
		 FROM runs WHERE project = ? AND stack = ?
		 ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		project, stack, limitOrDefault(limit),
	)
	if err != nil {
		return nil, wrap("list runs", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var started, finished string
		if err := rows.Scan(&e.ID, &e.Operation, &e.Project, &e.Stack, &e.Engine, &e.Status, &e.FailedStage,
			&e.ResourceID, &e.Endpoint, &e.ErrorDetail, &e.ArtifactDigest, &started, &finished); err != nil {
			return nil, wrap("scan run", err)
		}
		if e.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, wrap("parse started_at", err)
		}
		if e.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, wrap("parse finished_at", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
