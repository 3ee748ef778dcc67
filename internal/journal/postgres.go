package journal

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS siteship_runs (
    id              TEXT PRIMARY KEY,
    operation       TEXT NOT NULL,
    project         TEXT NOT NULL,
    stack           TEXT NOT NULL,
    engine          TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL,
    failed_stage    TEXT NOT NULL DEFAULT '',
    resource_id     TEXT NOT NULL DEFAULT '',
    endpoint        TEXT NOT NULL DEFAULT '',
    error_detail    TEXT NOT NULL DEFAULT '',
    artifact_digest TEXT NOT NULL DEFAULT '',
    started_at      TIMESTAMPTZ NOT NULL,
    finished_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS siteship_runs_identity ON siteship_runs (project, stack, started_at DESC);
`

// Journal shared through a Postgres database.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connects to the Postgres database at url and ensures the schema exists.
func ConnectPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, wrap("connect postgres", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrap("ping postgres", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, wrap("create schema", err)
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Append(ctx context.Context, e Entry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO siteship_runs (id, operation, project, stack, engine, status, failed_stage,
		                            resource_id, endpoint, error_detail, artifact_digest, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.Operation, e.Project, e.Stack, e.Engine, e.Status, e.FailedStage,
		e.ResourceID, e.Endpoint, e.ErrorDetail, e.ArtifactDigest, e.StartedAt, e.FinishedAt,
	)
	if err != nil {
		return wrap("append run", err)
	}
	return nil
}

func (s *Postgres) Recent(ctx context.Context, project, stack string, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, operation, project, stack, engine, status, failed_stage,
		        resource_id, endpoint, error_detail, artifact_digest, started_at, finished_at
		 FROM siteship_runs WHERE project = $1 AND stack = $2
		 ORDER BY started_at DESC LIMIT $3`,
		project, stack, limitOrDefault(limit),
	)
	if err != nil {
		return nil, wrap("list runs", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.ID, &e.Operation, &e.Project, &e.Stack, &e.Engine, &e.Status, &e.FailedStage,
			&e.ResourceID, &e.Endpoint, &e.ErrorDetail, &e.ArtifactDigest, &e.StartedAt, &e.FinishedAt)
		return e, err
	})
	if err != nil {
		return nil, wrap("scan run", err)
	}
	return entries, nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
