package journal

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (

	// Location that disables the journal.
	Off = "off"

	// Number of entries returned by [Store.Recent] when no limit is given.
	DefaultLimit = 20
)

// One finished run.
type Entry struct {
	ID             string
	Operation      string // "deploy" or "publish".
	Project        string
	Stack          string
	Engine         string
	Status         string // "Success" or "Failed".
	FailedStage    string // "Config", "Infra" or "Publish"; empty on success.
	ResourceID     string
	Endpoint       string
	ErrorDetail    string
	ArtifactDigest string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Duration of the run.
func (e Entry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// Run history storage.
type Store interface {

	// Appends a finished run.
	Append(ctx context.Context, e Entry) error

	// Returns up to limit runs of the (project, stack) identity, newest first.
	Recent(ctx context.Context, project, stack string, limit int) ([]Entry, error)

	// Releases the underlying connection.
	Close() error
}

// Opens the store named by location.
//
// "off" (or an empty string) returns [Discard]. A postgres:// or
// postgresql:// URL connects to Postgres. Anything else is treated as a
// SQLite path, created along with its directory if missing.
func Open(ctx context.Context, location string) (Store, error) {
	loc := strings.TrimSpace(location)

	switch {
	case loc == "" || strings.EqualFold(loc, Off):
		return Discard{}, nil
	case strings.HasPrefix(loc, "postgres://"), strings.HasPrefix(loc, "postgresql://"):
		pg, err := ConnectPostgres(ctx, loc)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		db, err := OpenSQLite(loc)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

// A store that keeps nothing.
type Discard struct{}

func (Discard) Append(context.Context, Entry) error { return nil }

func (Discard) Recent(context.Context, string, string, int) ([]Entry, error) { return nil, nil }

func (Discard) Close() error { return nil }

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

func wrap(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrJournal, op, err)
}
