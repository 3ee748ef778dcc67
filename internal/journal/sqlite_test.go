package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Opens an in-memory journal with all migrations applied, closed when the
// test finishes.
func openTestJournal(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open test journal: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(id, stack string, started time.Time) Entry {
	return Entry{
		ID:         id,
		Operation:  "deploy",
		Project:    "dagger-pulumi-demo",
		Stack:      stack,
		Engine:     "pulumi",
		Status:     "Success",
		ResourceID: "site-bucket-123",
		Endpoint:   "site-bucket-123.s3-website.ap-southeast-1.amazonaws.com",
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
	}
}

func TestSQLiteAppendAndRecent(t *testing.T) {
	ctx := context.Background()
	s := openTestJournal(t)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	first := entry("run-1", "dev", base)
	second := entry("run-2", "dev", base.Add(time.Hour))
	second.Status = "Failed"
	second.FailedStage = "Publish"
	second.ErrorDetail = `pipeline StepFailed: step "build": npm run build: exit code 1`
	second.ArtifactDigest = "sha256:6c3c624b58dbbcd3c0dd82b4c53f04194d1247c6eebdaab7c610cf7d66709b3b"
	other := entry("run-3", "prod", base.Add(2*time.Hour))

	for _, e := range []Entry{first, second, other} {
		require.NoError(t, s.Append(ctx, e))
	}

	got, err := s.Recent(ctx, "dagger-pulumi-demo", "dev", 10)
	require.NoError(t, err)

	if diff := cmp.Diff([]Entry{second, first}, got); diff != "" {
		t.Errorf("Recent mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteRecentLimit(t *testing.T) {
	ctx := context.Background()
	s := openTestJournal(t)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Append(ctx, entry(id, "dev", base.Add(time.Duration(i)*time.Millisecond))))
	}

	got, err := s.Recent(ctx, "dagger-pulumi-demo", "dev", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	all, err := s.Recent(ctx, "dagger-pulumi-demo", "dev", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := openTestJournal(t)
	e := entry("run-1", "dev", time.Now())

	require.NoError(t, s.Append(ctx, e))
	err := s.Append(ctx, e)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrJournal))
}

func TestSQLiteFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening runs no migration twice.
	s, err = OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	for _, loc := range []string{"", "off", "OFF", "  off "} {
		store, err := Open(ctx, loc)
		require.NoError(t, err)
		assert.IsType(t, Discard{}, store, "location %q", loc)
	}

	store, err := Open(ctx, filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &SQLite{}, store)
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	var d Discard
	require.NoError(t, d.Append(ctx, entry("x", "dev", time.Now())))
	got, err := d.Recent(ctx, "p", "s", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEntryDuration(t *testing.T) {
	e := entry("x", "dev", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if got := e.Duration(); got != 90*time.Second {
		t.Fatalf("Duration = %v, want 90s", got)
	}
}
