package journal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Connects to the database named by SITESHIP_TEST_POSTGRES_URL, skipping the
// test when it is unset. Rows written under project are removed on cleanup.
func connectTestPostgres(t *testing.T, project string) *Postgres {
	t.Helper()
	url := os.Getenv("SITESHIP_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("SITESHIP_TEST_POSTGRES_URL not set")
	}

	ctx := context.Background()
	s, err := ConnectPostgres(ctx, url)
	if err != nil {
		t.Fatalf("connect test journal: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, `DELETE FROM siteship_runs WHERE project = $1`, project)
		s.Close()
	})
	return s
}

func TestPostgresAppendAndRecent(t *testing.T) {
	ctx := context.Background()
	project := "siteship-test-" + uuid.NewString()
	s := connectTestPostgres(t, project)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	first := entry(uuid.NewString(), "dev", base)
	first.Project = project
	second := entry(uuid.NewString(), "dev", base.Add(time.Hour))
	second.Project = project
	second.Status = "Failed"
	second.FailedStage = "Publish"
	second.ErrorDetail = `pipeline StepFailed: step "build": npm run build: exit code 1`
	second.ArtifactDigest = "sha256:6c3c624b58dbbcd3c0dd82b4c53f04194d1247c6eebdaab7c610cf7d66709b3b"
	other := entry(uuid.NewString(), "prod", base.Add(2*time.Hour))
	other.Project = project

	for _, e := range []Entry{first, second, other} {
		require.NoError(t, s.Append(ctx, e))
	}

	got, err := s.Recent(ctx, project, "dev", 10)
	require.NoError(t, err)

	// TIMESTAMPTZ comes back in the session time zone.
	if diff := cmp.Diff([]Entry{second, first}, got, cmpopts.EquateApproxTime(0)); diff != "" {
		t.Errorf("Recent mismatch (-want +got):\n%s", diff)
	}
}

func TestPostgresRecentLimit(t *testing.T) {
	ctx := context.Background()
	project := "siteship-test-" + uuid.NewString()
	s := connectTestPostgres(t, project)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	ids := make([]string, 3)
	for i := range ids {
		ids[i] = uuid.NewString()
		e := entry(ids[i], "dev", base.Add(time.Duration(i)*time.Millisecond))
		e.Project = project
		require.NoError(t, s.Append(ctx, e))
	}

	got, err := s.Recent(ctx, project, "dev", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[2], got[0].ID)
	assert.Equal(t, ids[1], got[1].ID)

	all, err := s.Recent(ctx, project, "dev", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPostgresRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	project := "siteship-test-" + uuid.NewString()
	s := connectTestPostgres(t, project)
	e := entry(uuid.NewString(), "dev", time.Now())
	e.Project = project

	require.NoError(t, s.Append(ctx, e))
	assert.ErrorIs(t, s.Append(ctx, e), ErrJournal)
}
