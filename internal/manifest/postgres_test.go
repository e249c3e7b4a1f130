package manifest

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestPostgresBackendFlushUpsertsRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	backend := NewPostgresBackendWithPool(mock, "run-1")

	now := time.Unix(1700000000, 0).UTC()
	snap := Snapshot{
		Files: []ArtifactRecord{
			{Kind: "html", SourceURL: "https://example.com/", Path: "pages/index.html", SHA256: "abc", Size: 10, Status: 200, Depth: 0, CapturedAt: now},
		},
		Patterns: map[string]PatternStat{"/product/:id": {Count: 3, SamplesSaved: 2, Skipped: 1}},
		Errors:   []ErrorCount{{Kind: "fetch_timeout", Count: 1}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO manifest_artifacts").
		WithArgs("run-1", "html", "https://example.com/", "pages/index.html", "abc", int64(10), 200, 0, now, false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO manifest_patterns").
		WithArgs("run-1", "/product/:id", 3, 2, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO manifest_errors").
		WithArgs("run-1", "fetch_timeout", 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, backend.Flush(context.Background(), snap))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendLoadReturnsFalseWhenEmpty(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	backend := NewPostgresBackendWithPool(mock, "run-1")

	mock.ExpectQuery("SELECT kind, source_url, path, sha256, size, status, depth, captured_at, redacted").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"kind", "source_url", "path", "sha256", "size", "status", "depth", "captured_at", "redacted"}))

	snap, found, err := backend.Load(context.Background())
	require.NoError(t, err)
	require.False(t, found)
	require.Empty(t, snap.Files)
	require.NoError(t, mock.ExpectationsWereMet())
}
