package manifest

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxPool is the subset of pgxpool.Pool's API PostgresBackend needs,
// narrowed to an interface so tests can substitute pgxmock's mocked pool
// (see NewPostgresBackendWithPool) instead of a live database.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresBackend is an optional alternate backend for the Manifest sink
// (spec §4.12) that upserts artifact rows and family pattern stats into
// Postgres instead of writing manifest.json, for operators who want
// queryable crawl history across runs. Grounded on the teacher's
// internal/storage/postgres/progress_store.go — same pgxpool-driven
// upsert-with-fallback-insert shape, retargeted from job/site stats to
// crawl artifacts.
type PostgresBackend struct {
	pool  pgxPool
	runID string
}

// NewPostgresBackend opens a connection pool against dsn, tagging every
// row it writes with runID so multiple runs can share one database.
func NewPostgresBackend(ctx context.Context, dsn, runID string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create manifest connection pool: %w", err)
	}
	return &PostgresBackend{pool: pool, runID: runID}, nil
}

// NewPostgresBackendWithPool builds a PostgresBackend against an
// already-open pool, letting tests inject a pgxmock.PgxPoolIface in place
// of a live database connection.
func NewPostgresBackendWithPool(pool pgxPool, runID string) *PostgresBackend {
	return &PostgresBackend{pool: pool, runID: runID}
}

// Close releases the underlying connection pool.
func (b *PostgresBackend) Close() {
	b.pool.Close()
}

// Flush upserts every artifact record and pattern stat in snap. Artifact
// rows are keyed by (run_id, sha256) so a re-flush of an unchanged file
// list is a no-op; pattern rows are keyed by (run_id, family_key) and
// overwritten with the latest counts on every flush.
func (b *PostgresBackend) Flush(ctx context.Context, snap Snapshot) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin manifest flush tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op once committed

	for _, f := range snap.Files {
		_, err := tx.Exec(ctx, `
			INSERT INTO manifest_artifacts
				(run_id, kind, source_url, path, sha256, size, status, depth, captured_at, redacted)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (run_id, sha256) DO NOTHING;
		`, b.runID, f.Kind, f.SourceURL, f.Path, f.SHA256, f.Size, f.Status, f.Depth, f.CapturedAt, f.Redacted)
		if err != nil {
			return fmt.Errorf("upsert artifact %s: %w", f.Path, err)
		}
	}

	for key, stat := range snap.Patterns {
		_, err := tx.Exec(ctx, `
			INSERT INTO manifest_patterns (run_id, family_key, count, samples_saved, skipped)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (run_id, family_key) DO UPDATE
			SET count = EXCLUDED.count,
				samples_saved = EXCLUDED.samples_saved,
				skipped = EXCLUDED.skipped;
		`, b.runID, key, stat.Count, stat.SamplesSaved, stat.Skipped)
		if err != nil {
			return fmt.Errorf("upsert pattern %s: %w", key, err)
		}
	}

	for _, e := range snap.Errors {
		_, err := tx.Exec(ctx, `
			INSERT INTO manifest_errors (run_id, kind, count)
			VALUES ($1,$2,$3)
			ON CONFLICT (run_id, kind) DO UPDATE SET count = EXCLUDED.count;
		`, b.runID, e.Kind, e.Count)
		if err != nil {
			return fmt.Errorf("upsert error count %s: %w", e.Kind, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit manifest flush tx: %w", err)
	}
	return nil
}

// Load reads back every artifact row for this run, for rebuilding the
// dedup seen-set at startup (spec §4.13). Patterns and errors are not
// reloaded — they are re-derived as the resumed run progresses.
func (b *PostgresBackend) Load(ctx context.Context) (Snapshot, bool, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT kind, source_url, path, sha256, size, status, depth, captured_at, redacted
		FROM manifest_artifacts WHERE run_id = $1;
	`, b.runID)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("query manifest artifacts: %w", err)
	}
	defer rows.Close()

	var files []ArtifactRecord
	for rows.Next() {
		var f ArtifactRecord
		if err := rows.Scan(&f.Kind, &f.SourceURL, &f.Path, &f.SHA256, &f.Size, &f.Status, &f.Depth, &f.CapturedAt, &f.Redacted); err != nil {
			return Snapshot{}, false, fmt.Errorf("scan manifest artifact row: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, false, fmt.Errorf("iterate manifest artifact rows: %w", err)
	}
	if len(files) == 0 {
		return Snapshot{}, false, nil
	}
	return Snapshot{Files: files}, true, nil
}
