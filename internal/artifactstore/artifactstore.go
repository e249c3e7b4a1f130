// Package artifactstore adapts the deterministic path derivation in
// internal/storage to pluggable write backends, per spec §4.11's note that
// Storage owns "where" while the write itself can target local disk or a
// remote object store. Grounded on the teacher's internal/storage/gcs
// package, generalized behind a Store interface so the orchestrator does
// not need to know which backend is active.
package artifactstore

import (
	"context"

	"github.com/corvid-labs/reconcrawl/internal/storage"
)

// Store persists an artifact already written to the local Storage root and
// reports back the location a consumer should record (a local path or a
// remote URI).
type Store interface {
	// Put mirrors relPath (already written under the local storage root by
	// internal/storage.Store) to the backend, returning the location to
	// record in the manifest.
	Put(ctx context.Context, relPath string, contentType string, data []byte) (string, error)
}

// ContentTypeFor returns a best-effort content type for the given artifact
// kind, used when mirroring to a backend that wants one (GCS); local
// storage ignores it since the filesystem has no such concept.
func ContentTypeFor(kind storage.Kind) string {
	switch kind {
	case storage.KindHTML:
		return "text/html; charset=utf-8"
	case storage.KindJS:
		return "application/javascript"
	case storage.KindAPI:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
