package artifactstore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/corvid-labs/reconcrawl/internal/storage"
)

// LocalStore is the default Store: the artifact is already sitting on disk
// under the storage root (internal/storage.Store.WriteAtomic wrote it), so
// Put just reports the absolute path back.
type LocalStore struct {
	store *storage.Store
}

// NewLocalStore wraps an existing storage.Store.
func NewLocalStore(store *storage.Store) *LocalStore {
	return &LocalStore{store: store}
}

// Put ignores data and contentType — the file was already written to
// relPath by the caller — and returns its absolute path.
func (l *LocalStore) Put(_ context.Context, relPath string, _ string, _ []byte) (string, error) {
	if !l.store.Exists(relPath) {
		return "", fmt.Errorf("artifact %s not found under storage root", relPath)
	}
	return filepath.Join(l.store.Root, relPath), nil
}
