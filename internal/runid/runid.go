// Package runid generates the UUIDv7 run identifier stamped on every
// progress event and log line for a crawl run, grounded on the teacher's
// internal/id/uuid package.
package runid

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a fresh UUIDv7 run id string.
func New() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id.String(), nil
}
