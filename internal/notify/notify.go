// Package notify implements the optional completion notification described
// in SPEC_FULL's DOMAIN STACK: one message per saved artifact and one on
// run completion, for a downstream analysis pipeline. A no-op Notifier is
// the default; internal/notify/pubsub.go is the wired alternative.
package notify

import "context"

// ArtifactEvent is published once per saved artifact.
type ArtifactEvent struct {
	RunID     string `json:"run_id"`
	Kind      string `json:"kind"`
	SourceURL string `json:"source_url"`
	Path      string `json:"path"`
	SHA256    string `json:"sha256"`
}

// CompletionEvent is published once, when the run reaches DONE.
type CompletionEvent struct {
	RunID      string `json:"run_id"`
	Target     string `json:"target"`
	Pages      int    `json:"pages"`
	JS         int    `json:"js"`
	API        int    `json:"api"`
	StopReason string `json:"stop_reason"`
}

// Notifier is the completion notification contract. Calls may block until
// delivery is confirmed: PubSub waits for the server to acknowledge each
// publish before returning, while Noop returns at once.
type Notifier interface {
	NotifyArtifact(ctx context.Context, evt ArtifactEvent) error
	NotifyCompletion(ctx context.Context, evt CompletionEvent) error
	Close() error
}
