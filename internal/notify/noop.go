package notify

import "context"

// Noop is the default Notifier: every call succeeds without doing anything.
type Noop struct{}

func (Noop) NotifyArtifact(context.Context, ArtifactEvent) error     { return nil }
func (Noop) NotifyCompletion(context.Context, CompletionEvent) error { return nil }
func (Noop) Close() error                                            { return nil }
