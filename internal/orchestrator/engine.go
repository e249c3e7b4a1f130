// Package orchestrator implements the supervised loop of spec §4.14: a
// single-threaded SELECT/FETCH/ROUTE/PROCESS state machine tying together
// the Scheduler, Fetcher, Content Router, HTML/JS/API processors, Storage,
// Dedup Index, Manifest & Index Sink, and Checkpoint. Grounded on the
// teacher's crawler_test.go-implied Engine design referenced in
// SPEC_FULL.md — an Engine type wired from small, single-purpose
// collaborators rather than one monolithic Colly callback chain.
package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/corvid-labs/reconcrawl/internal/artifactstore"
	"github.com/corvid-labs/reconcrawl/internal/checkpoint"
	"github.com/corvid-labs/reconcrawl/internal/config"
	"github.com/corvid-labs/reconcrawl/internal/dedup"
	"github.com/corvid-labs/reconcrawl/internal/family"
	"github.com/corvid-labs/reconcrawl/internal/fetch"
	"github.com/corvid-labs/reconcrawl/internal/manifest"
	"github.com/corvid-labs/reconcrawl/internal/notify"
	"github.com/corvid-labs/reconcrawl/internal/process"
	"github.com/corvid-labs/reconcrawl/internal/progress"
	"github.com/corvid-labs/reconcrawl/internal/scheduler"
	"github.com/corvid-labs/reconcrawl/internal/scope"
	"github.com/corvid-labs/reconcrawl/internal/storage"
	"github.com/corvid-labs/reconcrawl/internal/urlkey"
)

// Engine owns every mutable collaborator in the crawl pipeline. Per spec §5,
// all of its state is touched from a single goroutine (the loop driven by
// Run); the Fetcher is the only piece allowed internal concurrency.
type Engine struct {
	cfg    config.Config
	logger *zap.Logger
	runID  string

	sched  *scheduler.Scheduler
	dedup  *dedup.Index
	family *family.Tracker
	guard  *scope.Guard
	urlOpt urlkey.Options

	fetcher *fetch.Fetcher
	html    *process.HTMLProcessor
	js      *process.JSProcessor
	api     *process.APIProcessor

	store      *storage.Store
	artifacts  artifactstore.Store
	manifestS  *manifest.Sink
	manifestB  manifest.Backend
	codex      *manifest.CodexWriter
	checkpoint *checkpoint.Store

	hub      *progress.Hub
	notifier notify.Notifier

	includeExt map[string]bool
	startedAt  time.Time
	lastURL    string

	fetchAttempts int
	fetchErrors   int

	stopReason string
}

// Close flushes the manifest one final time, persists a final checkpoint,
// closes the progress hub, and releases the notifier/codex file handles.
// Callers should invoke it after Run returns, regardless of error.
func (e *Engine) Close(ctx context.Context) error {
	return e.shutdown(ctx)
}
