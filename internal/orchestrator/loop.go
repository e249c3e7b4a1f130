package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/corvid-labs/reconcrawl/internal/artifactstore"
	"github.com/corvid-labs/reconcrawl/internal/checkpoint"
	"github.com/corvid-labs/reconcrawl/internal/crawlerr"
	"github.com/corvid-labs/reconcrawl/internal/family"
	"github.com/corvid-labs/reconcrawl/internal/fetch"
	"github.com/corvid-labs/reconcrawl/internal/manifest"
	"github.com/corvid-labs/reconcrawl/internal/notify"
	"github.com/corvid-labs/reconcrawl/internal/process"
	"github.com/corvid-labs/reconcrawl/internal/progress"
	"github.com/corvid-labs/reconcrawl/internal/route"
	"github.com/corvid-labs/reconcrawl/internal/scheduler"
	"github.com/corvid-labs/reconcrawl/internal/telemetry"
)

// renderMinHTMLBytes is a single-signal, cut-down version of the teacher's
// multi-signal NeedsJS heuristic (body-length, keyword, and missing-selector
// checks): a page rendering short of this many bytes on the plain HTTP leg
// is assumed to be an unrendered SPA shell and gets one escalated fetch
// through the headless leg.
const renderMinHTMLBytes = 800

// Run drives the spec §4.14 state machine until a stop condition fires or
// ctx is cancelled, then performs the terminal flush/checkpoint/notify
// sequence and returns. It does not release long-lived resources — call
// Close afterward regardless of the returned error.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			e.stopReason = "signal"
			return e.finishRun(ctx)
		default:
		}

		if e.sched.ShouldStop(e.stopMetrics()) {
			e.stopReason = stopReasonFor(e.stopMetrics())
			return e.finishRun(ctx)
		}

		item, ok := e.sched.Dequeue()
		if !ok {
			e.stopReason = "queue_empty"
			return e.finishRun(ctx)
		}
		e.hub.Emit(progress.Event{TS: time.Now().UTC(), Stage: progress.StageDequeue, URL: item.Canonical, URLKey: item.URLKey, Depth: item.Meta.Depth})

		e.fetchAttempts++
		resp, kind, err := e.fetchAndRoute(ctx, item)
		if err != nil {
			e.fetchErrors++
			e.recordFetchError(ctx, item, err)
			if serr := e.saveCheckpoint(item.Canonical); serr != nil {
				e.logger.Warn("checkpoint save failed", zap.Error(serr))
			}
			continue
		}

		e.processFetched(ctx, item, resp, kind)

		if serr := e.saveCheckpoint(item.Canonical); serr != nil {
			e.logger.Warn("checkpoint save failed", zap.Error(serr))
		}
	}
}

func (e *Engine) stopMetrics() scheduler.StopMetrics {
	var errRate float64
	if e.fetchAttempts > 0 {
		errRate = float64(e.fetchErrors) / float64(e.fetchAttempts)
	}
	return scheduler.StopMetrics{
		Counters:     e.sched.Counters(),
		Budgets:      e.sched.Budgets(),
		Elapsed:      time.Since(e.startedAt),
		TimeMax:      e.cfg.Crawl.TimeMax(),
		ErrorRate:    errRate,
		ErrorRateMax: e.cfg.Crawl.ErrorRateMax,
	}
}

// stopReasonFor names which of ShouldStop's conditions actually tripped, for
// the summary/notification/metrics label — ShouldStop itself only reports
// yes/no.
func stopReasonFor(m scheduler.StopMetrics) string {
	switch {
	case m.Budgets.PagesMax > 0 && m.Counters.Pages >= m.Budgets.PagesMax:
		return "pages_max"
	case m.Budgets.JSMax > 0 && m.Counters.JS >= m.Budgets.JSMax:
		return "js_max"
	case m.Budgets.APIMax > 0 && m.Counters.API >= m.Budgets.APIMax:
		return "api_max"
	case m.TimeMax > 0 && m.Elapsed >= m.TimeMax:
		return "time_max"
	case m.ErrorRateMax > 0 && m.ErrorRate >= m.ErrorRateMax:
		return "error_rate"
	default:
		return "queue_empty"
	}
}

// fetchAndRoute performs the FETCH and ROUTE states: a plain fetch, an
// optional escalated headless re-fetch when the page looks like it needs
// rendering, and classification of the result into a processor Kind.
func (e *Engine) fetchAndRoute(ctx context.Context, item scheduler.Item) (*fetch.Response, route.Kind, error) {
	strategy := fetch.Strategy{
		WaitFor:      fetch.WaitFor(e.cfg.Crawl.RenderWaitFor),
		Timeout:      e.cfg.Crawl.Timeout(),
		MaxBodyBytes: e.cfg.Crawl.MaxBodyBytes,
	}
	resp, err := e.fetcher.Fetch(ctx, item.Canonical, strategy)
	if err != nil {
		return nil, "", err
	}

	if e.cfg.Crawl.HeadlessEnabled && strings.Contains(strings.ToLower(resp.ContentType), "text/html") && len(resp.Body) < renderMinHTMLBytes {
		renderStrategy := strategy
		renderStrategy.Render = true
		if rendered, rerr := e.fetcher.Fetch(ctx, item.Canonical, renderStrategy); rerr == nil {
			resp = rendered
		}
	}

	kind := route.Route(resp.ContentType, resp.FinalURL, e.includeExt)
	return resp, kind, nil
}

// processFetched dispatches a routed Response to its processor and hands
// the outcome to registerResult.
func (e *Engine) processFetched(ctx context.Context, item scheduler.Item, resp *fetch.Response, kind route.Kind) {
	body := resp.Body
	if resp.RenderedHTML != "" {
		body = []byte(resp.RenderedHTML)
	}

	var result *process.Result
	var err error
	switch kind {
	case route.KindHTML:
		result, err = e.html.Process(item.Canonical, body, resp.Status, item.Meta.Depth)
	case route.KindJS:
		result, err = e.js.Process(item.Canonical, body, item.Meta.Depth)
	case route.KindAPI:
		validator := resp.Headers.Get("ETag")
		if validator == "" {
			validator = resp.Headers.Get("Last-Modified")
		}
		result, err = e.api.Process(item.Canonical, item.URLKey, body, resp.Status, item.Meta.Depth, validator)
	default:
		e.hub.Emit(progress.Event{TS: time.Now().UTC(), Stage: progress.StageSkip, URL: item.Canonical, URLKey: item.URLKey, Reason: "binary", Depth: item.Meta.Depth})
		return
	}
	if err != nil {
		e.recordProcessError(ctx, item, string(kind), err)
		return
	}
	e.registerResult(ctx, item, string(kind), result)
}

// registerResult implements the PROCESS state's "register artifact(s),
// enqueue discovered" step for every processor Outcome.
func (e *Engine) registerResult(ctx context.Context, item scheduler.Item, kind string, result *process.Result) {
	now := time.Now().UTC()

	switch result.Outcome {
	case process.OutcomeDuplicate:
		e.hub.Emit(progress.Event{TS: now, Stage: progress.StageDuplicate, URL: item.Canonical, URLKey: item.URLKey, Kind: result.DuplicateKind, Depth: item.Meta.Depth})
		return
	case process.OutcomeFamilySkipped:
		e.hub.Emit(progress.Event{TS: now, Stage: progress.StageFamilySkipped, URL: item.Canonical, URLKey: item.URLKey, Depth: item.Meta.Depth})
		return
	}

	artifact := result.Artifact
	data, rerr := e.store.Read(artifact.Path)
	if rerr != nil {
		e.logger.Warn("read artifact for mirroring failed", zap.String("path", artifact.Path), zap.Error(rerr))
	}
	loc, perr := e.artifacts.Put(ctx, artifact.Path, artifactstore.ContentTypeFor(artifact.Kind), data)
	if perr != nil {
		e.logger.Warn("mirror artifact failed", zap.String("path", artifact.Path), zap.Error(perr))
		loc = artifact.Path
	}

	endpoints := make([]manifest.Endpoint, 0, len(result.Discoveries))
	for _, d := range result.Discoveries {
		endpoints = append(endpoints, manifest.Endpoint{URL: d.Canonical, Source: kind})
	}
	due := e.manifestS.RecordArtifact(artifact, endpoints, now)

	if err := e.codex.Append(manifest.CodexEntry{
		Path:     artifact.Path,
		Kind:     string(artifact.Kind),
		SHA256:   artifact.SHA256,
		URL:      artifact.SourceURL,
		Priority: item.Score,
		Hints:    result.CodexHints,
	}); err != nil {
		e.logger.Warn("codex append failed", zap.Error(err))
	}

	if err := e.notifier.NotifyArtifact(ctx, notify.ArtifactEvent{
		RunID:     e.runID,
		Kind:      string(artifact.Kind),
		SourceURL: artifact.SourceURL,
		Path:      loc,
		SHA256:    artifact.SHA256,
	}); err != nil {
		e.logger.Warn("notify artifact failed", zap.Error(err))
	}

	e.hub.Emit(progress.Event{TS: now, Stage: progress.StageArtifact, URL: artifact.SourceURL, URLKey: item.URLKey, Kind: kind, Path: artifact.Path, SHA256: artifact.SHA256, Status: artifact.Status, Depth: artifact.Depth, Bytes: artifact.Size})
	if result.Redacted {
		e.hub.Emit(progress.Event{TS: now, Stage: progress.StageRedacted, URL: artifact.SourceURL, URLKey: item.URLKey})
	}

	e.sched.MarkProcessed(kind)
	e.enqueueDiscoveries(item, result.Discoveries)
	e.updateBudgetGauges()

	if due {
		if err := e.flushManifest(ctx); err != nil {
			e.logger.Warn("manifest flush failed", zap.Error(err))
		}
	}
}

// enqueueDiscoveries admits every discovered URL still within depth_max,
// scoring each via the scheduler's normal Enqueue path.
func (e *Engine) enqueueDiscoveries(parent scheduler.Item, discoveries []process.Discovery) {
	for _, d := range discoveries {
		if d.Depth > e.cfg.Crawl.DepthMax {
			continue
		}
		familyKey, _ := family.Key(d.Canonical)
		admitted, ok, err := e.sched.Enqueue(d.Canonical, "", scheduler.Meta{
			Depth:     d.Depth,
			Reason:    d.Reason,
			Parent:    parent.Canonical,
			FamilyKey: familyKey,
		}, scheduler.EnqueueOptions{})
		if err != nil || !ok {
			continue
		}
		e.hub.Emit(progress.Event{TS: time.Now().UTC(), Stage: progress.StageEnqueue, URL: admitted.Canonical, URLKey: admitted.URLKey, Reason: d.Reason, Depth: admitted.Meta.Depth})
	}
}

func (e *Engine) recordFetchError(ctx context.Context, item scheduler.Item, err error) {
	kind := crawlerr.KindFetchNetwork
	var typed *crawlerr.Error
	if errors.As(err, &typed) {
		kind = typed.Kind
	}
	now := time.Now().UTC()
	e.sched.MarkFailed(item, err)
	e.hub.Emit(progress.Event{TS: now, Stage: progress.StageError, URL: item.Canonical, URLKey: item.URLKey, Kind: string(kind), Note: err.Error(), Depth: item.Meta.Depth})
	if e.manifestS.RecordError(string(kind), now) {
		if ferr := e.flushManifest(ctx); ferr != nil {
			e.logger.Warn("manifest flush failed", zap.Error(ferr))
		}
	}
}

func (e *Engine) recordProcessError(ctx context.Context, item scheduler.Item, kind string, err error) {
	now := time.Now().UTC()
	e.hub.Emit(progress.Event{TS: now, Stage: progress.StageError, URL: item.Canonical, URLKey: item.URLKey, Kind: kind, Note: err.Error(), Depth: item.Meta.Depth})
	if e.manifestS.RecordError(string(crawlerr.KindProcessIO), now) {
		if ferr := e.flushManifest(ctx); ferr != nil {
			e.logger.Warn("manifest flush failed", zap.Error(ferr))
		}
	}
}

func (e *Engine) saveCheckpoint(lastURL string) error {
	e.lastURL = lastURL
	state := checkpoint.FromScheduler(e.sched, lastURL, e.startedAt)
	if err := e.checkpoint.Save(state); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	e.hub.Emit(progress.Event{TS: time.Now().UTC(), Stage: progress.StageCheckpoint, URL: lastURL})
	return nil
}

func (e *Engine) flushManifest(ctx context.Context) error {
	e.updateBudgetGauges()
	counters := e.sched.Counters()
	budgets := e.sched.Budgets()
	e.manifestS.SetBudgets(
		map[string]int{"pages": counters.Pages, "js": counters.JS, "api": counters.API},
		map[string]int{"pages": budgets.PagesMax, "js": budgets.JSMax, "api": budgets.APIMax},
	)
	snap := e.manifestS.Snapshot(e.familyPatterns())
	if err := e.manifestB.Flush(ctx, snap); err != nil {
		return fmt.Errorf("flush manifest: %w", err)
	}
	e.hub.Emit(progress.Event{TS: time.Now().UTC(), Stage: progress.StageFlush, Bytes: int64(len(snap.Files))})
	return nil
}

func (e *Engine) familyPatterns() map[string]manifest.PatternStat {
	raw := e.family.Snapshot()
	out := make(map[string]manifest.PatternStat, len(raw))
	for key, counts := range raw {
		out[key] = manifest.PatternStat{Count: counts[0], SamplesSaved: counts[1], Skipped: counts[0] - counts[1]}
	}
	return out
}

func (e *Engine) updateBudgetGauges() {
	counters := e.sched.Counters()
	budgets := e.sched.Budgets()
	telemetry.QueueDepth.Set(float64(e.sched.Len()))
	if budgets.PagesMax > 0 {
		telemetry.BudgetRemaining.WithLabelValues("pages").Set(float64(budgets.PagesMax - counters.Pages))
	}
	if budgets.JSMax > 0 {
		telemetry.BudgetRemaining.WithLabelValues("js").Set(float64(budgets.JSMax - counters.JS))
	}
	if budgets.APIMax > 0 {
		telemetry.BudgetRemaining.WithLabelValues("api").Set(float64(budgets.APIMax - counters.API))
	}
}

// finishRun handles the DONE transition: it flushes and checkpoints once
// more, emits the stop/summary events, and notifies completion. It does not
// release the Engine's resources; Close does that separately so a caller
// can inspect final state (e.g. for the report package) before tearing down.
func (e *Engine) finishRun(ctx context.Context) error {
	e.hub.Emit(progress.Event{TS: time.Now().UTC(), Stage: progress.StageStop, Reason: e.stopReason})

	if err := e.flushManifest(ctx); err != nil {
		e.logger.Warn("final manifest flush failed", zap.Error(err))
	}
	if err := e.saveCheckpoint(e.lastURL); err != nil {
		e.logger.Warn("final checkpoint save failed", zap.Error(err))
	}

	counters := e.sched.Counters()
	if err := e.notifier.NotifyCompletion(ctx, notify.CompletionEvent{
		RunID:      e.runID,
		Target:     firstOrEmpty(e.cfg.Target.BaseURLs),
		Pages:      counters.Pages,
		JS:         counters.JS,
		API:        counters.API,
		StopReason: e.stopReason,
	}); err != nil {
		e.logger.Warn("notify completion failed", zap.Error(err))
	}

	e.hub.Emit(progress.Event{TS: time.Now().UTC(), Stage: progress.StageSummary, Reason: e.stopReason, Bytes: int64(counters.Pages + counters.JS + counters.API)})
	return nil
}

// shutdown releases every resource the Engine owns for the run's lifetime,
// after a final manifest flush and checkpoint save.
func (e *Engine) shutdown(ctx context.Context) error {
	var errs []error

	e.manifestS.Finish(time.Now().UTC())
	if err := e.flushManifest(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := e.saveCheckpoint(e.lastURL); err != nil {
		errs = append(errs, err)
	}
	if err := e.codex.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close codex: %w", err))
	}
	if closer, ok := e.manifestB.(interface{ Close() }); ok {
		closer.Close()
	}
	if closer, ok := e.artifacts.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close artifact store: %w", err))
		}
	}
	if err := e.notifier.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close notifier: %w", err))
	}
	if err := e.hub.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close progress hub: %w", err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
