package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	gcstorage "cloud.google.com/go/storage"

	"github.com/corvid-labs/reconcrawl/internal/artifactstore"
	"github.com/corvid-labs/reconcrawl/internal/checkpoint"
	"github.com/corvid-labs/reconcrawl/internal/config"
	"github.com/corvid-labs/reconcrawl/internal/dedup"
	"github.com/corvid-labs/reconcrawl/internal/family"
	"github.com/corvid-labs/reconcrawl/internal/fetch"
	"github.com/corvid-labs/reconcrawl/internal/logging"
	"github.com/corvid-labs/reconcrawl/internal/manifest"
	"github.com/corvid-labs/reconcrawl/internal/notify"
	"github.com/corvid-labs/reconcrawl/internal/process"
	"github.com/corvid-labs/reconcrawl/internal/progress"
	"github.com/corvid-labs/reconcrawl/internal/runid"
	"github.com/corvid-labs/reconcrawl/internal/scheduler"
	"github.com/corvid-labs/reconcrawl/internal/scope"
	localstorage "github.com/corvid-labs/reconcrawl/internal/storage"
	"github.com/corvid-labs/reconcrawl/internal/urlkey"
)

// Deps carries collaborators the Engine cannot build for itself: things
// that need process-lifetime resources (a progress Hub already wired to
// sinks, an optional Notifier, an optional GCS client for the artifact
// backend). Everything else is derived from cfg.
type Deps struct {
	Hub      *progress.Hub
	Notifier notify.Notifier
	GCS      *gcstorage.Client // required only when cfg.Output.ArtifactBackend == "gcs"
}

// Build wires every collaborator described in spec §2/§4 from a validated
// config.Config, following the teacher's habit (internal/app/wire.go-style
// constructors, absent from this retrieval snapshot but implied by its
// layered internal/ packages) of one explicit build function per run
// rather than a DI framework.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, deps Deps) (*Engine, error) {
	runID, err := runid.New()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	logger = logging.WithRun(logger, runID)

	guard, err := scope.New(scope.Config{
		AllowedDomains:    cfg.Target.AllowedDomains,
		DisallowedPaths:   cfg.Target.DisallowedPaths,
		ExcludeExtensions: cfg.Content.ExcludeExtensions,
	})
	if err != nil {
		return nil, fmt.Errorf("build scope guard: %w", err)
	}

	idx := dedup.New(dedup.Options{
		UseBloom:           cfg.Heuristics.BloomSeenSet,
		BloomExpectedItems: cfg.Heuristics.BloomExpectedItems,
		BloomFalsePositive: cfg.Heuristics.BloomFalsePositive,
		SimHashThreshold:   cfg.Heuristics.HTMLSimilarityDrop,
	})
	familyTracker := family.NewTracker(cfg.Heuristics.FamilyMaxSamples)

	sched := scheduler.New(scheduler.Budgets{
		PagesMax: cfg.Crawl.Budgets.PagesMax,
		JSMax:    cfg.Crawl.Budgets.JSMax,
		APIMax:   cfg.Crawl.Budgets.APIMax,
	}, scheduler.NewScorer(scheduler.DefaultWeights()), guard, idx)
	sched.SetFamilyLookup(func(key string) (int, int) {
		count, _ := familyTracker.Stats(key)
		return count, cfg.Heuristics.FamilyMaxSamples
	})

	urlOpts := urlkey.Options{DropParams: cfg.Crawl.NormalizeQuery.DropParams}

	timeout := time.Duration(cfg.Crawl.TimeoutMs) * time.Millisecond
	httpLeg := fetch.NewCollyLeg(cfg.Crawl.UserAgent, timeout, cfg.Crawl.Concurrency, logger)
	var headlessLeg *fetch.ChromedpLeg
	if cfg.Crawl.HeadlessEnabled {
		headlessLeg, err = fetch.NewChromedpLeg(cfg.Crawl.UserAgent, cfg.Crawl.Concurrency, logger)
		if err != nil {
			return nil, fmt.Errorf("build headless leg: %w", err)
		}
	}
	fetcher := fetch.New(fetch.Config{
		HTTP:     httpLeg,
		Headless: headlessLeg,
		Limiter:  fetch.NewLimiter(cfg.Crawl.RateLimitRPS, cfg.Crawl.Concurrency),
		Robots:   fetch.NewRobotsPolicy(cfg.Crawl.RespectRobots, cfg.Crawl.UserAgent, logger),
		Retry:    fetch.NewRetryPolicy(cfg.Crawl.MaxRetries),
		Logger:   logger,
	})

	store, err := localstorage.New(cfg.Output.RootDir)
	if err != nil {
		return nil, fmt.Errorf("build storage root: %w", err)
	}
	htmlProc := process.NewHTMLProcessor(idx, familyTracker, store, cfg.Heuristics.SimhashShingleSize, urlOpts)
	jsProc := process.NewJSProcessor(idx, store, urlOpts)
	apiProc := process.NewAPIProcessor(idx, familyTracker, store)

	artifacts, err := buildArtifactStore(cfg, store, deps.GCS)
	if err != nil {
		return nil, err
	}

	manifestBackend, err := buildManifestBackend(ctx, cfg, runID)
	if err != nil {
		return nil, err
	}
	configHash, err := hashConfig(cfg)
	if err != nil {
		return nil, err
	}
	startedAt := time.Now().UTC()
	manifestSink := manifest.New(manifest.Metadata{
		Target:     firstOrEmpty(cfg.Target.BaseURLs),
		StartedAt:  startedAt,
		ConfigHash: configHash,
		DepthMax:   cfg.Crawl.DepthMax,
	}, startedAt)

	codex, err := manifest.NewCodexWriter(filepath.Join(cfg.Output.RootDir, "index.ndjson"))
	if err != nil {
		return nil, fmt.Errorf("open codex index: %w", err)
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Noop{}
	}

	e := &Engine{
		cfg:        cfg,
		logger:     logger,
		runID:      runID,
		sched:      sched,
		dedup:      idx,
		family:     familyTracker,
		guard:      guard,
		urlOpt:     urlOpts,
		fetcher:    fetcher,
		html:       htmlProc,
		js:         jsProc,
		api:        apiProc,
		store:      store,
		artifacts:  artifacts,
		manifestS:  manifestSink,
		manifestB:  manifestBackend,
		codex:      codex,
		checkpoint: checkpoint.New(cfg.Output.RootDir),
		hub:        deps.Hub,
		notifier:   notifier,
		includeExt: includeExtSet(cfg.Content.IncludeTypes),
		startedAt:  startedAt,
	}

	if err := e.restore(ctx); err != nil {
		return nil, err
	}
	if err := e.seed(); err != nil {
		return nil, err
	}
	return e, nil
}

func buildArtifactStore(cfg config.Config, store *localstorage.Store, gcs *gcstorage.Client) (artifactstore.Store, error) {
	switch cfg.Output.ArtifactBackend {
	case "", "local":
		return artifactstore.NewLocalStore(store), nil
	case "gcs":
		return artifactstore.NewGCSStore(gcs, artifactstore.GCSConfig{Bucket: cfg.Output.GCSBucket})
	default:
		return nil, fmt.Errorf("unknown output.artifact_backend %q", cfg.Output.ArtifactBackend)
	}
}

func buildManifestBackend(ctx context.Context, cfg config.Config, runID string) (manifest.Backend, error) {
	switch cfg.Output.ManifestBackend {
	case "", "local":
		return manifest.NewLocalBackend(cfg.Output.RootDir), nil
	case "postgres":
		return manifest.NewPostgresBackend(ctx, cfg.Output.PostgresDSN, runID)
	default:
		return nil, fmt.Errorf("unknown output.manifest_backend %q", cfg.Output.ManifestBackend)
	}
}

// restore rebuilds the dedup seen-set from an existing manifest.json (spec
// §4.13: "seen-set is rebuilt from manifest sha256s and url_keys at
// startup") and, if a checkpoint file exists, replays its pending queue
// with forced admission.
func (e *Engine) restore(ctx context.Context) error {
	snap, found, err := e.manifestB.Load(ctx)
	if err != nil {
		return fmt.Errorf("load manifest for restore: %w", err)
	}
	if found {
		e.rehydrateSeenSet(snap)
	}
	if !e.checkpoint.Exists() {
		return nil
	}
	state, err := e.checkpoint.Load()
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	state.ApplyTo(e.sched)
	e.lastURL = state.LastURL
	e.logger.Info("restored checkpoint", zap.String("last_url", state.LastURL), zap.Int("pending", len(state.Pending)))
	return nil
}

func (e *Engine) rehydrateSeenSet(snap manifest.Snapshot) {
	for _, f := range snap.Files {
		e.dedup.MarkContent(f.SHA256)
		canon, err := urlkey.Canonicalize(f.SourceURL, "", e.urlOpt)
		if err == nil {
			e.dedup.MarkURL(canon.URLKey)
		}
	}
}

// seed enqueues the configured base URLs when the scheduler starts empty
// (i.e. no checkpoint restored pending work).
func (e *Engine) seed() error {
	if e.sched.Len() > 0 {
		return nil
	}
	for _, seedURL := range e.cfg.Target.BaseURLs {
		_, _, err := e.sched.Enqueue(seedURL, "", scheduler.Meta{Depth: 0, Reason: "seed"}, scheduler.EnqueueOptions{Force: true})
		if err != nil {
			return fmt.Errorf("enqueue seed %s: %w", seedURL, err)
		}
	}
	return nil
}

func hashConfig(cfg config.Config) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config for hashing: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func firstOrEmpty(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[0]
}

// includeExtSet turns content.include_types (content-type substrings, e.g.
// "text/html", "javascript", "json") into the extension set route.Route's
// no-content-type fallback checks against, so a configured include list
// actually restricts the URL-extension guess the way spec §4.7 describes.
// An empty includeTypes means no restriction, matching route.Route's own
// empty-map convention.
func includeExtSet(includeTypes []string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range includeTypes {
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "text/html", "html":
			set["html"] = true
			set["htm"] = true
		case "javascript", "text/javascript", "application/javascript", "js":
			set["js"] = true
			set["mjs"] = true
		case "json", "application/json":
			set["json"] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}
