package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corvid-labs/reconcrawl/internal/checkpoint"
	"github.com/corvid-labs/reconcrawl/internal/config"
	"github.com/corvid-labs/reconcrawl/internal/logging"
	"github.com/corvid-labs/reconcrawl/internal/notify"
	"github.com/corvid-labs/reconcrawl/internal/orchestrator"
	"github.com/corvid-labs/reconcrawl/internal/progress"
	"github.com/corvid-labs/reconcrawl/internal/progress/sinks"
	"github.com/corvid-labs/reconcrawl/internal/report"
	"github.com/corvid-labs/reconcrawl/internal/statusapi"
	"github.com/corvid-labs/reconcrawl/internal/telemetry"
)

const statusShutdownTimeout = 5 * time.Second

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Start a new crawl from the configured seed URLs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEngine(cmd.Context(), loadedConfig)
		},
	}
}

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume a crawl from output.root_dir's checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := checkpoint.New(loadedConfig.Output.RootDir)
			if !store.Exists() {
				return fmt.Errorf("no checkpoint found under %s", filepath.Join(loadedConfig.Output.RootDir, "checkpoint.json"))
			}
			return runEngine(cmd.Context(), loadedConfig)
		},
	}
}

// runEngine builds the Engine (which auto-restores from any existing
// checkpoint/manifest under cfg.Output.RootDir), runs it to completion,
// and writes the closing summary. Shared by crawl and resume: the two
// subcommands differ only in whether a checkpoint is required up front.
func runEngine(parentCtx context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, closeDeps, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDeps()

	engine, err := orchestrator.Build(ctx, cfg, logger, deps)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	var statusSrv *http.Server
	if cfg.StatusAPI.Enabled {
		statusSrv = &http.Server{
			Addr:    cfg.StatusAPI.Addr,
			Handler: statusapi.New(engine.StatusSnapshot, telemetry.Handler(), logger).Handler(),
		}
		go func() {
			if serr := statusSrv.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
				logger.Warn("status server stopped", zap.Error(serr))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), statusShutdownTimeout)
			defer cancel()
			_ = statusSrv.Shutdown(shutdownCtx)
		}()
	}

	runErr := engine.Run(ctx)
	closeErr := engine.Close(context.Background())

	if writeErr := writeReport(engine, cfg); writeErr != nil {
		logger.Warn("write report failed", zap.Error(writeErr))
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run crawl: %w", runErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close engine: %w", closeErr)
	}
	logger.Info("crawl finished")
	return nil
}

func writeReport(engine *orchestrator.Engine, cfg config.Config) error {
	f, err := os.Create(filepath.Join(cfg.Output.RootDir, "INDEX.md"))
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	return report.WriteIndex(f, engine.RunID(), engine.FinalSnapshot())
}

// buildDeps wires the progress Hub (log + Prometheus sinks), the optional
// GCS client for the artifact backend, and the optional Pub/Sub notifier.
// It returns a cleanup func the caller must defer.
func buildDeps(ctx context.Context, cfg config.Config, logger *zap.Logger) (orchestrator.Deps, func(), error) {
	hub := progress.NewHub(progress.Config{
		BaseContext: ctx,
		Logger:      logger,
	}, sinks.NewLogSink(logger), sinks.NewPrometheusSink())

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := orchestrator.Deps{Hub: hub}
	closers = append(closers, func() {
		_ = hub.Close(context.Background())
	})

	if cfg.Output.ArtifactBackend == "gcs" {
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			cleanup()
			return orchestrator.Deps{}, nil, fmt.Errorf("build gcs client: %w", err)
		}
		deps.GCS = client
		closers = append(closers, func() { _ = client.Close() })
	}

	if cfg.Notify.Enabled {
		client, err := pubsub.NewClient(ctx, cfg.Notify.GCPProject)
		if err != nil {
			cleanup()
			return orchestrator.Deps{}, nil, fmt.Errorf("build pubsub client: %w", err)
		}
		notifier, err := notify.NewPubSub(client, cfg.Notify.Topic)
		if err != nil {
			_ = client.Close()
			cleanup()
			return orchestrator.Deps{}, nil, fmt.Errorf("build pubsub notifier: %w", err)
		}
		deps.Notifier = notifier
	} else {
		deps.Notifier = notify.Noop{}
	}

	return deps, cleanup, nil
}
