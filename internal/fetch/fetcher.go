package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/corvid-labs/reconcrawl/internal/crawlerr"
	"github.com/corvid-labs/reconcrawl/internal/telemetry"
	"go.uber.org/zap"
)

// Fetcher implements the spec §4.6 contract by composing the HTTP leg, the
// optional headless render leg, the rate limiter, the robots policy, and the
// retry policy behind a single fetch(url, strategy) entry point.
type Fetcher struct {
	http     *CollyLeg
	headless *ChromedpLeg
	limiter  *Limiter
	robots   *RobotsPolicy
	retry    *RetryPolicy
	logger   *zap.Logger
}

// Config gathers the dependencies a Fetcher needs. Headless may be nil when
// rendering is disabled.
type Config struct {
	HTTP     *CollyLeg
	Headless *ChromedpLeg
	Limiter  *Limiter
	Robots   *RobotsPolicy
	Retry    *RetryPolicy
	Logger   *zap.Logger
}

// New builds a Fetcher from cfg.
func New(cfg Config) *Fetcher {
	return &Fetcher{
		http:     cfg.HTTP,
		headless: cfg.Headless,
		limiter:  cfg.Limiter,
		robots:   cfg.Robots,
		retry:    cfg.Retry,
		logger:   cfg.Logger,
	}
}

// Fetch retrieves rawURL under strategy, enforcing robots policy, rate
// limits, and retry-with-backoff, per spec §4.6.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, strategy Strategy) (*Response, error) {
	if !f.robots.Allowed(ctx, rawURL) {
		return nil, crawlerr.New(crawlerr.KindOutOfScope, rawURL, crawlerr.ErrAccessDenied)
	}

	for attempt := 0; ; attempt++ {
		release, err := f.limiter.Acquire(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("acquire fetch slot: %w", err)
		}

		resp, ferr := f.attempt(ctx, rawURL, strategy)
		release()

		if ferr == nil {
			telemetry.FetchAttemptsTotal.WithLabelValues("ok").Inc()
			telemetry.FetchLatencySeconds.Observe(resp.Duration.Seconds())
			return resp, nil
		}

		typed, _ := ferr.(*crawlerr.Error)
		kind := crawlerr.KindFetchNetwork
		if typed != nil {
			kind = typed.Kind
		}
		telemetry.ErrorsTotal.WithLabelValues(string(kind)).Inc()

		if !f.retry.ShouldRetry(ferr, attempt) {
			telemetry.FetchAttemptsTotal.WithLabelValues("error").Inc()
			return nil, ferr
		}
		telemetry.FetchAttemptsTotal.WithLabelValues("retry").Inc()

		wait := f.retry.Backoff(attempt)
		f.logger.Debug("retrying fetch", zap.String("url", rawURL), zap.Int("attempt", attempt), zap.Duration("wait", wait))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, fmt.Errorf("fetch retry wait: %w", ctx.Err())
		}
	}
}

func (f *Fetcher) attempt(ctx context.Context, rawURL string, strategy Strategy) (*Response, error) {
	if strategy.Render {
		if f.headless == nil {
			return nil, crawlerr.New(crawlerr.KindFetchNetwork, rawURL, ErrRenderDisabled)
		}
		resp, err := f.headless.Render(ctx, rawURL, strategy)
		if err != nil {
			return nil, crawlerr.New(Classify(err), rawURL, err)
		}
		return f.checkSize(resp, rawURL, strategy)
	}

	resp, err := f.http.Fetch(ctx, rawURL, strategy)
	if err != nil {
		return nil, crawlerr.New(Classify(err), rawURL, err)
	}
	if resp.Status >= 400 {
		return nil, crawlerr.New(StatusKind(resp.Status), rawURL, fmt.Errorf("http status %d", resp.Status))
	}
	return f.checkSize(resp, rawURL, strategy)
}

func (f *Fetcher) checkSize(resp *Response, rawURL string, strategy Strategy) (*Response, error) {
	if strategy.MaxBodyBytes > 0 && int64(len(resp.Body)) > strategy.MaxBodyBytes {
		return nil, crawlerr.New(crawlerr.KindBodyTooLarge, rawURL, crawlerr.ErrBodyTooLarge)
	}
	return resp, nil
}
