package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrRenderDisabled indicates the headless leg was never configured: the
// Fetcher has no render leg (crawl.headless_enabled is false), or
// NewChromedpLeg was given a concurrency of zero or less.
var ErrRenderDisabled = errors.New("headless render disabled")

// ChromedpLeg is the headless-render fetch path, grounded on the teacher's
// internal/crawler/renderer_chromedp.go: a warmed-up browser context shared
// across requests, one tab per Render call, bounded by a semaphore.
type ChromedpLeg struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	sem             chan struct{}
	userAgent       string
	logger          *zap.Logger
}

// NewChromedpLeg warms up a headless Chrome instance with the given user
// agent and concurrency cap.
func NewChromedpLeg(userAgent string, concurrency int, logger *zap.Logger) (*ChromedpLeg, error) {
	if concurrency <= 0 {
		return nil, ErrRenderDisabled
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		allocCancel()
		browserCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	return &ChromedpLeg{
		allocatorCancel: allocCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		sem:             make(chan struct{}, concurrency),
		userAgent:       userAgent,
		logger:          logger,
	}, nil
}

// Close tears down the browser and allocator contexts.
func (l *ChromedpLeg) Close() error {
	if l == nil {
		return nil
	}
	l.browserCancel()
	l.allocatorCancel()
	return nil
}

type navMeta struct {
	once     sync.Once
	status   int
	url      string
	headers  http.Header
	subresMu sync.Mutex
	subres   []Subresource
}

// Render navigates to rawURL with JavaScript enabled, waits per strategy,
// and returns the final DOM plus any subresources observed on the wire.
func (l *ChromedpLeg) Render(ctx context.Context, rawURL string, strategy Strategy) (*Response, error) {
	if l == nil {
		return nil, ErrRenderDisabled
	}

	select {
	case l.sem <- struct{}{}:
		defer func() { <-l.sem }()
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire render slot: %w", ctx.Err())
	}

	tabCtx, cancelTab := chromedp.NewContext(l.browserCtx)
	defer cancelTab()

	timeout := strategy.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	taskCtx, cancelTask := context.WithTimeout(tabCtx, timeout)
	defer cancelTask()

	start := time.Now()
	meta := &navMeta{headers: make(http.Header)}
	l.recordTraffic(tabCtx, meta)

	waitSelector := "body"
	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(l.userAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady(waitSelector, chromedp.ByQuery),
	}
	if strategy.WaitFor == WaitNetworkIdle {
		tasks = append(tasks, chromedp.Sleep(500*time.Millisecond))
	}
	tasks = append(tasks, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return nil, fmt.Errorf("chromedp run: %w", err)
	}

	finalURL := rawURL
	if meta.url != "" {
		finalURL = meta.url
	}
	meta.subresMu.Lock()
	subres := meta.subres
	meta.subresMu.Unlock()

	return &Response{
		FinalURL:     finalURL,
		Status:       meta.status,
		Headers:      meta.headers,
		ContentType:  meta.headers.Get("Content-Type"),
		Body:         []byte(html),
		RenderedHTML: html,
		Subresources: subres,
		Duration:     time.Since(start),
	}, nil
}

func (l *ChromedpLeg) recordTraffic(tabCtx context.Context, meta *navMeta) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok {
			return
		}
		if resp.Type == network.ResourceTypeDocument {
			meta.once.Do(func() {
				meta.status = int(resp.Response.Status)
				meta.url = resp.Response.URL
				for k, v := range resp.Response.Headers {
					meta.headers.Add(k, fmt.Sprint(v))
				}
			})
			return
		}
		meta.subresMu.Lock()
		meta.subres = append(meta.subres, Subresource{
			URL:         resp.Response.URL,
			Status:      int(resp.Response.Status),
			ContentType: resp.Response.MimeType,
		})
		meta.subresMu.Unlock()
	})
}
