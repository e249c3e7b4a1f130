package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// CollyLeg is the HTTP fetch path of the Fetcher, grounded on the teacher's
// internal/crawler/fetcher_colly.go: a base collector cloned per request so
// concurrent fetches never share OnResponse/OnError callbacks.
type CollyLeg struct {
	base   *colly.Collector
	logger *zap.Logger
}

// NewCollyLeg builds a CollyLeg configured for userAgent, with timeout as a
// request-level cap; the body-size cap is applied per Fetch from the
// strategy's MaxBodyBytes.
func NewCollyLeg(userAgent string, timeout time.Duration, concurrency int, logger *zap.Logger) *CollyLeg {
	base := colly.NewCollector(colly.Async(true), colly.UserAgent(userAgent))
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   32,
		MaxConnsPerHost:       concurrency * 2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(timeout)
	return &CollyLeg{base: base, logger: logger}
}

type collyResult struct {
	resp *Response
	err  error
}

// Fetch performs a single non-rendering fetch of rawURL, truncating the body
// at strategy.MaxBodyBytes when set.
func (c *CollyLeg) Fetch(ctx context.Context, rawURL string, strategy Strategy) (*Response, error) {
	collector := c.base.Clone()
	if strategy.MaxBodyBytes > 0 {
		collector.MaxBodySize = int(strategy.MaxBodyBytes)
	}

	resultCh := make(chan collyResult, 1)
	var once sync.Once
	send := func(res collyResult) { once.Do(func() { resultCh <- res }) }
	start := time.Now()

	collector.OnResponse(func(r *colly.Response) {
		headers := http.Header{}
		if r.Headers != nil {
			for k, v := range *r.Headers {
				cp := make([]string, len(v))
				copy(cp, v)
				headers[k] = cp
			}
		}
		send(collyResult{resp: &Response{
			FinalURL:    r.Request.URL.String(),
			Status:      r.StatusCode,
			Headers:     headers,
			ContentType: headers.Get("Content-Type"),
			Body:        append([]byte{}, r.Body...),
			Duration:    time.Since(start),
		}})
	})
	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		if status > 0 {
			send(collyResult{resp: &Response{FinalURL: rawURL, Status: status, Duration: time.Since(start)}, err: err})
			return
		}
		send(collyResult{err: err})
	})

	if strategy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, strategy.Timeout)
		defer cancel()
	}

	if err := collector.Visit(rawURL); err != nil {
		return nil, fmt.Errorf("colly visit: %w", err)
	}
	done := make(chan struct{})
	go func() { collector.Wait(); close(done) }()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("colly fetch: %w", ctx.Err())
	case <-done:
	}

	select {
	case res := <-resultCh:
		return res.resp, res.err
	default:
		return nil, errors.New("colly fetch produced no result")
	}
}
