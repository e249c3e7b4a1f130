package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// RobotsPolicy caches per-host robots.txt data and answers Allowed queries,
// grounded on the teacher's internal/crawler/robotspolicy.go: fail open with
// a logged warning, never used to bypass restrictions (spec §1 non-goal).
type RobotsPolicy struct {
	client    *http.Client
	cache     sync.Map
	respect   bool
	userAgent string
	logger    *zap.Logger
}

// NewRobotsPolicy builds a RobotsPolicy. When respect is false the returned
// policy allows everything without ever fetching robots.txt.
func NewRobotsPolicy(respect bool, userAgent string, logger *zap.Logger) *RobotsPolicy {
	return &RobotsPolicy{
		client:    &http.Client{Timeout: 10 * time.Second},
		respect:   respect,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Allowed reports whether rawURL may be fetched under the cached robots.txt
// for its host. Fetch failures fail open (allowed=true) with a warning.
func (p *RobotsPolicy) Allowed(ctx context.Context, rawURL string) bool {
	if p == nil || !p.respect {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	data, err := p.load(ctx, parsed)
	if err != nil {
		p.logger.Warn("robots fetch failed; allowing access", zap.String("host", parsed.Host), zap.Error(err))
		return true
	}
	group := data.FindGroup(p.userAgent)
	if group == nil {
		return true
	}
	return group.Test(parsed.Path)
}

func (p *RobotsPolicy) load(ctx context.Context, parsed *url.URL) (*robotstxt.RobotsData, error) {
	hostKey := strings.ToLower(parsed.Host)
	if cached, ok := p.cache.Load(hostKey); ok {
		data, assertOK := cached.(*robotstxt.RobotsData)
		if !assertOK {
			return nil, fmt.Errorf("robots cache type mismatch: %T", cached)
		}
		return data, nil
	}

	robotsURL := *parsed
	robotsURL.Path = path.Join("/", "robots.txt")
	robotsURL.RawQuery = ""
	robotsURL.Fragment = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			p.logger.Debug("failed to close robots response body", zap.Error(cerr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	p.cache.Store(hostKey, data)
	return data, nil
}
