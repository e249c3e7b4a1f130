// Package config loads and validates the crawler's Configuration record (spec
// §6) via Viper, following the teacher's pkg/config/viper.go idiom: SetDefault
// calls, a CRAWLER_ env prefix, `.`-to-`_` key replacement, and a Validate()
// method on the resulting struct. Nothing downstream of Load touches Viper
// directly — every component consumes the plain Config struct.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the validated configuration record consumed by the crawl engine.
type Config struct {
	Target     TargetConfig     `mapstructure:"target"`
	Crawl      CrawlConfig      `mapstructure:"crawl"`
	Heuristics HeuristicsConfig `mapstructure:"heuristics"`
	Content    ContentConfig    `mapstructure:"content"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Output     OutputConfig     `mapstructure:"output"`
	Git        GitConfig        `mapstructure:"git"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	StatusAPI  StatusAPIConfig  `mapstructure:"status_api"`
	Notify     NotifyConfig     `mapstructure:"notify"`
}

// TargetConfig describes the seeds and scope rules (spec §4.2).
type TargetConfig struct {
	BaseURLs        []string `mapstructure:"base_urls"`
	AllowedDomains  []string `mapstructure:"allowed_domains"`
	DisallowedPaths []string `mapstructure:"disallowed_paths"`
}

// NormalizeQueryConfig controls the Canonicalizer's query-string handling
// (spec §4.1).
type NormalizeQueryConfig struct {
	DropParams  []string `mapstructure:"drop_params"`
	SortParams  bool     `mapstructure:"sort_params"`
}

// BudgetsConfig holds the per-kind artifact caps (spec §3 "Budget Counters").
type BudgetsConfig struct {
	PagesMax int `mapstructure:"pages_max"`
	JSMax    int `mapstructure:"js_max"`
	APIMax   int `mapstructure:"api_max"`
}

// CrawlConfig holds the knobs governing scheduling, fetching, and stop
// conditions (spec §4.5, §4.6, §5).
type CrawlConfig struct {
	DepthMax        int                  `mapstructure:"depth_max"`
	Budgets         BudgetsConfig        `mapstructure:"budgets"`
	TimeoutMs       int                  `mapstructure:"timeout_ms"`
	TimeMaxSeconds  int                  `mapstructure:"time_max_seconds"`
	ErrorRateMax    float64              `mapstructure:"error_rate_max"`
	RateLimitRPS    float64              `mapstructure:"rate_limit_rps"`
	Concurrency     int                  `mapstructure:"concurrency"`
	FollowRedirects bool                 `mapstructure:"follow_redirects"`
	NormalizeQuery  NormalizeQueryConfig `mapstructure:"normalize_query"`
	MaxRetries      int                  `mapstructure:"max_retries"`
	MaxBodyBytes    int64                `mapstructure:"max_body_bytes"`
	RespectRobots   bool                 `mapstructure:"respect_robots"`
	UserAgent       string               `mapstructure:"user_agent"`
	RenderWaitFor   string               `mapstructure:"render_wait_for"`
	HeadlessEnabled bool                 `mapstructure:"headless_enabled"`
}

// Timeout returns CrawlConfig.TimeoutMs as a time.Duration.
func (c CrawlConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// TimeMax returns the total-run time bound as a time.Duration.
func (c CrawlConfig) TimeMax() time.Duration {
	return time.Duration(c.TimeMaxSeconds) * time.Second
}

// HeuristicsConfig holds family/dedup tuning knobs (spec §4.3, §4.4).
type HeuristicsConfig struct {
	FamilyMaxSamples    int     `mapstructure:"family_max_samples"`
	FamilyThreshold     float64 `mapstructure:"family_threshold"`
	SimhashShingleSize  int     `mapstructure:"simhash_shingle_size"`
	HTMLSimilarityDrop  float64 `mapstructure:"html_similarity_drop"`
	BloomSeenSet        bool    `mapstructure:"bloom_seen_set"`
	BloomExpectedItems  uint    `mapstructure:"bloom_expected_items"`
	BloomFalsePositive  float64 `mapstructure:"bloom_false_positive_rate"`
}

// ContentConfig controls content-type routing (spec §4.7).
type ContentConfig struct {
	IncludeTypes      []string `mapstructure:"include_types"`
	ExcludeExtensions []string `mapstructure:"exclude_extensions"`
}

// AuthMode selects how the Fetcher authenticates requests (spec §6).
type AuthMode string

// Supported auth modes.
const (
	AuthModeNone    AuthMode = "none"
	AuthModeCookies AuthMode = "cookies"
	AuthModeHeader  AuthMode = "header"
)

// AuthConfig is applied by the Fetcher, not the engine itself.
type AuthConfig struct {
	Mode    AuthMode          `mapstructure:"mode"`
	Cookies map[string]string `mapstructure:"cookies"`
	Headers map[string]string `mapstructure:"headers"`
}

// OutputConfig locates the on-disk artifact tree (spec §6).
type OutputConfig struct {
	RootDir        string `mapstructure:"root_dir"`
	StorePagesUnder string `mapstructure:"store_pages_under"`
	StoreJSUnder    string `mapstructure:"store_js_under"`
	StoreAPIUnder   string `mapstructure:"store_api_under"`
	ManifestBackend string `mapstructure:"manifest_backend"` // "local" (default) or "postgres"
	PostgresDSN     string `mapstructure:"postgres_dsn"`
	ArtifactBackend string `mapstructure:"artifact_backend"` // "local" (default) or "gcs"
	GCSBucket       string `mapstructure:"gcs_bucket"`
}

// GitConfig describes the external Git-versioning collaborator (out of scope
// per spec §1; the engine only reads these fields to decide whether to shell
// out to the collaborator at DONE).
type GitConfig struct {
	Enable          bool   `mapstructure:"enable"`
	Branch          string `mapstructure:"branch"`
	Repo            string `mapstructure:"repo"`
	CommitEveryFile int    `mapstructure:"commit_every_files"`
}

// LoggingConfig toggles zap development mode.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// StatusAPIConfig controls the optional read-only status server.
type StatusAPIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// NotifyConfig controls the optional Pub/Sub completion/artifact notifier.
// When Enabled is false the engine falls back to notify.Noop.
type NotifyConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	GCPProject string `mapstructure:"gcp_project"`
	Topic     string `mapstructure:"topic"`
}

// Load builds a Config from an optional file path plus environment
// variables, applying defaults first so a minimal file can override only
// what it needs.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.depth_max", 5)
	v.SetDefault("crawl.budgets.pages_max", 500)
	v.SetDefault("crawl.budgets.js_max", 200)
	v.SetDefault("crawl.budgets.api_max", 200)
	v.SetDefault("crawl.timeout_ms", 15000)
	v.SetDefault("crawl.time_max_seconds", 3600)
	v.SetDefault("crawl.error_rate_max", 0.5)
	v.SetDefault("crawl.rate_limit_rps", 2.0)
	v.SetDefault("crawl.concurrency", 4)
	v.SetDefault("crawl.follow_redirects", true)
	v.SetDefault("crawl.normalize_query.sort_params", true)
	v.SetDefault("crawl.normalize_query.drop_params", []string{"utm_*", "gclid", "fbclid", "session*"})
	v.SetDefault("crawl.max_retries", 3)
	v.SetDefault("crawl.max_body_bytes", 10*1024*1024)
	v.SetDefault("crawl.respect_robots", true)
	v.SetDefault("crawl.user_agent", "reconcrawl/1.0 (+https://github.com/corvid-labs/reconcrawl)")
	v.SetDefault("crawl.render_wait_for", "domcontentloaded")
	v.SetDefault("crawl.headless_enabled", false)

	v.SetDefault("heuristics.family_max_samples", 3)
	v.SetDefault("heuristics.family_threshold", 0.3)
	v.SetDefault("heuristics.simhash_shingle_size", 8)
	v.SetDefault("heuristics.html_similarity_drop", 0.92)
	v.SetDefault("heuristics.bloom_seen_set", false)
	v.SetDefault("heuristics.bloom_expected_items", 100000)
	v.SetDefault("heuristics.bloom_false_positive_rate", 0.01)

	v.SetDefault("content.include_types", []string{"text/html", "javascript", "json"})
	v.SetDefault("content.exclude_extensions", []string{"png", "jpg", "jpeg", "gif", "svg", "woff", "woff2", "ttf", "eot", "ico", "mp4", "webm", "pdf", "zip"})

	v.SetDefault("auth.mode", string(AuthModeNone))

	v.SetDefault("output.root_dir", "output")
	v.SetDefault("output.store_pages_under", "pages")
	v.SetDefault("output.store_js_under", "js")
	v.SetDefault("output.store_api_under", "api")
	v.SetDefault("output.manifest_backend", "local")
	v.SetDefault("output.artifact_backend", "local")

	v.SetDefault("git.enable", false)
	v.SetDefault("git.commit_every_files", 50)

	v.SetDefault("logging.development", true)

	v.SetDefault("status_api.enabled", false)
	v.SetDefault("status_api.addr", ":8090")

	v.SetDefault("notify.enabled", false)
}

// Validate enforces the invariants the engine relies on at startup; invalid
// config aborts with a clear message per spec §7.
func (c Config) Validate() error {
	if len(c.Target.BaseURLs) == 0 {
		return fmt.Errorf("target.base_urls must include at least one seed URL")
	}
	if len(c.Target.AllowedDomains) == 0 {
		return fmt.Errorf("target.allowed_domains must not be empty")
	}
	if c.Crawl.DepthMax < 0 {
		return fmt.Errorf("crawl.depth_max must be >= 0")
	}
	if c.Crawl.Budgets.PagesMax <= 0 && c.Crawl.Budgets.JSMax <= 0 && c.Crawl.Budgets.APIMax <= 0 {
		return fmt.Errorf("at least one of crawl.budgets.{pages_max,js_max,api_max} must be > 0")
	}
	if c.Crawl.Concurrency <= 0 {
		return fmt.Errorf("crawl.concurrency must be > 0")
	}
	if c.Crawl.RateLimitRPS <= 0 {
		return fmt.Errorf("crawl.rate_limit_rps must be > 0")
	}
	if c.Crawl.TimeoutMs <= 0 {
		return fmt.Errorf("crawl.timeout_ms must be > 0")
	}
	switch c.Auth.Mode {
	case AuthModeNone, AuthModeCookies, AuthModeHeader:
	default:
		return fmt.Errorf("auth.mode must be one of none|cookies|header, got %q", c.Auth.Mode)
	}
	if c.Output.RootDir == "" {
		return fmt.Errorf("output.root_dir must be set")
	}
	if c.Output.ManifestBackend == "postgres" && c.Output.PostgresDSN == "" {
		return fmt.Errorf("output.manifest_backend is postgres but output.postgres_dsn is not set")
	}
	if c.Output.ArtifactBackend == "gcs" && c.Output.GCSBucket == "" {
		return fmt.Errorf("output.artifact_backend is gcs but output.gcs_bucket is not set")
	}
	if c.Notify.Enabled && (c.Notify.GCPProject == "" || c.Notify.Topic == "") {
		return fmt.Errorf("notify.enabled requires notify.gcp_project and notify.topic")
	}
	return nil
}

// ConfigHash is computed by the caller (manifest metadata wants a
// config_hash field per spec §4.12); Config itself stays a plain data
// record so it remains trivially comparable/serializable for that purpose.
