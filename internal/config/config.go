// Package config builds the single immutable configuration value a
// pipeline run is constructed from (spec §5: "Configuration is a
// per-pipeline immutable value constructed at start").
package config

import (
	"os"
	"strconv"
)

// Config is read once from flags/environment and passed by value into
// the pipeline. Nothing downstream mutates it.
type Config struct {
	Model              string
	MaxRepairAttempts   int
	TraceRoot           string
	AllowRepair         bool
	RequireDockerVerify bool
	GeminiAPIKey        string
	TraceGCSBucket      string
	BenchmarkRoot       string
	OTLPEndpoint        string

	GitLabServerURL string
	GitLabToken     string
	GitLabProjectID string
	GitLabMRIID     string
	GitLabCommitSHA string
	SkipGitLabPublish bool
}

// Option mutates a Config under construction. Following the donor
// codebase's functional-options convention for configurable
// constructors.
type Option func(*Config)

// WithModel overrides the LLM model identifier.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithMaxRepairAttempts overrides the repair loop bound (spec §4.8,
// default 3).
func WithMaxRepairAttempts(n int) Option {
	return func(c *Config) { c.MaxRepairAttempts = n }
}

// WithTraceRoot overrides the trace store's root directory.
func WithTraceRoot(path string) Option {
	return func(c *Config) { c.TraceRoot = path }
}

// WithAllowRepair toggles whether the pipeline may invoke the Repair
// Engine on a VULNERABLE verdict.
func WithAllowRepair(allow bool) Option {
	return func(c *Config) { c.AllowRepair = allow }
}

// WithRequireDockerVerify toggles the verifier drivers' container
// requirement (spec §4.7 point 1).
func WithRequireDockerVerify(require bool) Option {
	return func(c *Config) { c.RequireDockerVerify = require }
}

// WithBenchmarkRoot sets the seeded-benchmark fixture root used by the
// CI Integrity Suite's seeded-benchmark gate (spec §4.12).
func WithBenchmarkRoot(path string) Option {
	return func(c *Config) { c.BenchmarkRoot = path }
}

// WithSkipGitLabPublish disables forge publishing regardless of
// environment (CLI's --skip-gitlab-publish, spec §6).
func WithSkipGitLabPublish(skip bool) Option {
	return func(c *Config) { c.SkipGitLabPublish = skip }
}

// Load builds a Config from environment variables (spec §6) and the
// given options, which take precedence over environment-derived
// defaults because Load applies them after its own env read. Absence of
// GEMINI_API_KEY is not an error — it disables the LLM proposer,
// translator, and repair engine (spec §5).
func Load(opts ...Option) Config {
	c := Config{
		Model:               "gemini-2.5-pro",
		MaxRepairAttempts:   3,
		TraceRoot:           ".argus-trace",
		AllowRepair:         true,
		RequireDockerVerify: true,
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		TraceGCSBucket:      os.Getenv("ARGUS_TRACE_GCS_BUCKET"),
		GitLabServerURL:     os.Getenv("CI_SERVER_URL"),
		GitLabToken:         os.Getenv("GITLAB_TOKEN"),
		GitLabProjectID:     os.Getenv("CI_PROJECT_ID"),
		GitLabMRIID:         os.Getenv("CI_MERGE_REQUEST_IID"),
		GitLabCommitSHA:     os.Getenv("CI_COMMIT_SHA"),
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	if v, ok := os.LookupEnv("ARGUS_ALLOW_LOCAL_VERIFY"); ok {
		if allow, err := strconv.ParseBool(v); err == nil && allow {
			c.RequireDockerVerify = false
		}
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// HasLLMCredential reports whether a Gemini credential is configured,
// gating the LLM proposer/translator/repair without treating absence
// as an error (spec §5).
func (c Config) HasLLMCredential() bool {
	return c.GeminiAPIKey != ""
}

// CanPublishToGitLab reports whether every forge variable required to
// publish an MR comment is present and publishing hasn't been
// suppressed via --skip-gitlab-publish.
func (c Config) CanPublishToGitLab() bool {
	if c.SkipGitLabPublish {
		return false
	}
	return c.GitLabServerURL != "" && c.GitLabToken != "" && c.GitLabProjectID != "" && c.GitLabMRIID != ""
}
