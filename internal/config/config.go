package config

import (
	"fmt"
	"time"
)

// Config represents the full application configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Review  ReviewConfig  `yaml:"review"`
	Git     GitConfig     `yaml:"git"`
	GitHub  GitHubConfig  `yaml:"github"`
	Store   StoreConfig   `yaml:"store"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig configures the analysis engine subprocess.
type EngineConfig struct {
	// Binary is the engine executable resolved from PATH.
	Binary string `yaml:"binary"`

	// Model overrides the engine's default model when non-empty.
	Model string `yaml:"model"`

	// Streaming selects the long-horizon streaming mode instead of the
	// bounded single-shot mode.
	Streaming bool `yaml:"streaming"`

	// MaxTurns caps the engine's agentic turns. Zero means the mode default.
	MaxTurns int `yaml:"maxTurns"`

	// Timeout bounds a single invocation (e.g. "5m"). Zero-value means the
	// mode default.
	Timeout string `yaml:"timeout"`

	// MaxOutputBytes caps captured engine stdout. Zero means the default.
	MaxOutputBytes int `yaml:"maxOutputBytes"`

	// AllowEnv names extra environment variables passed through to the
	// engine subprocess on top of the built-in allowlist.
	AllowEnv []string `yaml:"allowEnv"`
}

// ReviewConfig configures review behavior.
type ReviewConfig struct {
	// Strictness selects the prompt posture: "strict", "normal", or "lenient".
	Strictness string `yaml:"strictness"`

	// MaxDiffChars truncates oversized diffs at the last complete file
	// boundary under this budget. Zero means the default.
	MaxDiffChars int `yaml:"maxDiffChars"`

	// Instructions are custom instructions appended to every review prompt.
	Instructions string `yaml:"instructions"`
}

type GitConfig struct {
	RepositoryDir string `yaml:"repositoryDir"`
}

// GitHubConfig configures the pull-request adapter.
type GitHubConfig struct {
	// Token is the API token, normally "${GITHUB_TOKEN}".
	Token string `yaml:"token"`

	// APIBaseURL overrides api.github.com for GHE installs.
	APIBaseURL string `yaml:"apiBaseURL"`
}

// StoreConfig configures the persistence layer.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, human
}

// EngineTimeout parses the configured timeout, or zero when unset so the
// mode default applies.
func (e EngineConfig) EngineTimeout() (time.Duration, error) {
	if e.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(e.Timeout)
	if err != nil {
		return 0, fmt.Errorf("engine.timeout: %w", err)
	}
	return d, nil
}

// Validate rejects configurations the pipeline cannot act on.
func (c Config) Validate() error {
	switch c.Review.Strictness {
	case "", "strict", "normal", "lenient":
	default:
		return fmt.Errorf("review.strictness must be strict, normal, or lenient, got %q", c.Review.Strictness)
	}
	if _, err := c.Engine.EngineTimeout(); err != nil {
		return err
	}
	if c.Engine.MaxTurns < 0 {
		return fmt.Errorf("engine.maxTurns must be >= 0, got %d", c.Engine.MaxTurns)
	}
	if c.Review.MaxDiffChars < 0 {
		return fmt.Errorf("review.maxDiffChars must be >= 0, got %d", c.Review.MaxDiffChars)
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store.path is required when store.enabled is true")
	}
	return nil
}

// Merge combines multiple configuration instances, prioritising the latter ones.
func Merge(configs ...Config) Config {
	result := Config{}
	for _, cfg := range configs {
		result = merge(result, cfg)
	}
	return result
}

func merge(base, overlay Config) Config {
	result := base

	result.Engine = chooseEngine(base.Engine, overlay.Engine)
	result.Review = chooseReview(base.Review, overlay.Review)
	result.Git = chooseGit(base.Git, overlay.Git)
	result.GitHub = chooseGitHub(base.GitHub, overlay.GitHub)
	result.Store = chooseStore(base.Store, overlay.Store)
	result.Output = chooseOutput(base.Output, overlay.Output)
	result.Logging = chooseLogging(base.Logging, overlay.Logging)

	return result
}

func chooseEngine(base, overlay EngineConfig) EngineConfig {
	result := base
	if overlay.Binary != "" {
		result.Binary = overlay.Binary
	}
	if overlay.Model != "" {
		result.Model = overlay.Model
	}
	if overlay.Streaming {
		result.Streaming = true
	}
	if overlay.MaxTurns != 0 {
		result.MaxTurns = overlay.MaxTurns
	}
	if overlay.Timeout != "" {
		result.Timeout = overlay.Timeout
	}
	if overlay.MaxOutputBytes != 0 {
		result.MaxOutputBytes = overlay.MaxOutputBytes
	}
	if len(overlay.AllowEnv) > 0 {
		result.AllowEnv = overlay.AllowEnv
	}
	return result
}

func chooseReview(base, overlay ReviewConfig) ReviewConfig {
	result := base
	if overlay.Strictness != "" {
		result.Strictness = overlay.Strictness
	}
	if overlay.MaxDiffChars != 0 {
		result.MaxDiffChars = overlay.MaxDiffChars
	}
	if overlay.Instructions != "" {
		result.Instructions = overlay.Instructions
	}
	return result
}

func chooseGit(base, overlay GitConfig) GitConfig {
	if overlay.RepositoryDir != "" {
		return overlay
	}
	return base
}

func chooseGitHub(base, overlay GitHubConfig) GitHubConfig {
	result := base
	if overlay.Token != "" {
		result.Token = overlay.Token
	}
	if overlay.APIBaseURL != "" {
		result.APIBaseURL = overlay.APIBaseURL
	}
	return result
}

func chooseStore(base, overlay StoreConfig) StoreConfig {
	if overlay.Enabled || overlay.Path != "" {
		return overlay
	}
	return base
}

func chooseOutput(base, overlay OutputConfig) OutputConfig {
	if overlay.Directory != "" {
		return overlay
	}
	return base
}

func chooseLogging(base, overlay LoggingConfig) LoggingConfig {
	if overlay.Level != "" || overlay.Format != "" {
		return overlay
	}
	return base
}
