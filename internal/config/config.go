package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	AudioDir string `toml:"audio_dir"`
	InboxDir string `toml:"inbox_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Provider contains connection settings for one model provider.
type Provider struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	Referer           string  `toml:"referer"`
	Title             string  `toml:"title"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// Providers groups the supported model providers by name.
type Providers struct {
	OpenRouter Provider `toml:"openrouter"`
	OpenAI     Provider `toml:"openai"`
}

// Router contains Model Router cache settings.
type Router struct {
	CacheTTLSeconds int `toml:"cache_ttl_seconds"`
}

// Extraction contains claim extraction settings.
type Extraction struct {
	MinConfidence      float64 `toml:"min_confidence"`
	MaxClaims          int     `toml:"max_claims"`
	MaxTranscriptChars int     `toml:"max_transcript_chars"`
}

// Resolver contains entity resolution thresholds.
type Resolver struct {
	MinConfidence float64 `toml:"min_confidence"`
	TieEpsilon    float64 `toml:"tie_epsilon"`
	ModelHints    bool    `toml:"model_hints"`
}

// Drafts contains confirmation gate and lifecycle settings.
type Drafts struct {
	RetentionDays        int     `toml:"retention_days"`
	DefaultThreshold     float64 `toml:"default_threshold"`
	RejectionPenalty     float64 `toml:"rejection_penalty"`
	MaxTrustBoost        float64 `toml:"max_trust_boost"`
	AutoApply            bool    `toml:"auto_apply"`
	SweepIntervalMinutes int     `toml:"sweep_interval_minutes"`
}

// Roster contains roster read model settings.
type Roster struct {
	CacheTTLSeconds int `toml:"cache_ttl_seconds"`
}

// Inbox contains the drop-folder submission settings.
type Inbox struct {
	Enabled bool   `toml:"enabled"`
	OrgID   string `toml:"org_id"`
	CoachID string `toml:"coach_id"`
	Channel string `toml:"channel"`
}

// Workflow contains configuration for daemon timing and retry budgets.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
	MaxAttempts        int `toml:"max_attempts"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Sideline.
//
// Configuration sections by subsystem:
//   - Paths: data, log, audio and inbox directories plus the API bind address
//   - Providers: model provider credentials and rate limits
//   - Router: Model Router cache lifetime
//   - Extraction, Resolver, Drafts: pipeline thresholds
//   - Roster: roster candidate cache lifetime
//   - Inbox: drop-folder submissions
//   - Workflow: daemon polling intervals, heartbeats and retry budget
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Providers  Providers  `toml:"providers"`
	Router     Router     `toml:"router"`
	Extraction Extraction `toml:"extraction"`
	Resolver   Resolver   `toml:"resolver"`
	Drafts     Drafts     `toml:"drafts"`
	Roster     Roster     `toml:"roster"`
	Inbox      Inbox      `toml:"inbox"`
	Workflow   Workflow   `toml:"workflow"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sideline.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.AudioDir}
	if c.Inbox.Enabled {
		dirs = append(dirs, c.Paths.InboxDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "sideline.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "sidelined.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ProviderConfig is the flattened connection view handed to provider clients.
type ProviderConfig struct {
	Name              string
	APIKey            string
	BaseURL           string
	Referer           string
	Title             string
	TimeoutSeconds    int
	RequestsPerSecond float64
	Burst             int
}

// ProviderNames lists the providers the dispatcher knows how to build.
func ProviderNames() []string {
	return []string{ProviderOpenRouter, ProviderOpenAI}
}

const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

// GetProvider returns the connection settings for the named provider.
func (c *Config) GetProvider(name string) (ProviderConfig, bool) {
	var p Provider
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderOpenRouter:
		p = c.Providers.OpenRouter
	case ProviderOpenAI:
		p = c.Providers.OpenAI
	default:
		return ProviderConfig{}, false
	}
	return ProviderConfig{
		Name:              strings.ToLower(strings.TrimSpace(name)),
		APIKey:            strings.TrimSpace(p.APIKey),
		BaseURL:           strings.TrimSpace(p.BaseURL),
		Referer:           strings.TrimSpace(p.Referer),
		Title:             strings.TrimSpace(p.Title),
		TimeoutSeconds:    p.TimeoutSeconds,
		RequestsPerSecond: p.RequestsPerSecond,
		Burst:             p.Burst,
	}, true
}
