// Package config loads pmassist configuration from a TOML file and the process
// environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/pkg/dispatch"
	"github.com/papercomputeco/pmassist/pkg/gemini"
	"github.com/papercomputeco/pmassist/pkg/llm"
	"github.com/papercomputeco/pmassist/pkg/topicgate"
)

const (
	// DefaultAPIKeyEnv is the environment variable holding the remote API key.
	DefaultAPIKeyEnv = "PMASSIST_GEMINI_API_KEY"

	// PlaceholderAPIKey is the value shipped in example files; it counts as unset.
	PlaceholderAPIKey = "your_gemini_api_key_here"

	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// ErrMissingAPIKey is returned when no usable API key is configured.
var ErrMissingAPIKey = errors.New("gemini API key is not set")

// Config is the full pmassist configuration.
type Config struct {
	Gemini   GeminiConfig   `toml:"gemini"`
	Gate     GateConfig     `toml:"gate"`
	Dispatch DispatchConfig `toml:"dispatch"`
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Log      LogConfig      `toml:"log"`
}

// GeminiConfig configures the remote endpoint.
type GeminiConfig struct {
	BaseURL   string   `toml:"base_url"`
	Model     string   `toml:"model"`
	APIKeyEnv string   `toml:"api_key_env"`
	Timeout   Duration `toml:"timeout"`

	// A shared fallback key is a deployment anti-pattern; both fields must be set
	// for it to be used.
	AllowFallbackKey bool   `toml:"allow_fallback_key"`
	FallbackAPIKey   string `toml:"fallback_api_key"`
}

// GateConfig configures the Topic Gate.
type GateConfig struct {
	Policy    string   `toml:"policy"`
	FailOpen  bool     `toml:"fail_open"`
	CacheSize int      `toml:"cache_size"`
	CacheTTL  Duration `toml:"cache_ttl"`
}

// DispatchConfig tunes the dispatcher.
type DispatchConfig struct {
	HistoryWindow  int           `toml:"history_window"`
	RejectionDelay Duration      `toml:"rejection_delay"`
	DefaultDelay   Duration      `toml:"default_delay"`
	TableDelay     Duration      `toml:"table_delay"`
	DefaultProfile ProfileConfig `toml:"default_profile"`
	TableProfile   ProfileConfig `toml:"table_profile"`
}

// ProfileConfig holds the decoding parameters of one generation profile.
type ProfileConfig struct {
	Temperature     float64 `toml:"temperature"`
	TopK            int     `toml:"top_k"`
	TopP            float64 `toml:"top_p"`
	MaxOutputTokens int     `toml:"max_output_tokens"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Listen string `toml:"listen"`

	// RateLimit is the sustained /api/chat rate in requests per second; zero disables it.
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
}

// StorageConfig selects where conversations are kept.
type StorageConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Debug bool `toml:"debug"`
}

// Default returns the built-in configuration.
func Default() *Config {
	d := dispatch.DefaultConfig()
	return &Config{
		Gemini: GeminiConfig{
			BaseURL:   gemini.DefaultBaseURL,
			Model:     gemini.DefaultModel,
			APIKeyEnv: DefaultAPIKeyEnv,
			Timeout:   Duration(gemini.DefaultTimeout),
		},
		Gate: GateConfig{
			Policy:    string(topicgate.PolicyHeuristic),
			FailOpen:  true,
			CacheSize: 1000,
			CacheTTL:  Duration(10 * time.Minute),
		},
		Dispatch: DispatchConfig{
			HistoryWindow:  d.HistoryWindow,
			RejectionDelay: Duration(d.RejectionDelay),
			DefaultDelay:   Duration(d.DefaultDelay),
			TableDelay:     Duration(d.TableDelay),
			DefaultProfile: profileConfig(d.DefaultProfile),
			TableProfile:   profileConfig(d.TableProfile),
		},
		Server: ServerConfig{
			Listen:    ":8080",
			RateLimit: 2,
			RateBurst: 5,
		},
		Storage: StorageConfig{
			Backend: StorageSQLite,
			Path:    DefaultDBPath(),
		},
	}
}

// DefaultDBPath is ~/.pmassist/pmassist.db, or a relative path when the home
// directory is unknown.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "pmassist.db"
	}
	return filepath.Join(home, ".pmassist", "pmassist.db")
}

// Load reads the TOML file at path over the defaults and validates the result. An
// empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.Gemini.BaseURL); err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, fmt.Errorf("gemini.base_url must be an absolute URL, got %q", c.Gemini.BaseURL))
	}
	if strings.TrimSpace(c.Gemini.Model) == "" {
		errs = append(errs, errors.New("gemini.model is required"))
	}

	switch topicgate.Policy(c.Gate.Policy) {
	case topicgate.PolicyHeuristic, topicgate.PolicyModel:
	default:
		errs = append(errs, fmt.Errorf("gate.policy must be %q or %q, got %q",
			topicgate.PolicyHeuristic, topicgate.PolicyModel, c.Gate.Policy))
	}
	if c.Gate.CacheSize < 0 {
		errs = append(errs, errors.New("gate.cache_size must not be negative"))
	}

	if err := c.DispatchConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("dispatch: %w", err))
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be %q or %q, got %q",
			StorageMemory, StorageSQLite, c.Storage.Backend))
	}

	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		errs = append(errs, errors.New("server rate limits must not be negative"))
	}

	return errors.Join(errs...)
}

// APIKey resolves the remote API key from the environment. A missing or placeholder
// key is an error unless the fallback key is explicitly enabled.
func (c *Config) APIKey(getenv func(string) string, logger *zap.Logger) (string, error) {
	env := c.Gemini.APIKeyEnv
	if env == "" {
		env = DefaultAPIKeyEnv
	}

	key := strings.TrimSpace(getenv(env))
	if key != "" && key != PlaceholderAPIKey {
		return key, nil
	}

	if c.Gemini.AllowFallbackKey && c.Gemini.FallbackAPIKey != "" {
		logger.Warn("using configured fallback API key; set the environment variable instead",
			zap.String("env", env),
		)
		return c.Gemini.FallbackAPIKey, nil
	}

	return "", fmt.Errorf("%w: export %s", ErrMissingAPIKey, env)
}

// GateConfig converts the gate section.
func (c *Config) GateConfig() topicgate.Config {
	return topicgate.Config{
		Policy:    topicgate.Policy(c.Gate.Policy),
		FailOpen:  c.Gate.FailOpen,
		CacheSize: c.Gate.CacheSize,
		CacheTTL:  time.Duration(c.Gate.CacheTTL),
	}
}

// DispatchConfig converts the dispatch section.
func (c *Config) DispatchConfig() dispatch.Config {
	d := c.Dispatch
	return dispatch.Config{
		HistoryWindow:  d.HistoryWindow,
		DefaultProfile: d.DefaultProfile.profile("default"),
		TableProfile:   d.TableProfile.profile("table"),
		RejectionDelay: time.Duration(d.RejectionDelay),
		DefaultDelay:   time.Duration(d.DefaultDelay),
		TableDelay:     time.Duration(d.TableDelay),
		SafetySettings: llm.DefaultSafetySettings(),
	}
}

func (p ProfileConfig) profile(name string) dispatch.Profile {
	return dispatch.Profile{
		Name:            name,
		Temperature:     p.Temperature,
		TopK:            p.TopK,
		TopP:            p.TopP,
		MaxOutputTokens: p.MaxOutputTokens,
	}
}

func profileConfig(p dispatch.Profile) ProfileConfig {
	return ProfileConfig{
		Temperature:     p.Temperature,
		TopK:            p.TopK,
		TopP:            p.TopP,
		MaxOutputTokens: p.MaxOutputTokens,
	}
}
