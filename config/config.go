// Package config loads runtime settings from the environment and an optional
// YAML file. Environment variables use the GENERATE_AGENT prefix and win over
// file values.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Settings is the full runtime configuration.
type Settings struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	DBPath      string `mapstructure:"db_path"`
	// QualityRules optionally points at a YAML ruleset replacing the stock
	// QC rules.
	QualityRules string `mapstructure:"quality_rules"`

	Server    ServerSettings   `mapstructure:"server"`
	Budget    BudgetSettings   `mapstructure:"budget"`
	Sandbox   SandboxSettings  `mapstructure:"sandbox"`
	Providers ProviderSettings `mapstructure:"providers"`
}

// ServerSettings configure the HTTP API.
type ServerSettings struct {
	Addr      string `mapstructure:"addr"`
	BasePath  string `mapstructure:"base_path"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// BudgetSettings configure the spend tracker and auto-pause policy.
type BudgetSettings struct {
	DefaultLimitUSD  float64   `mapstructure:"default_limit_usd"`
	AlertPercentages []float64 `mapstructure:"alert_percentages"`
	AutoPauseEnabled bool      `mapstructure:"auto_pause_enabled"`
	AutoPauseRatio   float64   `mapstructure:"auto_pause_ratio"`
}

// SandboxSettings configure code execution.
type SandboxSettings struct {
	Tier           string `mapstructure:"tier"` // "local", "process" or "remote"
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxOutputKB    int    `mapstructure:"max_output_kb"`
	MaxMemoryMB    int    `mapstructure:"max_memory_mb"`
	RemoteURL      string `mapstructure:"remote_url"`
	RemoteAPIKey   string `mapstructure:"remote_api_key"`
}

// ProviderSettings select external providers by name and carry their keys.
type ProviderSettings struct {
	Model        string `mapstructure:"model"` // "openai", "anthropic" or "mock"
	OpenAIKey    string `mapstructure:"openai_key"`
	AnthropicKey string `mapstructure:"anthropic_key"`

	Search        string `mapstructure:"search"`
	Scrape        string `mapstructure:"scrape"`
	Video         string `mapstructure:"video"`
	TTS           string `mapstructure:"tts"`
	TavilyKey     string `mapstructure:"tavily_key"`
	FirecrawlKey  string `mapstructure:"firecrawl_key"`
	RunwayKey     string `mapstructure:"runway_key"`
	ElevenLabsKey string `mapstructure:"elevenlabs_key"`
}

// Load builds Settings from defaults, the optional YAML file at path, and the
// environment. An empty path skips the file.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GENERATE_AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("db_path", ".generate-agent/agent.db")

	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.base_path", "/v1")

	v.SetDefault("budget.default_limit_usd", 100.0)
	v.SetDefault("budget.alert_percentages", []float64{50, 80, 100})
	v.SetDefault("budget.auto_pause_enabled", true)
	v.SetDefault("budget.auto_pause_ratio", 1.0)

	v.SetDefault("sandbox.tier", "local")
	v.SetDefault("sandbox.timeout_seconds", 30)
	v.SetDefault("sandbox.max_output_kb", 64)
	v.SetDefault("sandbox.max_memory_mb", 512)

	v.SetDefault("providers.model", "mock")
	v.SetDefault("providers.search", "mock")
	v.SetDefault("providers.scrape", "mock")
	v.SetDefault("providers.video", "mock")
	v.SetDefault("providers.tts", "mock")
}

// Validate rejects configurations the engine cannot start with.
func (s *Settings) Validate() error {
	switch s.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("config: unknown environment %q", s.Environment)
	}
	if s.Budget.DefaultLimitUSD <= 0 {
		return fmt.Errorf("config: budget.default_limit_usd must be positive")
	}
	if s.Budget.AutoPauseRatio <= 0 {
		return fmt.Errorf("config: budget.auto_pause_ratio must be positive")
	}
	for _, pct := range s.Budget.AlertPercentages {
		if pct <= 0 || pct > 100 {
			return fmt.Errorf("config: alert percentage %v out of range (0, 100]", pct)
		}
	}
	switch s.Sandbox.Tier {
	case "local", "process", "remote":
	default:
		return fmt.Errorf("config: unknown sandbox tier %q", s.Sandbox.Tier)
	}
	if s.Sandbox.Tier == "remote" && s.Sandbox.RemoteURL == "" {
		return fmt.Errorf("config: sandbox.remote_url is required for the remote tier")
	}
	if s.Environment == "production" && s.Sandbox.Tier == "local" {
		return fmt.Errorf("config: the local sandbox tier is not allowed in production")
	}
	if s.Sandbox.TimeoutSeconds <= 0 || s.Sandbox.MaxOutputKB <= 0 {
		return fmt.Errorf("config: sandbox ceilings must be positive")
	}
	switch s.Providers.Model {
	case "mock":
	case "openai":
		if s.Providers.OpenAIKey == "" {
			return fmt.Errorf("config: providers.openai_key is required for the openai model")
		}
	case "anthropic":
		if s.Providers.AnthropicKey == "" {
			return fmt.Errorf("config: providers.anthropic_key is required for the anthropic model")
		}
	default:
		return fmt.Errorf("config: unknown model provider %q", s.Providers.Model)
	}
	return nil
}
