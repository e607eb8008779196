package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the assistant backend.
// Environment variables are parsed from the HEALTHASSIST_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort       int    `envconfig:"HTTP_PORT" default:"8080"`
	CORSOrigins    string `envconfig:"CORS_ORIGINS" default:"*"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`

	// Root directory for the flat-file stores
	DataDir        string `envconfig:"DATA_DIR" default:"."`
	CheckpointPath string `envconfig:"CHECKPOINT_PATH" default:"checkpoints.db"`

	// Model Configuration
	OpenAIAPIKey          string  `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIBaseURL         string  `envconfig:"OPENAI_BASE_URL" default:""`
	AgentModel            string  `envconfig:"AGENT_MODEL" default:"gpt-4o-mini"`
	AgentTemperature      float32 `envconfig:"AGENT_TEMPERATURE" default:"0.1"`
	SpecialistTemperature float32 `envconfig:"SPECIALIST_TEMPERATURE" default:"0.1"`
	MaxToolRounds         int     `envconfig:"MAX_TOOL_ROUNDS" default:"4"`
	HistoryLimit          int     `envconfig:"HISTORY_LIMIT" default:"40"`

	// Speech
	TranscribeModel string `envconfig:"TRANSCRIBE_MODEL" default:"whisper-1"`
	SpeechModel     string `envconfig:"SPEECH_MODEL" default:"tts-1"`
	SpeechVoice     string `envconfig:"SPEECH_VOICE" default:"alloy"`

	// Outbound mail relay for emergency alerts
	SMTPServer   string `envconfig:"SMTP_SERVER" default:"smtp.gmail.com"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPEmail    string `envconfig:"SMTP_EMAIL" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`

	// Sessions
	SessionSecret string        `envconfig:"SESSION_SECRET" default:""`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	// Optional Postgres alert mirror
	DatabaseURL   string `envconfig:"DATABASE_URL" default:""`
	NotifyChannel string `envconfig:"NOTIFY_CHANNEL" default:"health_alerts"`
}

// New creates a new Config by parsing environment variables.
// Example: HEALTHASSIST_HTTP_PORT, HEALTHASSIST_OPENAI_API_KEY
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("HEALTHASSIST", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("data_dir", cfg.DataDir).
		Str("agent_model", cfg.AgentModel).
		Bool("openai_key_present", cfg.OpenAIAPIKey != "").
		Bool("smtp_configured", cfg.SMTPConfigured()).
		Bool("alert_mirror", cfg.DatabaseURL != "").
		Msg("Configuration loaded")

	return &cfg, nil
}

// Validate rejects values that would only fail later at request time.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort)
	}
	if c.MaxToolRounds < 1 {
		return fmt.Errorf("MAX_TOOL_ROUNDS must be at least 1")
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("HISTORY_LIMIT must not be negative")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		Environment:           EnvTesting,
		HTTPPort:              8080,
		CORSOrigins:           "*",
		MaxUploadBytes:        10 << 20,
		DataDir:               ".",
		CheckpointPath:        "checkpoints.db",
		AgentModel:            "gpt-4o-mini",
		AgentTemperature:      0.1,
		SpecialistTemperature: 0.1,
		MaxToolRounds:         4,
		HistoryLimit:          40,
		TranscribeModel:       "whisper-1",
		SpeechModel:           "tts-1",
		SpeechVoice:           "alloy",
		SMTPServer:            "smtp.gmail.com",
		SMTPPort:              587,
		SessionSecret:         "test-secret",
		SessionTTL:            30 * 24 * time.Hour,
		NotifyChannel:         "health_alerts",
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// SMTPConfigured reports whether alert emails can be sent at all.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPEmail != "" && c.SMTPPassword != ""
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// ResolvedCheckpointPath places a relative checkpoint path under DataDir.
func (c *Config) ResolvedCheckpointPath() string {
	if filepath.IsAbs(c.CheckpointPath) {
		return c.CheckpointPath
	}
	return filepath.Join(c.DataDir, c.CheckpointPath)
}
