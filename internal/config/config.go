package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the stream player
type Config struct {
	// Chatterbox inference server base URL
	ServerURL string `envconfig:"CHATTERBOX_SERVER_URL" default:"http://localhost:6095"`

	// Local HTTP port for health/readiness/metrics endpoints
	Port string `envconfig:"PORT" default:"8090"`

	// Synthesis parameter defaults (overridable per voice profile)
	VoiceID      string  `envconfig:"VOICE_ID" default:""`
	Exaggeration float64 `envconfig:"EXAGGERATION" default:"0.5"`
	Temperature  float64 `envconfig:"TEMPERATURE" default:"0.8"`
	CFGWeight    float64 `envconfig:"CFG_WEIGHT" default:"0.5"`
	ChunkSize    int     `envconfig:"CHUNK_SIZE" default:"50"` // Tokens per streamed chunk

	// Playback configuration
	PlaybackEnabled bool `envconfig:"PLAYBACK_ENABLED" default:"true"` // false = export-only (no audio device)
	AutoPlay        bool `envconfig:"AUTO_PLAY" default:"true"`        // Play the first fragment as soon as it arrives
	AutoAdvance     bool `envconfig:"AUTO_ADVANCE" default:"true"`     // Advance to sequence id+1 on natural end

	// Duration probing is best-effort; fragments whose WAV header cannot be
	// parsed within this window keep an unknown duration.
	DurationProbeTimeoutMs int `envconfig:"DURATION_PROBE_TIMEOUT_MS" default:"2000"`

	// Export configuration
	OutputPath string `envconfig:"OUTPUT_PATH" default:""` // Write assembled audio here after a completed stream

	// Saved voice profiles
	VoicesDir string `envconfig:"VOICES_DIR" default:"saved_voices"`
	Voice     string `envconfig:"VOICE" default:""` // Saved voice name or id to resolve at startup

	// Server readiness polling before the first stream
	ServerWaitAttempts  int `envconfig:"SERVER_WAIT_ATTEMPTS" default:"5"`
	ServerWaitBackoffMs int `envconfig:"SERVER_WAIT_BACKOFF_MS" default:"500"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("CHATTERBOX_SERVER_URL is required")
	}
	if _, err := url.Parse(c.ServerURL); err != nil {
		return fmt.Errorf("CHATTERBOX_SERVER_URL is not a valid URL: %w", err)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.DurationProbeTimeoutMs <= 0 {
		return fmt.Errorf("DURATION_PROBE_TIMEOUT_MS must be positive, got %d", c.DurationProbeTimeoutMs)
	}
	return nil
}

// DurationProbeTimeout returns the probe window as a time.Duration
func (c *Config) DurationProbeTimeout() time.Duration {
	return time.Duration(c.DurationProbeTimeoutMs) * time.Millisecond
}

// ServerWaitBackoff returns the readiness polling backoff as a time.Duration
func (c *Config) ServerWaitBackoff() time.Duration {
	return time.Duration(c.ServerWaitBackoffMs) * time.Millisecond
}
