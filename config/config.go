// ABOUTME: Client configuration from RETRO_* environment variables and an optional YAML file.
// ABOUTME: Environment values override the file; validation rejects unusable combinations.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingServerURL = errors.New(
		"RETRO_SERVER_URL is not set; the client needs the board server's base URL",
	)
	ErrMissingUserID = errors.New(
		"RETRO_USER_ID is not set; the client needs the session identity",
	)
	ErrHeartbeatTooLong = errors.New(
		"RETRO_HEARTBEAT_INTERVAL must stay under 30s, the server's liveness timeout",
	)
)

// serverLivenessTimeout is the server's inactivity cutoff; the heartbeat
// interval must be strictly shorter.
const serverLivenessTimeout = 30 * time.Second

// Config holds everything needed to run a board client session.
type Config struct {
	ServerURL string `yaml:"server_url"` // REST base URL, e.g. https://retro.example.com
	StreamURL string `yaml:"stream_url"` // websocket URL; derived from ServerURL when empty
	AuthToken string `yaml:"auth_token"` // opaque session token, passed through untouched
	UserID    string `yaml:"user_id"`
	Alias     string `yaml:"alias"`

	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	QueueCapacity     int           `yaml:"queue_capacity"`
	JournalPath       string        `yaml:"journal_path"` // empty disables the event journal
}

// Load reads the optional YAML config file at path (skipped when path is
// empty or missing), overlays RETRO_* environment variables, applies
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Optional file; fall through to env.
		default:
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.ServerURL = envOrDefault("RETRO_SERVER_URL", cfg.ServerURL)
	cfg.StreamURL = envOrDefault("RETRO_STREAM_URL", cfg.StreamURL)
	cfg.AuthToken = envOrDefault("RETRO_AUTH_TOKEN", cfg.AuthToken)
	cfg.UserID = envOrDefault("RETRO_USER_ID", cfg.UserID)
	cfg.Alias = envOrDefault("RETRO_ALIAS", cfg.Alias)
	cfg.JournalPath = envOrDefault("RETRO_JOURNAL_PATH", cfg.JournalPath)

	if v := os.Getenv("RETRO_HEARTBEAT_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse RETRO_HEARTBEAT_INTERVAL: %w", err)
		}
		cfg.HeartbeatInterval = d
	}
	if v := os.Getenv("RETRO_QUEUE_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse RETRO_QUEUE_CAPACITY: %w", err)
		}
		cfg.QueueCapacity = n
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 15 * time.Second
	}
	if c.QueueCapacity == 0 {
		c.QueueCapacity = 100
	}
	if c.StreamURL == "" && c.ServerURL != "" {
		c.StreamURL = deriveStreamURL(c.ServerURL)
	}
}

func (c *Config) validate() error {
	if c.ServerURL == "" {
		return ErrMissingServerURL
	}
	if c.UserID == "" {
		return ErrMissingUserID
	}
	if c.HeartbeatInterval >= serverLivenessTimeout {
		return fmt.Errorf("%w: got %s", ErrHeartbeatTooLong, c.HeartbeatInterval)
	}
	return nil
}

// deriveStreamURL rewrites an http(s) base URL into the ws(s) stream
// endpoint.
func deriveStreamURL(serverURL string) string {
	switch {
	case len(serverURL) > 8 && serverURL[:8] == "https://":
		return "wss://" + serverURL[8:] + "/api/stream"
	case len(serverURL) > 7 && serverURL[:7] == "http://":
		return "ws://" + serverURL[7:] + "/api/stream"
	default:
		return serverURL + "/api/stream"
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
