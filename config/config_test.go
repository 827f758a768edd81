// ABOUTME: Tests for config loading: YAML file, env overlay, defaults, and validation.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RETRO_SERVER_URL", "RETRO_STREAM_URL", "RETRO_AUTH_TOKEN",
		"RETRO_USER_ID", "RETRO_ALIAS", "RETRO_JOURNAL_PATH",
		"RETRO_HEARTBEAT_INTERVAL", "RETRO_QUEUE_CAPACITY",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETRO_SERVER_URL", "https://retro.example.com")
	t.Setenv("RETRO_USER_ID", "u1")
	t.Setenv("RETRO_ALIAS", "sam")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerURL != "https://retro.example.com" || cfg.UserID != "u1" || cfg.Alias != "sam" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.HeartbeatInterval != 15*time.Second {
		t.Errorf("HeartbeatInterval = %v, want default 15s", cfg.HeartbeatInterval)
	}
	if cfg.QueueCapacity != 100 {
		t.Errorf("QueueCapacity = %d, want default 100", cfg.QueueCapacity)
	}
	if cfg.StreamURL != "wss://retro.example.com/api/stream" {
		t.Errorf("StreamURL = %q", cfg.StreamURL)
	}
}

func TestLoadYAMLFileWithEnvOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "retro.yaml")
	yaml := `
server_url: http://file.example.com
user_id: file-user
alias: from-file
heartbeat_interval: 5s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RETRO_USER_ID", "env-user")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UserID != "env-user" {
		t.Errorf("UserID = %q, env must override file", cfg.UserID)
	}
	if cfg.Alias != "from-file" {
		t.Errorf("Alias = %q", cfg.Alias)
	}
	if cfg.HeartbeatInterval != 5*time.Second {
		t.Errorf("HeartbeatInterval = %v", cfg.HeartbeatInterval)
	}
	if cfg.StreamURL != "ws://file.example.com/api/stream" {
		t.Errorf("StreamURL = %q", cfg.StreamURL)
	}
}

func TestLoadMissingFileIsOptional(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETRO_SERVER_URL", "http://x.example.com")
	t.Setenv("RETRO_USER_ID", "u1")

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Errorf("Load with missing file = %v, want nil", err)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want error
	}{
		{
			name: "missing server url",
			env:  map[string]string{"RETRO_USER_ID": "u1"},
			want: ErrMissingServerURL,
		},
		{
			name: "missing user id",
			env:  map[string]string{"RETRO_SERVER_URL": "http://x"},
			want: ErrMissingUserID,
		},
		{
			name: "heartbeat at liveness timeout",
			env: map[string]string{
				"RETRO_SERVER_URL":         "http://x",
				"RETRO_USER_ID":            "u1",
				"RETRO_HEARTBEAT_INTERVAL": "30s",
			},
			want: ErrHeartbeatTooLong,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if !errors.Is(err, tt.want) {
				t.Errorf("Load() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadParsesDurationsAndCapacity(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETRO_SERVER_URL", "http://x")
	t.Setenv("RETRO_USER_ID", "u1")
	t.Setenv("RETRO_HEARTBEAT_INTERVAL", "10s")
	t.Setenv("RETRO_QUEUE_CAPACITY", "250")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HeartbeatInterval != 10*time.Second {
		t.Errorf("HeartbeatInterval = %v", cfg.HeartbeatInterval)
	}
	if cfg.QueueCapacity != 250 {
		t.Errorf("QueueCapacity = %d", cfg.QueueCapacity)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETRO_SERVER_URL", "http://x")
	t.Setenv("RETRO_USER_ID", "u1")
	t.Setenv("RETRO_HEARTBEAT_INTERVAL", "soon")

	if _, err := Load(""); err == nil {
		t.Error("Load accepted a malformed duration")
	}
}

func TestStreamURLNotDerivedWhenExplicit(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETRO_SERVER_URL", "https://retro.example.com")
	t.Setenv("RETRO_STREAM_URL", "wss://stream.example.com/ws")
	t.Setenv("RETRO_USER_ID", "u1")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StreamURL != "wss://stream.example.com/ws" {
		t.Errorf("StreamURL = %q", cfg.StreamURL)
	}
}
