package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.ServerURL != "http://localhost:6095" {
		t.Errorf("Expected default ServerURL 'http://localhost:6095', got '%s'", cfg.ServerURL)
	}

	if cfg.Port != "8090" {
		t.Errorf("Expected default Port '8090', got '%s'", cfg.Port)
	}

	if cfg.ChunkSize != 50 {
		t.Errorf("Expected default ChunkSize 50, got %d", cfg.ChunkSize)
	}

	if cfg.Exaggeration != 0.5 {
		t.Errorf("Expected default Exaggeration 0.5, got %f", cfg.Exaggeration)
	}

	if !cfg.AutoPlay {
		t.Error("Expected AutoPlay to default to true")
	}

	if !cfg.AutoAdvance {
		t.Error("Expected AutoAdvance to default to true")
	}

	if cfg.DurationProbeTimeoutMs != 2000 {
		t.Errorf("Expected default DurationProbeTimeoutMs 2000, got %d", cfg.DurationProbeTimeoutMs)
	}
}

func TestLoad_Overrides(t *testing.T) {
	os.Setenv("CHATTERBOX_SERVER_URL", "http://tts.internal:9000")
	os.Setenv("CHUNK_SIZE", "25")
	os.Setenv("AUTO_PLAY", "false")
	defer os.Unsetenv("CHATTERBOX_SERVER_URL")
	defer os.Unsetenv("CHUNK_SIZE")
	defer os.Unsetenv("AUTO_PLAY")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.ServerURL != "http://tts.internal:9000" {
		t.Errorf("Expected ServerURL 'http://tts.internal:9000', got '%s'", cfg.ServerURL)
	}

	if cfg.ChunkSize != 25 {
		t.Errorf("Expected ChunkSize 25, got %d", cfg.ChunkSize)
	}

	if cfg.AutoPlay {
		t.Error("Expected AutoPlay false after override")
	}
}

func TestLoad_InvalidChunkSize(t *testing.T) {
	os.Setenv("CHUNK_SIZE", "0")
	defer os.Unsetenv("CHUNK_SIZE")

	_, err := LoadFromEnv()
	if err == nil {
		t.Error("Expected error for CHUNK_SIZE=0")
	}
}

func TestLoad_InvalidProbeTimeout(t *testing.T) {
	os.Setenv("DURATION_PROBE_TIMEOUT_MS", "-5")
	defer os.Unsetenv("DURATION_PROBE_TIMEOUT_MS")

	_, err := LoadFromEnv()
	if err == nil {
		t.Error("Expected error for negative DURATION_PROBE_TIMEOUT_MS")
	}
}

func TestDurationProbeTimeout(t *testing.T) {
	cfg := &Config{DurationProbeTimeoutMs: 1500}
	if got := cfg.DurationProbeTimeout().Milliseconds(); got != 1500 {
		t.Errorf("Expected 1500ms, got %dms", got)
	}
}
