package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vinterp.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(writeConfig(t, "logging:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Translation.MaxAttempts != 3 {
		t.Errorf("max attempts = %d, want 3", cfg.Translation.MaxAttempts)
	}
	if cfg.Audio.SilenceDuration != 800*time.Millisecond {
		t.Errorf("silence duration = %v", cfg.Audio.SilenceDuration)
	}
	if cfg.Audio.EnergyThreshold != 400 {
		t.Errorf("energy threshold = %v", cfg.Audio.EnergyThreshold)
	}
	if len(cfg.Audio.AllowedExtensions) != 3 {
		t.Errorf("allowed extensions = %v", cfg.Audio.AllowedExtensions)
	}
	if cfg.Translation.OpenAI.APIKey != "sk-test" || cfg.Transcription.OpenAI.APIKey != "sk-test" {
		t.Errorf("api key references not resolved: %q %q", cfg.Translation.OpenAI.APIKey, cfg.Transcription.OpenAI.APIKey)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("file value not applied: level %q", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VINTERP_TRANSLATION_BACKEND", "local")

	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Translation.Backend != "local" {
		t.Fatalf("translation backend = %q, want local", cfg.Translation.Backend)
	}
}

func TestValidateMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); !errors.Is(err, message.ErrConfiguration) {
		t.Fatalf("Validate error = %v, want configuration error", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	tests := map[string]string{
		"backend":  "translation:\n  backend: gemini\n",
		"attempts": "translation:\n  max_attempts: 0\n",
		"timezone": "logging:\n  timezone: Mars/Olympus\n",
		"tts":      "tts:\n  enabled: true\n  backend: espeak\n",
	}
	for name, body := range tests {
		cfg, err := Load(writeConfig(t, body))
		if err != nil {
			t.Fatalf("%s: Load failed: %v", name, err)
		}
		if err := cfg.Validate(); !errors.Is(err, message.ErrConfiguration) {
			t.Errorf("%s: Validate error = %v, want configuration error", name, err)
		}
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, message.ErrConfiguration) {
		t.Fatalf("Load error = %v, want configuration error", err)
	}
}
