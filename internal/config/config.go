// Package config handles loading and validating the interpreter configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
)

// Config is the root configuration for the interpreter.
type Config struct {
	Paths         PathsConfig         `mapstructure:"paths"`
	Audio         AudioConfig         `mapstructure:"audio"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Translation   TranslationConfig   `mapstructure:"translation"`
	TTS           TTSConfig           `mapstructure:"tts"`
	Status        StatusConfig        `mapstructure:"status"`
	Notify        NotifyConfig        `mapstructure:"notify"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// PathsConfig holds the output locations.
type PathsConfig struct {
	LogsDir          string `mapstructure:"logs_dir"`
	OutputDir        string `mapstructure:"output_dir"`
	ConversationsDir string `mapstructure:"conversations_dir"`
}

// AudioConfig holds file allow-list and microphone segmentation settings.
type AudioConfig struct {
	AllowedExtensions     []string      `mapstructure:"allowed_extensions"`
	SampleRate            int           `mapstructure:"sample_rate"`
	FramesPerBuffer       int           `mapstructure:"frames_per_buffer"`
	EnergyThreshold       float64       `mapstructure:"energy_threshold"`
	SpeechStart           time.Duration `mapstructure:"speech_start"`
	SilenceDuration       time.Duration `mapstructure:"silence_duration"`
	MinSpeech             time.Duration `mapstructure:"min_speech"`
	MaxUtterance          time.Duration `mapstructure:"max_utterance"`
	PreRoll               time.Duration `mapstructure:"pre_roll"`
	PollInterval          time.Duration `mapstructure:"poll_interval"`
	DiscardDuringPlayback bool          `mapstructure:"discard_during_playback"`
}

// TranscriptionConfig selects and configures the speech-to-text backend.
type TranscriptionConfig struct {
	Backend string        `mapstructure:"backend"` // "openai" or "local"
	Timeout time.Duration `mapstructure:"timeout"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Local   LocalConfig   `mapstructure:"local"`
}

// TranslationConfig selects and configures the translation backend.
type TranslationConfig struct {
	Backend        string        `mapstructure:"backend"` // "openai" or "local"
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	OpenAI         OpenAIConfig  `mapstructure:"openai"`
	Local          LocalConfig   `mapstructure:"local"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// LocalConfig holds self-hosted model settings.
type LocalConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	// Type selects the whisper flavour for transcription: "openai" (default) or
	// "asr" (ahmetoner/whisper-asr-webservice). Unused for translation.
	Type      string `mapstructure:"type"`
	Model     string `mapstructure:"model"`
	VADFilter bool   `mapstructure:"vad_filter"`
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Backend string      `mapstructure:"backend"` // "piper"
	Piper   PiperConfig `mapstructure:"piper"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// For a single Piper instance that serves both languages, set Endpoint.
// For per-language instances, set Endpoints which maps ISO-639-1 codes to
// individual Wyoming TCP endpoints; Endpoint is then the fallback.
type PiperConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`
	Endpoints map[string]string `mapstructure:"endpoints"`
	Voices    map[string]string `mapstructure:"voices"`
}

// StatusConfig configures the optional live status transports (realtime only).
type StatusConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
	GRPC GRPCConfig `mapstructure:"grpc"`
	MQTT MQTTConfig `mapstructure:"mqtt"`
}

// HTTPConfig configures the HTTP/WebSocket status transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// GRPCConfig configures the gRPC health transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// MQTTConfig configures the MQTT event publisher.
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
}

// NotifyConfig toggles desktop notifications.
type NotifyConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`  // debug, info, warn, error
	Format   string `mapstructure:"format"` // console format: text, json
	Timezone string `mapstructure:"timezone"`
}

// Load reads the configuration from .env, file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./vinterp.yaml, ./configs/vinterp.yaml, /etc/vinterp/vinterp.yaml.
func Load(configFile string) (*Config, error) {
	// API keys usually live in .env next to the binary's working directory.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("reading .env", "error", err)
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("vinterp")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/vinterp")
	}

	// Environment variables: VINTERP_TRANSLATION_BACKEND, VINTERP_LOGGING_LEVEL, etc.
	v.SetEnvPrefix("VINTERP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional: env vars and defaults are sufficient.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("%w: reading config: %v", message.ErrConfiguration, err)
		}
		slog.Debug("no config file found, using defaults and environment variables")
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshalling config: %v", message.ErrConfiguration, err)
	}

	cfg.Transcription.OpenAI.APIKey = resolveEnvRef(cfg.Transcription.OpenAI.APIKey)
	cfg.Translation.OpenAI.APIKey = resolveEnvRef(cfg.Translation.OpenAI.APIKey)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.logs_dir", "logs")
	v.SetDefault("paths.output_dir", "data/output")
	v.SetDefault("paths.conversations_dir", "logs/conversations")

	v.SetDefault("audio.allowed_extensions", []string{".wav", ".mp3", ".m4a"})
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.frames_per_buffer", 512)
	v.SetDefault("audio.energy_threshold", 400)
	v.SetDefault("audio.speech_start", "96ms")
	v.SetDefault("audio.silence_duration", "800ms")
	v.SetDefault("audio.min_speech", "300ms")
	v.SetDefault("audio.max_utterance", "30s")
	v.SetDefault("audio.pre_roll", "300ms")
	v.SetDefault("audio.poll_interval", "20ms")
	v.SetDefault("audio.discard_during_playback", true)

	v.SetDefault("transcription.backend", "openai")
	v.SetDefault("transcription.timeout", "60s")
	v.SetDefault("transcription.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("transcription.openai.model", "whisper-1")
	v.SetDefault("transcription.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("transcription.local.endpoint", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("transcription.local.type", "openai")

	v.SetDefault("translation.backend", "openai")
	v.SetDefault("translation.timeout", "30s")
	v.SetDefault("translation.max_attempts", 3)
	v.SetDefault("translation.initial_backoff", "500ms")
	v.SetDefault("translation.max_backoff", "4s")
	v.SetDefault("translation.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("translation.openai.model", "gpt-4o-mini")
	v.SetDefault("translation.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("translation.local.endpoint", "http://localhost:11434/api/generate")
	v.SetDefault("translation.local.model", "llama3")

	v.SetDefault("tts.enabled", false)
	v.SetDefault("tts.backend", "piper")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")

	v.SetDefault("status.http.enabled", false)
	v.SetDefault("status.http.port", 8080)
	v.SetDefault("status.grpc.enabled", false)
	v.SetDefault("status.grpc.port", 50051)
	v.SetDefault("status.mqtt.enabled", false)
	v.SetDefault("status.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("status.mqtt.topic", "vinterp")
	v.SetDefault("status.mqtt.client_id", "vinterp")

	v.SetDefault("notify.enabled", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.timezone", "Asia/Bangkok")
}

// Validate checks everything that must hold before a session starts.
// Every failure wraps message.ErrConfiguration.
func (c *Config) Validate() error {
	switch c.Transcription.Backend {
	case "openai":
		if c.Transcription.OpenAI.APIKey == "" || isEnvRef(c.Transcription.OpenAI.APIKey) {
			return fmt.Errorf("%w: transcription.openai.api_key is not set (export OPENAI_API_KEY)", message.ErrConfiguration)
		}
	case "local":
		if c.Transcription.Local.Endpoint == "" {
			return fmt.Errorf("%w: transcription.local.endpoint is empty", message.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown transcription backend %q", message.ErrConfiguration, c.Transcription.Backend)
	}

	switch c.Translation.Backend {
	case "openai":
		if c.Translation.OpenAI.APIKey == "" || isEnvRef(c.Translation.OpenAI.APIKey) {
			return fmt.Errorf("%w: translation.openai.api_key is not set (export OPENAI_API_KEY)", message.ErrConfiguration)
		}
	case "local":
		if c.Translation.Local.Endpoint == "" {
			return fmt.Errorf("%w: translation.local.endpoint is empty", message.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown translation backend %q", message.ErrConfiguration, c.Translation.Backend)
	}

	if c.Translation.MaxAttempts < 1 {
		return fmt.Errorf("%w: translation.max_attempts must be at least 1", message.ErrConfiguration)
	}
	if c.TTS.Enabled && c.TTS.Backend != "piper" {
		return fmt.Errorf("%w: unknown tts backend %q", message.ErrConfiguration, c.TTS.Backend)
	}
	if len(c.Audio.AllowedExtensions) == 0 {
		return fmt.Errorf("%w: audio.allowed_extensions is empty", message.ErrConfiguration)
	}
	if c.Audio.PollInterval <= 0 {
		return fmt.Errorf("%w: audio.poll_interval must be positive", message.ErrConfiguration)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone used for log timestamps and
// daily rotation.
func (c *Config) Location() (*time.Location, error) {
	if c.Logging.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Logging.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: logging.timezone: %v", message.ErrConfiguration, err)
	}
	return loc, nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if isEnvRef(val) {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

func isEnvRef(val string) bool {
	return strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}")
}
