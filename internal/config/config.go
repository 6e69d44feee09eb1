package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds service configuration derived from the environment, an optional
// .env file, and an optional YAML file.
type Config struct {
	HTTPPort           string
	MaxUploadBytes     int64
	ShutdownTimeoutSec int
	LogLevel           string
	LogFormat          string
	ConfigPath         string
	StrictConfig       bool
	NotifyWebhookURL   string
	LLM                LLMConfig
	Tracker            TrackerConfig
	Extraction         ExtractionConfig
	Watch              WatchConfig
}

// LLMConfig captures the completion endpoint used to draft meeting minutes.
type LLMConfig struct {
	BaseURL      string
	Model        string
	APIKey       string
	Temperature  float64
	TimeoutSec   int
	SystemPrompt string
}

// TrackerConfig holds process-wide tracker call settings. Credentials are never
// stored here; they arrive with each request.
type TrackerConfig struct {
	TimeoutSec int
}

// ExtractionConfig selects the action-item pattern. Empty means the built-in one.
type ExtractionConfig struct {
	Pattern string
}

// WatchConfig drives the optional inbox mode.
type WatchConfig struct {
	Enabled         bool
	InboxDir        string
	WorkerCount     int
	QueueSize       int
	JobTimeoutSec   int
	TrackerBaseURL  string
	TrackerEmail    string
	TrackerAPIToken string
	TrackerProject  string
}

const (
	defaultPort               = ":5000"
	defaultMaxUploadBytes     = 5 << 20
	defaultShutdownTimeoutSec = 10
	defaultLLMBaseURL         = "https://api.moonshot.cn/v1"
	defaultLLMModel           = "moonshot-v1-8k"
	defaultLLMTemperature     = 0.3
	defaultLLMTimeoutSec      = 60
	defaultTrackerTimeoutSec  = 30
	defaultWatchWorkers       = 1
	defaultWatchQueueSize     = 16
	maxWatchQueueSize         = 1024
	defaultWatchJobTimeoutSec = 300
	defaultInboxDir           = "runtime/inbox"
)

// DefaultSystemPrompt is the instruction sent ahead of every transcript.
const DefaultSystemPrompt = "You will be given a meeting transcript under the '##transcript'. Extract all project-related action items and assign them to the respective persons."

// Default returns the baked-in settings before any file or env overrides.
func Default() Config {
	return Config{
		HTTPPort:           defaultPort,
		MaxUploadBytes:     defaultMaxUploadBytes,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
		LogLevel:           "info",
		LogFormat:          "text",
		LLM: LLMConfig{
			BaseURL:      defaultLLMBaseURL,
			Model:        defaultLLMModel,
			Temperature:  defaultLLMTemperature,
			TimeoutSec:   defaultLLMTimeoutSec,
			SystemPrompt: DefaultSystemPrompt,
		},
		Tracker: TrackerConfig{TimeoutSec: defaultTrackerTimeoutSec},
		Watch: WatchConfig{
			InboxDir:      defaultInboxDir,
			WorkerCount:   defaultWatchWorkers,
			QueueSize:     defaultWatchQueueSize,
			JobTimeoutSec: defaultWatchJobTimeoutSec,
		},
	}
}

// Load reads configuration from .env, the YAML file, and the environment, in
// increasing order of precedence.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("dotenv load failed", "error", err)
	}

	cfg := Default()
	cfg.StrictConfig = parseBoolEnv("STRICT_CONFIG")
	cfg.ConfigPath = getEnv("CONFIG_PATH", filepath.Join("config", "config.yaml"))

	fileCfg, err := loadFileConfig(cfg.ConfigPath)
	switch {
	case err == nil:
		cfg = applyFileOverrides(cfg, fileCfg)
	case errors.Is(err, os.ErrNotExist) && !cfg.StrictConfig:
		slog.Debug("config file not found, using defaults", "path", cfg.ConfigPath)
	case cfg.StrictConfig:
		return cfg, fmt.Errorf("config load failed (%s): %w", cfg.ConfigPath, err)
	default:
		slog.Warn("config load failed, using defaults", "path", cfg.ConfigPath, "error", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}

	if !strings.Contains(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}
	cfg.LLM.BaseURL = strings.TrimRight(cfg.LLM.BaseURL, "/")

	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	cfg.HTTPPort = firstNonEmpty(os.Getenv("HTTP_PORT"), cfg.HTTPPort)
	if legacyPort := os.Getenv("PORT"); legacyPort != "" && os.Getenv("HTTP_PORT") == "" {
		cfg.HTTPPort = legacyPort
	}
	cfg.LogLevel = firstNonEmpty(os.Getenv("LOG_LEVEL"), cfg.LogLevel)
	cfg.LogFormat = firstNonEmpty(os.Getenv("LOG_FORMAT"), cfg.LogFormat)
	cfg.NotifyWebhookURL = firstNonEmpty(os.Getenv("NOTIFY_WEBHOOK_URL"), cfg.NotifyWebhookURL)

	cfg.LLM.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	cfg.LLM.BaseURL = firstNonEmpty(os.Getenv("LLM_BASE_URL"), os.Getenv("OPENAI_BASE_URL"), cfg.LLM.BaseURL)
	cfg.LLM.Model = firstNonEmpty(os.Getenv("LLM_MODEL"), cfg.LLM.Model)

	if v, ok, err := parseFloatEnv("LLM_TEMPERATURE"); err != nil {
		return fmt.Errorf("invalid LLM_TEMPERATURE: %w", err)
	} else if ok {
		cfg.LLM.Temperature = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"LLM_TIMEOUT_SEC", &cfg.LLM.TimeoutSec},
		{"TRACKER_TIMEOUT_SEC", &cfg.Tracker.TimeoutSec},
		{"SHUTDOWN_TIMEOUT_SEC", &cfg.ShutdownTimeoutSec},
		{"WATCH_WORKERS", &cfg.Watch.WorkerCount},
		{"WATCH_QUEUE_SIZE", &cfg.Watch.QueueSize},
		{"WATCH_JOB_TIMEOUT_SEC", &cfg.Watch.JobTimeoutSec},
	}
	for _, it := range ints {
		v, ok, err := parseIntEnv(it.key)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", it.key, err)
		}
		if ok {
			*it.dst = v
		}
	}

	if v, ok, err := parseIntEnv("MAX_UPLOAD_BYTES"); err != nil {
		return fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
	} else if ok {
		cfg.MaxUploadBytes = int64(v)
	}

	if v := os.Getenv("WATCH_ENABLED"); strings.TrimSpace(v) != "" {
		cfg.Watch.Enabled = parseBoolEnv("WATCH_ENABLED")
	}
	cfg.Watch.InboxDir = firstNonEmpty(os.Getenv("WATCH_INBOX_DIR"), cfg.Watch.InboxDir)
	cfg.Watch.TrackerBaseURL = firstNonEmpty(os.Getenv("TRACKER_BASE_URL"), cfg.Watch.TrackerBaseURL)
	cfg.Watch.TrackerEmail = firstNonEmpty(os.Getenv("TRACKER_EMAIL"), cfg.Watch.TrackerEmail)
	cfg.Watch.TrackerAPIToken = strings.TrimSpace(os.Getenv("TRACKER_API_TOKEN"))
	cfg.Watch.TrackerProject = firstNonEmpty(os.Getenv("TRACKER_PROJECT"), cfg.Watch.TrackerProject)

	if cfg.Watch.QueueSize > maxWatchQueueSize {
		slog.Warn("WATCH_QUEUE_SIZE capped", "max", maxWatchQueueSize, "was", cfg.Watch.QueueSize)
		cfg.Watch.QueueSize = maxWatchQueueSize
	}
	if cfg.Watch.QueueSize < cfg.Watch.WorkerCount {
		cfg.Watch.QueueSize = cfg.Watch.WorkerCount
	}
	return nil
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.HTTPPort) == "" || cfg.HTTPPort == ":" {
		return errors.New("HTTP_PORT is required")
	}
	if cfg.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if cfg.ShutdownTimeoutSec <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT_SEC must be positive")
	}
	if strings.TrimSpace(cfg.LLM.BaseURL) == "" {
		return errors.New("llm base url is required")
	}
	if strings.TrimSpace(cfg.LLM.Model) == "" {
		return errors.New("llm model is required")
	}
	if cfg.LLM.Temperature <= 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature must be in (0, 2], got %v", cfg.LLM.Temperature)
	}
	if cfg.LLM.TimeoutSec <= 0 {
		return errors.New("LLM_TIMEOUT_SEC must be positive")
	}
	if cfg.Tracker.TimeoutSec <= 0 {
		return errors.New("TRACKER_TIMEOUT_SEC must be positive")
	}
	if p := strings.TrimSpace(cfg.Extraction.Pattern); p != "" {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("extraction pattern: %w", err)
		}
		if re.NumSubexp() != 2 {
			return fmt.Errorf("extraction pattern must have 2 capture groups, got %d", re.NumSubexp())
		}
	}
	if cfg.Watch.Enabled {
		if strings.TrimSpace(cfg.Watch.InboxDir) == "" {
			return errors.New("WATCH_INBOX_DIR is required when watching")
		}
		if cfg.Watch.WorkerCount <= 0 {
			return errors.New("WATCH_WORKERS must be positive")
		}
		if cfg.Watch.JobTimeoutSec <= 0 {
			return errors.New("WATCH_JOB_TIMEOUT_SEC must be positive")
		}
		if cfg.Watch.TrackerBaseURL == "" || cfg.Watch.TrackerEmail == "" || cfg.Watch.TrackerAPIToken == "" || cfg.Watch.TrackerProject == "" {
			return errors.New("TRACKER_BASE_URL, TRACKER_EMAIL, TRACKER_API_TOKEN and TRACKER_PROJECT are required when watching")
		}
	}
	return nil
}

// LLMTimeout returns the per-call completion timeout.
func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSec) * time.Second
}

// TrackerTimeout returns the per-call tracker timeout.
func (c Config) TrackerTimeout() time.Duration {
	return time.Duration(c.Tracker.TimeoutSec) * time.Second
}

// ShutdownTimeout bounds graceful HTTP shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseIntEnv(key string) (int, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.Atoi(raw)
	return val, true, err
}

func parseFloatEnv(key string) (float64, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	return val, true, err
}
