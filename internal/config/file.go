package config

import (
	"errors"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	HTTPPort         string               `yaml:"http_port"`
	MaxUploadBytes   *int64               `yaml:"max_upload_bytes"`
	LogLevel         string               `yaml:"log_level"`
	LogFormat        string               `yaml:"log_format"`
	NotifyWebhookURL string               `yaml:"notify_webhook_url"`
	LLM              llmFileConfig        `yaml:"llm"`
	Tracker          trackerFileConfig    `yaml:"tracker"`
	Extraction       extractionFileConfig `yaml:"extraction"`
	Watch            watchFileConfig      `yaml:"watch"`
}

type llmFileConfig struct {
	BaseURL      string   `yaml:"base_url"`
	Model        string   `yaml:"model"`
	Temperature  *float64 `yaml:"temperature"`
	TimeoutSec   *int     `yaml:"timeout_sec"`
	SystemPrompt string   `yaml:"system_prompt"`
}

type trackerFileConfig struct {
	TimeoutSec *int `yaml:"timeout_sec"`
}

type extractionFileConfig struct {
	Pattern string `yaml:"pattern"`
}

type watchFileConfig struct {
	Enabled       *bool  `yaml:"enabled"`
	InboxDir      string `yaml:"inbox_dir"`
	WorkerCount   *int   `yaml:"workers"`
	QueueSize     *int   `yaml:"queue_size"`
	JobTimeoutSec *int   `yaml:"job_timeout_sec"`
	BaseURL       string `yaml:"tracker_base_url"`
	Email         string `yaml:"tracker_email"`
	Project       string `yaml:"tracker_project"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, errors.New("empty config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyFileOverrides overlays non-empty file values onto base. Secrets are only
// read from the environment.
func applyFileOverrides(base Config, f fileConfig) Config {
	if s := strings.TrimSpace(f.HTTPPort); s != "" {
		base.HTTPPort = s
	}
	if f.MaxUploadBytes != nil && *f.MaxUploadBytes > 0 {
		base.MaxUploadBytes = *f.MaxUploadBytes
	}
	if s := strings.TrimSpace(f.LogLevel); s != "" {
		base.LogLevel = s
	}
	if s := strings.TrimSpace(f.LogFormat); s != "" {
		base.LogFormat = s
	}
	if s := strings.TrimSpace(f.NotifyWebhookURL); s != "" {
		base.NotifyWebhookURL = s
	}

	if s := strings.TrimSpace(f.LLM.BaseURL); s != "" {
		base.LLM.BaseURL = s
	}
	if s := strings.TrimSpace(f.LLM.Model); s != "" {
		base.LLM.Model = s
	}
	if f.LLM.Temperature != nil {
		base.LLM.Temperature = *f.LLM.Temperature
	}
	if f.LLM.TimeoutSec != nil && *f.LLM.TimeoutSec > 0 {
		base.LLM.TimeoutSec = *f.LLM.TimeoutSec
	}
	if s := strings.TrimSpace(f.LLM.SystemPrompt); s != "" {
		base.LLM.SystemPrompt = s
	}

	if f.Tracker.TimeoutSec != nil && *f.Tracker.TimeoutSec > 0 {
		base.Tracker.TimeoutSec = *f.Tracker.TimeoutSec
	}
	if s := strings.TrimSpace(f.Extraction.Pattern); s != "" {
		base.Extraction.Pattern = s
	}

	if f.Watch.Enabled != nil {
		base.Watch.Enabled = *f.Watch.Enabled
	}
	if s := strings.TrimSpace(f.Watch.InboxDir); s != "" {
		base.Watch.InboxDir = s
	}
	if f.Watch.WorkerCount != nil && *f.Watch.WorkerCount > 0 {
		base.Watch.WorkerCount = *f.Watch.WorkerCount
	}
	if f.Watch.QueueSize != nil && *f.Watch.QueueSize > 0 {
		base.Watch.QueueSize = *f.Watch.QueueSize
	}
	if f.Watch.JobTimeoutSec != nil && *f.Watch.JobTimeoutSec > 0 {
		base.Watch.JobTimeoutSec = *f.Watch.JobTimeoutSec
	}
	if s := strings.TrimSpace(f.Watch.BaseURL); s != "" {
		base.Watch.TrackerBaseURL = s
	}
	if s := strings.TrimSpace(f.Watch.Email); s != "" {
		base.Watch.TrackerEmail = s
	}
	if s := strings.TrimSpace(f.Watch.Project); s != "" {
		base.Watch.TrackerProject = s
	}
	return base
}
