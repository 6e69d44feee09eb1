package tracker

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Config carries the per-request tracker endpoint and credentials.
type Config struct {
	BaseURL     string
	Email       string
	APIToken    string
	ProjectName string
}

// NewConfig validates and normalizes the four required fields.
func NewConfig(baseURL, email, apiToken, projectName string) (Config, error) {
	cfg := Config{
		BaseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Email:       strings.TrimSpace(email),
		APIToken:    strings.TrimSpace(apiToken),
		ProjectName: strings.TrimSpace(projectName),
	}
	var missing []string
	if cfg.BaseURL == "" {
		missing = append(missing, "base url")
	}
	if cfg.Email == "" {
		missing = append(missing, "email")
	}
	if cfg.APIToken == "" {
		missing = append(missing, "api token")
	}
	if cfg.ProjectName == "" {
		missing = append(missing, "project name")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("tracker config: missing %s", strings.Join(missing, ", "))
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return Config{}, fmt.Errorf("tracker config: invalid base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Config{}, errors.New("tracker config: base url must be an absolute http(s) url")
	}
	return cfg, nil
}

// String hides the token so configs can be logged.
func (c Config) String() string {
	return fmt.Sprintf("tracker{base=%s email=%s project=%q token=***}", c.BaseURL, c.Email, c.ProjectName)
}
