// Package config provides centralized configuration management for the application.
//
// Credentials come from environment variables. Rule thresholds, field
// mappings, transition tables, comment templates, and search profiles come
// from a YAML file and are exposed as immutable snapshots so an in-flight
// processing run never observes a half-applied reload.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Credentials holds secrets and connection settings for external services.
type Credentials struct {
	Jira   JiraConfig
	Gemini GeminiConfig
}

// JiraConfig holds JIRA specific configuration.
type JiraConfig struct {
	URL      string
	Username string
	Token    string

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// GeminiConfig holds Gemini API specific configuration.
type GeminiConfig struct {
	APIKey string
	Model  string

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	// Generation parameters.
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int

	// RequestsPerMinute bounds the client-side call rate.
	RequestsPerMinute int
}

// LoadCredentials initializes and loads credentials from environment variables.
func LoadCredentials() (*Credentials, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Map specific environment variables
	v.BindEnv("jira.url", "JIRA_URL")
	v.BindEnv("jira.username", "JIRA_USERNAME")
	v.BindEnv("jira.token", "JIRA_TOKEN")
	v.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("gemini.model", "GEMINI_MODEL")

	v.SetDefault("gemini.model", "gemini-pro")

	creds := &Credentials{
		Jira: JiraConfig{
			URL:        strings.TrimRight(v.GetString("jira.url"), "/"),
			Username:   v.GetString("jira.username"),
			Token:      v.GetString("jira.token"),
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			RetryDelay: time.Second,
		},
		Gemini: GeminiConfig{
			APIKey:            v.GetString("gemini.api_key"),
			Model:             v.GetString("gemini.model"),
			Timeout:           30 * time.Second,
			MaxRetries:        3,
			RetryDelay:        time.Second,
			Temperature:       0.3,
			TopP:              0.8,
			TopK:              40,
			MaxOutputTokens:   1024,
			RequestsPerMinute: 30,
		},
	}

	return creds, nil
}

// ValidateJiraConfig validates JIRA-specific configuration.
func ValidateJiraConfig(creds *Credentials) error {
	var missingVars []string

	if creds.Jira.URL == "" {
		missingVars = append(missingVars, "JIRA_URL")
	}
	if creds.Jira.Username == "" {
		missingVars = append(missingVars, "JIRA_USERNAME")
	}
	if creds.Jira.Token == "" {
		missingVars = append(missingVars, "JIRA_TOKEN")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	if !strings.HasPrefix(creds.Jira.URL, "http://") && !strings.HasPrefix(creds.Jira.URL, "https://") {
		return fmt.Errorf("JIRA_URL must start with http:// or https://")
	}

	return nil
}

// ValidateGeminiConfig validates Gemini-specific configuration.
func ValidateGeminiConfig(creds *Credentials) error {
	if creds.Gemini.APIKey == "" {
		return fmt.Errorf("missing required environment variable: GEMINI_API_KEY")
	}
	return nil
}
