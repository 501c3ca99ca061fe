// Package config loads the two-layer configuration described in §6: a YAML
// document for operational tuning (internal/config/document.go) and
// environment variables for secrets, using an env-first
// Config.Load().
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds secrets and operational settings read from the environment.
// Fields here correspond to spec.md §6 "Environment variables".
type Config struct {
	// HTTP server
	Port int

	// GitHub credentials. Either GitHubToken (plain PAT) or the App pair
	// (GitHubAppID/GitHubPrivateKey) must be set; each binary's buildAuth
	// uses the token when present and the App pair otherwise.
	GitHubToken      string
	GitHubAppID      string
	GitHubPrivateKey string

	GitHubWebhookSecret string

	// Dashboard Basic auth. Empty WebUsername disables auth (§4.1/§9
	// "insecure bootstrap mode").
	WebUsername string
	WebPassword string

	// Worker base URLs, used by the gateway for proxying and dashboard
	// aggregation.
	PRReviewerURL  string
	IssueCopierURL string
	IssueScorerURL string

	// AI CLI invocation.
	AICLIPath    string
	AICLITimeout time.Duration

	// AICLIBypassFlag is passed to the AI CLI so it runs without a git
	// repository present (§6 "The invocation flag to bypass repo-context
	// checks is required"). AICLIWorkDir is the directory the CLI is run
	// from; AICLIDisableBypassFlag lets an operator running the CLI
	// against a real checkout turn the flag back off.
	AICLIBypassFlag        string
	AICLIWorkDir           string
	AICLIDisableBypassFlag bool

	// Database path, one sqlite file per service (§6 "Persistent state layout").
	DBPath string

	// Path to the YAML config document (§6 "Configuration (file)").
	ConfigPath string

	// Dispatcher settings, shared by all three workers' worker pools.
	DispatcherWorkers           int
	DispatcherQueueSize         int
	DispatcherMaxAttempts       int
	DispatcherRetryInitial      time.Duration
	DispatcherRetryMax          time.Duration
	DispatcherBackoffMultiplier float64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                        getEnvInt("PORT", 8000),
		GitHubToken:                 os.Getenv("GITHUB_TOKEN"),
		GitHubAppID:                 os.Getenv("GITHUB_APP_ID"),
		GitHubPrivateKey:            normalizePrivateKey(os.Getenv("GITHUB_PRIVATE_KEY")),
		GitHubWebhookSecret:         os.Getenv("GITHUB_WEBHOOK_SECRET"),
		WebUsername:                 os.Getenv("WEB_USERNAME"),
		WebPassword:                 os.Getenv("WEB_PASSWORD"),
		PRReviewerURL:               getEnv("PR_REVIEWER_URL", "http://localhost:8001"),
		IssueCopierURL:              getEnv("ISSUE_COPIER_URL", "http://localhost:8002"),
		IssueScorerURL:              getEnv("ISSUE_SCORER_URL", "http://localhost:8003"),
		AICLIPath:                   getEnv("AI_CLI_PATH", "claude"),
		AICLITimeout:                time.Duration(getEnvInt("AI_CLI_TIMEOUT_SECONDS", 300)) * time.Second,
		AICLIBypassFlag:             getEnv("AI_CLI_BYPASS_FLAG", "--dangerously-bypass-approvals-and-sandbox"),
		AICLIWorkDir:                os.Getenv("AI_CLI_WORKDIR"),
		AICLIDisableBypassFlag:      getEnvBool("AI_CLI_DISABLE_BYPASS_FLAG"),
		DBPath:                      getEnv("DB_PATH", "./data/gateway.db"),
		ConfigPath:                  getEnv("CONFIG_PATH", "./config.yaml"),
		DispatcherWorkers:           getEnvInt("DISPATCHER_WORKERS", 4),
		DispatcherQueueSize:         getEnvInt("DISPATCHER_QUEUE_SIZE", 16),
		DispatcherMaxAttempts:       getEnvInt("DISPATCHER_MAX_ATTEMPTS", 3),
		DispatcherRetryInitial:      time.Duration(getEnvInt("DISPATCHER_RETRY_SECONDS", 1)) * time.Second,
		DispatcherRetryMax:          time.Duration(getEnvInt("DISPATCHER_RETRY_MAX_SECONDS", 16)) * time.Second,
		DispatcherBackoffMultiplier: getEnvFloat("DISPATCHER_BACKOFF_MULTIPLIER", 4.0),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func normalizePrivateKey(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "\"") && strings.HasSuffix(trimmed, "\"") {
		trimmed = strings.TrimPrefix(trimmed, "\"")
		trimmed = strings.TrimSuffix(trimmed, "\"")
	}
	if strings.HasPrefix(trimmed, "'") && strings.HasSuffix(trimmed, "'") {
		trimmed = strings.TrimPrefix(trimmed, "'")
		trimmed = strings.TrimSuffix(trimmed, "'")
	}

	trimmed = strings.ReplaceAll(trimmed, "\r\n", "\n")
	trimmed = strings.ReplaceAll(trimmed, "\r", "\n")
	if strings.Contains(trimmed, "\\n") {
		trimmed = strings.ReplaceAll(trimmed, "\\r", "")
		trimmed = strings.ReplaceAll(trimmed, "\\n", "\n")
	}

	return trimmed
}

func (c *Config) validate() error {
	if err := c.validateGitHubCredentials(); err != nil {
		return err
	}

	c.applyDispatcherDefaults()
	return c.validateDispatcherConfig()
}

func (c *Config) validateGitHubCredentials() error {
	hasToken := c.GitHubToken != ""
	hasApp := c.GitHubAppID != "" && c.GitHubPrivateKey != ""
	if !hasToken && !hasApp {
		return fmt.Errorf("either GITHUB_TOKEN or GITHUB_APP_ID+GITHUB_PRIVATE_KEY is required")
	}
	if c.GitHubWebhookSecret == "" {
		return fmt.Errorf("GITHUB_WEBHOOK_SECRET is required")
	}
	return nil
}

func (c *Config) applyDispatcherDefaults() {
	if c.DispatcherWorkers <= 0 {
		c.DispatcherWorkers = 4
	}
	if c.DispatcherQueueSize <= 0 {
		c.DispatcherQueueSize = 16
	}
	if c.DispatcherMaxAttempts <= 0 {
		c.DispatcherMaxAttempts = 3
	}
	if c.DispatcherRetryInitial <= 0 {
		c.DispatcherRetryInitial = time.Second
	}
	if c.DispatcherRetryMax <= 0 {
		c.DispatcherRetryMax = 16 * time.Second
	}
	if c.DispatcherBackoffMultiplier < 1 {
		c.DispatcherBackoffMultiplier = 4
	}
}

func (c *Config) validateDispatcherConfig() error {
	if c.DispatcherWorkers <= 0 {
		return fmt.Errorf("DISPATCHER_WORKERS must be greater than 0")
	}
	if c.DispatcherQueueSize <= 0 {
		return fmt.Errorf("DISPATCHER_QUEUE_SIZE must be greater than 0")
	}
	if c.DispatcherMaxAttempts <= 0 {
		return fmt.Errorf("DISPATCHER_MAX_ATTEMPTS must be greater than 0")
	}
	if c.DispatcherRetryInitial <= 0 {
		return fmt.Errorf("DISPATCHER_RETRY_SECONDS must be greater than 0")
	}
	if c.DispatcherRetryMax < c.DispatcherRetryInitial {
		return fmt.Errorf("DISPATCHER_RETRY_MAX_SECONDS must be >= DISPATCHER_RETRY_SECONDS")
	}
	if c.DispatcherBackoffMultiplier < 1 {
		return fmt.Errorf("DISPATCHER_BACKOFF_MULTIPLIER must be >= 1")
	}
	return nil
}

// AuthEnabled reports whether Basic auth is configured for non-webhook,
// non-health gateway endpoints.
func (c *Config) AuthEnabled() bool {
	return c.WebUsername != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	switch v {
	case "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}
