// Package core contains the business logic for taskdesk: the task status
// and admin review state machines, filter and partition helpers, the
// employee and admin views, and configuration loading.
package core

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// ConfigFileName is the base name of the configuration file, without extension.
const ConfigFileName = ".taskdesk"

// ConfigurationManager loads and validates configuration from .taskdesk.yaml.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files and TASKDESK_* environment variables.
type viperConfigManager struct {
	// basePath is the root directory where .taskdesk.yaml resides.
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns a GlobalConfig populated with sensible defaults.
func DefaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		BackendURL:     "http://127.0.0.1:8000",
		RequestTimeout: 15,
		LogLevel:       "info",
		Server: models.ServerConfig{
			Addr:           ":8000",
			DatabasePath:   "taskdesk.db",
			TokenTTLHours:  24,
			AllowedOrigins: []string{"*"},
		},
		Notifications: models.NotificationConfig{
			Alerts: models.AlertConfig{
				ReviewDays:  3,
				MaxDeclines: 3,
			},
		},
	}
}

// LoadGlobalConfig reads .taskdesk.yaml from the base path using Viper.
// If the file does not exist, defaults overlaid with environment variables
// are returned.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix("TASKDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("backend_url", cfg.BackendURL)
	v.SetDefault("request_timeout_seconds", cfg.RequestTimeout)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.database_path", cfg.Server.DatabasePath)
	v.SetDefault("server.jwt_secret", cfg.Server.JWTSecret)
	v.SetDefault("server.token_ttl_hours", cfg.Server.TokenTTLHours)
	v.SetDefault("server.allowed_origins", cfg.Server.AllowedOrigins)
	v.SetDefault("notifications.enabled", cfg.Notifications.Enabled)
	v.SetDefault("notifications.alerts.review_days", cfg.Notifications.Alerts.ReviewDays)
	v.SetDefault("notifications.alerts.max_declines", cfg.Notifications.Alerts.MaxDeclines)
	v.SetDefault("notifications.slack.webhook_url", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading %s.yaml: %w", ConfigFileName, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s.yaml: %w", ConfigFileName, err)
	}
	return cfg, nil
}

// ValidateConfig checks cfg for invalid values and returns one error
// listing every problem.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if u, err := url.Parse(cfg.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("backend_url %q must be an absolute http(s) URL", cfg.BackendURL))
	}
	if cfg.RequestTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("request_timeout_seconds must be positive, got %d", cfg.RequestTimeout))
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, fmt.Sprintf("log_level %q is invalid", cfg.LogLevel))
	}
	if cfg.Server.TokenTTLHours <= 0 {
		errs = append(errs, fmt.Sprintf("server.token_ttl_hours must be positive, got %d", cfg.Server.TokenTTLHours))
	}
	if cfg.Notifications.Alerts.ReviewDays < 0 {
		errs = append(errs, fmt.Sprintf("notifications.alerts.review_days must be non-negative, got %d", cfg.Notifications.Alerts.ReviewDays))
	}
	if cfg.Notifications.Alerts.MaxDeclines < 0 {
		errs = append(errs, fmt.Sprintf("notifications.alerts.max_declines must be non-negative, got %d", cfg.Notifications.Alerts.MaxDeclines))
	}
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL == "" {
		errs = append(errs, "notifications.slack.webhook_url is required when notifications are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
