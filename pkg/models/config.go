package models

// AlertConfig holds thresholds for the alert engine.
type AlertConfig struct {
	ReviewDays  int `yaml:"review_days" mapstructure:"review_days"`
	MaxDeclines int `yaml:"max_declines" mapstructure:"max_declines"`
}

// SlackConfig holds Slack webhook settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// NotificationConfig groups alert thresholds and delivery channels.
type NotificationConfig struct {
	Enabled bool        `yaml:"enabled" mapstructure:"enabled"`
	Alerts  AlertConfig `yaml:"alerts" mapstructure:"alerts"`
	Slack   SlackConfig `yaml:"slack" mapstructure:"slack"`
}

// ServerConfig holds settings for the reference task store server.
type ServerConfig struct {
	Addr           string   `yaml:"addr" mapstructure:"addr"`
	DatabasePath   string   `yaml:"database_path" mapstructure:"database_path"`
	JWTSecret      string   `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTLHours  int      `yaml:"token_ttl_hours" mapstructure:"token_ttl_hours"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// GlobalConfig holds settings read from .taskdesk.yaml via Viper.
type GlobalConfig struct {
	BackendURL     string             `yaml:"backend_url" mapstructure:"backend_url"`
	RequestTimeout int                `yaml:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`
	LogLevel       string             `yaml:"log_level" mapstructure:"log_level"`
	Server         ServerConfig       `yaml:"server" mapstructure:"server"`
	Notifications  NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
}
