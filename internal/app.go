// Package internal provides the App struct that wires all components of
// taskdesk together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/valter-silva-au/taskdesk/internal/cli"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/internal/observability"
	"github.com/valter-silva-au/taskdesk/internal/storage"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// EventLogFile is the name of the workflow event log in the base path.
const EventLogFile = ".taskdesk_events.jsonl"

// App holds all service dependencies for taskdesk.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.GlobalConfig
	Logger    *logrus.Logger

	// Storage layer
	Sessions storage.SessionStore

	// Observability
	EventLog    observability.EventLog
	Events      core.EventLogger
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components of taskdesk. basePath is the
// directory holding .taskdesk.yaml, the session file and the event log.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Logging ---
	app.Logger = logrus.New()
	app.Logger.SetOutput(os.Stderr)
	app.Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	app.Logger.SetLevel(level)

	// --- Storage layer ---
	app.Sessions = storage.NewSessionStore(basePath)

	// --- Observability ---
	eventLogPath := filepath.Join(basePath, EventLogFile)
	app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: run without metrics and alerts if the log can't be created.
		app.Logger.WithError(err).Debug("event log unavailable")
		app.EventLog = nil
	}
	if app.EventLog != nil {
		thresholds := observability.DefaultAlertThresholds()
		if cfg.Notifications.Alerts.ReviewDays > 0 {
			thresholds.ReviewDays = cfg.Notifications.Alerts.ReviewDays
		}
		if cfg.Notifications.Alerts.MaxDeclines > 0 {
			thresholds.MaxDeclines = cfg.Notifications.Alerts.MaxDeclines
		}
		app.Events = observability.NewWorkflowLogger(app.EventLog)
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, thresholds)
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.Slack.WebhookURL)
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = app.Config
	cli.Logger = app.Logger
	cli.Sessions = app.Sessions

	cli.EventLog = app.EventLog
	cli.Events = app.Events
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the taskdesk data directory. It checks the
// TASKDESK_HOME env var, then walks up from the current directory looking
// for .taskdesk.yaml, then falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("TASKDESK_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName+".yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}
