package cli

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/internal/observability"
	"github.com/valter-silva-au/taskdesk/internal/storage"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath string
	Config   *models.GlobalConfig
	Logger   *logrus.Logger
	Sessions storage.SessionStore
)

// Observability service instances. They are nil when the event log could
// not be opened.
var (
	EventLog    observability.EventLog
	Events      core.EventLogger
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
)

// logger returns Logger, or a logger that discards everything when the app
// has not set one.
func logger() *logrus.Logger {
	if Logger != nil {
		return Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
