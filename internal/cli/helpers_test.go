package cli

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/internal/observability"
	"github.com/valter-silva-au/taskdesk/internal/storage"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// isolateCLI saves every package-level service and flag, resets the flags
// to their defaults and restores everything when the test ends. It returns
// the buffer command output is written to.
func isolateCLI(t *testing.T) *bytes.Buffer {
	t.Helper()

	origBase, origConfig, origLogger, origSessions := BasePath, Config, Logger, Sessions
	origEventLog, origEvents := EventLog, Events
	origAlerts, origMetrics, origNotifier := AlertEngine, MetricsCalc, Notifier
	origFormat, origVerbose := outputFormat, verbose
	origLoadAlertTasks := loadAlertTasks
	t.Cleanup(func() {
		BasePath, Config, Logger, Sessions = origBase, origConfig, origLogger, origSessions
		EventLog, Events = origEventLog, origEvents
		AlertEngine, MetricsCalc, Notifier = origAlerts, origMetrics, origNotifier
		outputFormat, verbose = origFormat, origVerbose
		loadAlertTasks = origLoadAlertTasks
		resetFlags(rootCmd)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	BasePath = t.TempDir()
	Config = core.DefaultGlobalConfig()
	Logger = logrus.New()
	Logger.SetOutput(&bytes.Buffer{})
	Sessions = storage.NewSessionStore(BasePath)
	EventLog, Events = nil, nil
	AlertEngine, MetricsCalc, Notifier = nil, nil, nil
	outputFormat, verbose = formatText, false
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	return &out
}

// resetFlags returns every flag of cmd and its subcommands to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// setFlags sets flags on cmd as if they were passed on the command line.
func setFlags(t *testing.T, cmd *cobra.Command, kv ...string) {
	t.Helper()
	for i := 0; i+1 < len(kv); i += 2 {
		if err := cmd.Flags().Set(kv[i], kv[i+1]); err != nil {
			t.Fatalf("setting --%s: %v", kv[i], err)
		}
	}
}

// useEventLog wires a JSONL event log in the test's base path the same way
// the app does.
func useEventLog(t *testing.T) observability.EventLog {
	t.Helper()
	log, err := observability.NewJSONLEventLog(BasePath + "/events.jsonl")
	if err != nil {
		t.Fatalf("opening event log: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	EventLog = log
	Events = observability.NewWorkflowLogger(log)
	MetricsCalc = observability.NewMetricsCalculator(log)
	AlertEngine = observability.NewAlertEngine(log, observability.DefaultAlertThresholds())
	return log
}

func saveSession(t *testing.T, token string, emp models.Employee) {
	t.Helper()
	if err := Sessions.Save(models.NewSession(token, emp)); err != nil {
		t.Fatalf("saving session: %v", err)
	}
}
