package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskdesk/internal/storage"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

var alertsNotify bool

// loadAlertTasks returns every task when an administrator is signed in and
// nil otherwise, in which case the overdue check is skipped.
var loadAlertTasks = func(ctx context.Context) ([]models.Task, error) {
	session, err := Sessions.Load()
	if errors.Is(err, storage.ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !session.IsAdmin() {
		return nil, nil
	}
	view, err := adminView()
	if err != nil {
		return nil, err
	}
	if err := view.Refresh(ctx); err != nil {
		return nil, checkSession(err)
	}
	return view.Tasks(), nil
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show active alerts and warnings",
	Long: `Evaluate alert conditions and display any triggered alerts.

Alerts fire for approval requests waiting longer than the review window,
tasks declined repeatedly, and, when an administrator is signed in, tasks
past their deadline that have not been approved. --notify also posts the
alerts to the configured Slack webhook.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized (event log may be unavailable)")
		}

		var tasks []models.Task
		if Sessions != nil {
			var err error
			tasks, err = loadAlertTasks(context.Background())
			if err != nil {
				return fmt.Errorf("loading tasks for alerts: %w", err)
			}
		}

		alerts, err := AlertEngine.Evaluate(tasks)
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}

		if alertsNotify && len(alerts) > 0 {
			if Notifier == nil {
				return fmt.Errorf("notifications are not configured: set notifications.enabled and notifications.slack.webhook_url")
			}
			if err := Notifier.Notify(alerts); err != nil {
				return fmt.Errorf("sending notification: %w", err)
			}
		}

		if wantJSON() {
			return printJSON(cmd, alerts)
		}

		w := cmd.OutOrStdout()
		if len(alerts) == 0 {
			fmt.Fprintln(w, "No active alerts.")
			return nil
		}
		fmt.Fprintf(w, "%d active alert(s):\n\n", len(alerts))
		for _, alert := range alerts {
			severity := strings.ToUpper(string(alert.Severity))
			fmt.Fprintf(w, "  [%s] %s\n", severity, alert.Message)
			fmt.Fprintf(w, "         triggered at %s\n\n", alert.TriggeredAt.Format("2006-01-02 15:04 UTC"))
		}
		if alertsNotify {
			fmt.Fprintln(w, "Notification sent.")
		}
		return nil
	},
}

func init() {
	alertsCmd.Flags().BoolVar(&alertsNotify, "notify", false, "Post the alerts to the configured Slack webhook")
	rootCmd.AddCommand(alertsCmd)
}
