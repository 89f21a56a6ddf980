package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	tdmcp "github.com/valter-silva-au/taskdesk/internal/mcp"
)

var metricsSince string

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display task workflow metrics",
	Long: `Display aggregated metrics derived from the local event log.

Metrics include tasks created and deleted, approval requests, approvals
and declines with the average rating, status changes by target status,
failed mutations and expired sessions.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (event log may be unavailable)")
		}

		sinceTime, err := tdmcp.ParseSince(metricsSince, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		if wantJSON() {
			return printJSON(cmd, metrics)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Metrics (since %s)\n\n", sinceTime.Format("2006-01-02"))
		fmt.Fprintf(w, "  %-24s %d\n", "Events recorded:", metrics.EventCount)
		fmt.Fprintf(w, "  %-24s %d\n", "Tasks created:", metrics.TasksCreated)
		fmt.Fprintf(w, "  %-24s %d\n", "Tasks deleted:", metrics.TasksDeleted)
		fmt.Fprintf(w, "  %-24s %d\n", "Approvals requested:", metrics.ApprovalsRequested)
		fmt.Fprintf(w, "  %-24s %d\n", "Approved:", metrics.Approved)
		fmt.Fprintf(w, "  %-24s %d\n", "Declined:", metrics.Declined)
		if metrics.RatedDecisions > 0 {
			fmt.Fprintf(w, "  %-24s %.2f (%d rated)\n", "Average rating:", metrics.AverageRating, metrics.RatedDecisions)
		}
		fmt.Fprintf(w, "  %-24s %d\n", "Failed changes:", metrics.MutationFailures)
		fmt.Fprintf(w, "  %-24s %d\n", "Expired sessions:", metrics.SessionsExpired)

		if len(metrics.TasksByStatus) > 0 {
			fmt.Fprintln(w, "\n  Status changes:")
			statuses := make([]string, 0, len(metrics.TasksByStatus))
			for status := range metrics.TasksByStatus {
				statuses = append(statuses, status)
			}
			sort.Strings(statuses)
			for _, status := range statuses {
				fmt.Fprintf(w, "    %-20s %d\n", status+":", metrics.TasksByStatus[status])
			}
		}

		if metrics.OldestEvent != nil {
			fmt.Fprintf(w, "\n  %-24s %s\n", "Oldest event:", metrics.OldestEvent.Format(time.RFC3339))
		}
		if metrics.NewestEvent != nil {
			fmt.Fprintf(w, "  %-24s %s\n", "Newest event:", metrics.NewestEvent.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
