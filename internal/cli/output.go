package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

const (
	formatText = "text"
	formatJSON = "json"
)

var (
	outputFormat = formatText
	verbose      bool
)

func wantJSON() bool {
	return outputFormat == formatJSON
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting output as JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// printTaskTable writes one line per task. An empty list prints the
// given placeholder instead.
func printTaskTable(w io.Writer, tasks []models.Task, empty string) {
	if len(tasks) == 0 {
		fmt.Fprintf(w, "  %s\n", empty)
		return
	}
	fmt.Fprintf(w, "  %-36s %-28s %-12s %-10s %-12s %s\n", "ID", "TITLE", "ASSIGNEE", "DEADLINE", "STATUS", "REVIEW")
	for _, t := range tasks {
		fmt.Fprintf(w, "  %-36s %-28s %-12s %-10s %-12s %s\n",
			t.ID, truncate(t.Title, 28), truncate(t.AssignedTo.Username, 12),
			t.Deadline.Format("2006-01-02"), t.Status, reviewLabel(t))
	}
}

// printTask writes every field of one task.
func printTask(w io.Writer, t models.Task) {
	fmt.Fprintf(w, "%s  %s\n", t.ID, t.Title)
	fmt.Fprintf(w, "  %-14s %s\n", "Description:", t.Description)
	fmt.Fprintf(w, "  %-14s %s (%s)\n", "Assigned to:", t.AssignedTo.FullName, t.AssignedTo.Username)
	if t.AssignedBy != "" {
		fmt.Fprintf(w, "  %-14s %s\n", "Assigned by:", t.AssignedBy)
	}
	fmt.Fprintf(w, "  %-14s %s\n", "Deadline:", t.Deadline.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "  %-14s %s\n", "Status:", t.Status)
	fmt.Fprintf(w, "  %-14s %s\n", "Review:", reviewLabel(t))
	if t.Notes != "" {
		fmt.Fprintf(w, "  %-14s %s\n", "Notes:", t.Notes)
	}
	switch t.RequestStatus {
	case models.RequestApproved:
		fmt.Fprintf(w, "  %-14s %s\n", "Approval:", t.ApproveReview)
	case models.RequestDeclined:
		fmt.Fprintf(w, "  %-14s %s\n", "Declined:", t.DeclineReason)
	}
	fmt.Fprintf(w, "  %-14s %d\n", "Version:", t.Version)
}

func reviewLabel(t models.Task) string {
	switch {
	case t.Rating > 0 && (t.RequestStatus == models.RequestApproved || t.RequestStatus == models.RequestDeclined):
		return fmt.Sprintf("%s %s", t.RequestStatus, strings.Repeat("*", t.Rating))
	case t.RequestStatus == models.RequestNone:
		return "-"
	}
	return string(t.RequestStatus)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
