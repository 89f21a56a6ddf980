package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

var (
	listQuery  string
	listStatus string

	updateStatus string
	updateNotes  string

	createTitle       string
	createDescription string
	createAssignee    string
	createDeadline    string

	editTitle       string
	editDescription string
	editDeadline    string

	decideReview string
	decideRating int
)

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"task"},
	Short:   "View and change tasks",
}

var tasksMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List the tasks assigned to you",
	Long: `List the tasks assigned to the signed-in employee, split into ongoing
tasks and tasks whose completion has been approved.`,
	Args: cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		view, err := employeeView()
		if err != nil {
			return err
		}
		if err := view.Refresh(context.Background()); err != nil {
			return err
		}

		if wantJSON() {
			return printJSON(cmd, map[string][]models.Task{
				"ongoing":   nonNil(view.Ongoing()),
				"completed": nonNil(view.Completed()),
			})
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "Ongoing:")
		printTaskTable(w, view.Ongoing(), "No ongoing tasks.")
		fmt.Fprintln(w, "\nCompleted:")
		printTaskTable(w, view.Completed(), "No approved tasks yet.")
		return nil
	}),
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every task (administrators)",
	Long: `List every task, optionally narrowed by a search query and a status.

--query matches the assignee's username or full name and the task title,
ignoring case. --status takes "all", a work status ("not started",
"in progress", "completed"), a request status ("none", "requested",
"approved", "declined"), or an explicit "status:<value>" or
"request:<value>". A bare "completed" filters the work status.`,
	Args: cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		filter, err := core.ParseStatusFilter(listStatus)
		if err != nil {
			return err
		}
		view, err := adminView()
		if err != nil {
			return err
		}
		if err := view.Refresh(context.Background()); err != nil {
			return err
		}

		tasks := view.Filter(listQuery, filter)
		if wantJSON() {
			return printJSON(cmd, nonNil(tasks))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d task(s) matching %q, %s:\n", len(tasks), listQuery, filter)
		printTaskTable(cmd.OutOrStdout(), tasks, "No tasks match.")
		return nil
	}),
}

// taskReader is the part of both views used to show a task.
type taskReader interface {
	Refresh(ctx context.Context) error
	Task(id string) (models.Task, bool)
}

var tasksShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show one task in full",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		session, err := currentSession()
		if err != nil {
			return err
		}
		var view taskReader
		if session.IsAdmin() {
			view, err = adminView()
		} else {
			view, err = employeeView()
		}
		if err != nil {
			return err
		}
		if err := view.Refresh(context.Background()); err != nil {
			return err
		}
		task, ok := view.Task(args[0])
		if !ok {
			return fmt.Errorf("task %s: %w", args[0], core.ErrNotFound)
		}
		if wantJSON() {
			return printJSON(cmd, task)
		}
		printTask(cmd.OutOrStdout(), task)
		return nil
	}),
}

var tasksUpdateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Change the status or notes of one of your tasks",
	Long: `Change the work status and/or notes of a task assigned to you. While
approval is requested only the notes can change; an approved task cannot
be changed at all.`,
	Args: cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		upd := models.StatusUpdate{}
		if cmd.Flags().Changed("status") {
			upd.Status = models.NormalizeWorkStatus(updateStatus)
		}
		if cmd.Flags().Changed("notes") {
			notes := updateNotes
			upd.Notes = &notes
		}
		if upd.Status == "" && upd.Notes == nil {
			return fmt.Errorf("nothing to update: pass --status and/or --notes")
		}

		view, err := employeeView()
		if err != nil {
			return err
		}
		task, err := view.UpdateStatus(context.Background(), args[0], upd)
		if err != nil {
			return err
		}
		return reportTask(cmd, task, "Updated %s: status %s", task.ID, task.Status)
	}),
}

var tasksRequestApprovalCmd = &cobra.Command{
	Use:   "request-approval <task-id>",
	Short: "Ask an administrator to approve a completed task",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		view, err := employeeView()
		if err != nil {
			return err
		}
		task, err := view.RequestApproval(context.Background(), args[0])
		if err != nil {
			return err
		}
		return reportTask(cmd, task, "Approval requested for %s", task.ID)
	}),
}

var tasksCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create and assign a task (administrators)",
	Long: `Create a task and assign it to an employee. --assignee takes an employee
ID or username. --deadline takes a date (YYYY-MM-DD, meaning the end of
that day in local time) or an RFC 3339 timestamp.`,
	Args: cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		deadline, err := parseDeadline(createDeadline)
		if err != nil {
			return err
		}
		client, session, err := sessionClient()
		if err != nil {
			return err
		}
		ctx := context.Background()
		assignee, err := resolveEmployeeID(ctx, client, createAssignee)
		if err != nil {
			return err
		}
		view, err := core.NewAdminView(client, session, Events)
		if err != nil {
			return fmt.Errorf("%s is not an administrator: %w", session.Employee.Username, err)
		}

		task, err := view.CreateTask(ctx, models.NewTask{
			Title:       createTitle,
			Description: createDescription,
			AssignedTo:  assignee,
			Deadline:    deadline,
		})
		if err != nil {
			return err
		}
		return reportTask(cmd, task, "Created %s and assigned it to %s", task.ID, task.AssignedTo.Username)
	}),
}

var tasksEditCmd = &cobra.Command{
	Use:   "edit <task-id>",
	Short: "Edit the title, description or deadline of a task (administrators)",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		edit := models.TaskEdit{}
		if cmd.Flags().Changed("title") {
			title := editTitle
			edit.Title = &title
		}
		if cmd.Flags().Changed("description") {
			desc := editDescription
			edit.Description = &desc
		}
		if cmd.Flags().Changed("deadline") {
			deadline, err := parseDeadline(editDeadline)
			if err != nil {
				return err
			}
			edit.Deadline = &deadline
		}
		if edit.Title == nil && edit.Description == nil && edit.Deadline == nil {
			return fmt.Errorf("nothing to edit: pass --title, --description or --deadline")
		}

		view, err := adminView()
		if err != nil {
			return err
		}
		task, err := view.EditTask(context.Background(), args[0], edit)
		if err != nil {
			return err
		}
		return reportTask(cmd, task, "Edited %s", task.ID)
	}),
}

var tasksDecideCmd = &cobra.Command{
	Use:   "decide <task-id> <approved|declined>",
	Short: "Approve or decline a requested task (administrators)",
	Long: `Approve or decline a task whose assignee requested approval. --review is
the approval review or the decline reason; a placeholder is stored when
it is empty. --rating (1-5, 0 for none) is stored with either decision.`,
	Args: cobra.ExactArgs(2),
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		decision := models.Decision(strings.ToLower(args[1]))
		if decision != models.RequestApproved && decision != models.RequestDeclined {
			return fmt.Errorf("invalid decision %q: must be approved or declined", args[1])
		}
		view, err := adminView()
		if err != nil {
			return err
		}
		task, err := view.Decide(context.Background(), args[0], decision, decideReview, decideRating)
		if err != nil {
			return err
		}
		return reportTask(cmd, task, "Task %s %s", task.ID, task.RequestStatus)
	}),
}

var tasksDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task (administrators)",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		view, err := adminView()
		if err != nil {
			return err
		}
		if err := view.DeleteTask(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	}),
}

func reportTask(cmd *cobra.Command, task *models.Task, format string, a ...any) error {
	if wantJSON() {
		return printJSON(cmd, task)
	}
	fmt.Fprintf(cmd.OutOrStdout(), format+"\n", a...)
	return nil
}

// parseDeadline accepts a calendar date, meaning the end of that day in
// local time, or an RFC 3339 timestamp.
func parseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	day, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid deadline %q: use YYYY-MM-DD or RFC 3339", s)
	}
	return day.Add(24*time.Hour - time.Second).UTC(), nil
}

func nonNil(tasks []models.Task) []models.Task {
	if tasks == nil {
		return []models.Task{}
	}
	return tasks
}

func init() {
	tasksListCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Match assignee username, full name or title")
	tasksListCmd.Flags().StringVarP(&listStatus, "status", "s", "all", "Status filter")

	tasksUpdateCmd.Flags().StringVar(&updateStatus, "status", "", "New work status: not started, in progress or completed")
	tasksUpdateCmd.Flags().StringVar(&updateNotes, "notes", "", "Notes for the reviewer")

	tasksCreateCmd.Flags().StringVar(&createTitle, "title", "", "Task title")
	tasksCreateCmd.Flags().StringVar(&createDescription, "description", "", "Task description")
	tasksCreateCmd.Flags().StringVar(&createAssignee, "assignee", "", "Employee ID or username")
	tasksCreateCmd.Flags().StringVar(&createDeadline, "deadline", "", "Deadline (YYYY-MM-DD or RFC 3339)")

	tasksEditCmd.Flags().StringVar(&editTitle, "title", "", "New title")
	tasksEditCmd.Flags().StringVar(&editDescription, "description", "", "New description")
	tasksEditCmd.Flags().StringVar(&editDeadline, "deadline", "", "New deadline (YYYY-MM-DD or RFC 3339)")

	tasksDecideCmd.Flags().StringVar(&decideReview, "review", "", "Approval review or decline reason")
	tasksDecideCmd.Flags().IntVar(&decideRating, "rating", 0, "Rating from 1 to 5, 0 for none")

	tasksCmd.AddCommand(tasksMineCmd, tasksListCmd, tasksShowCmd, tasksUpdateCmd,
		tasksRequestApprovalCmd, tasksCreateCmd, tasksEditCmd, tasksDecideCmd, tasksDeleteCmd)
	rootCmd.AddCommand(tasksCmd)
}
