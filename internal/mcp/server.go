// Package mcp exposes the signed-in employee's task views as MCP
// (Model Context Protocol) tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/internal/observability"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// EmployeeTasks is the part of core.EmployeeView the tools use.
type EmployeeTasks interface {
	Refresh(ctx context.Context) error
	Tasks() []models.Task
	UpdateStatus(ctx context.Context, taskID string, upd models.StatusUpdate) (*models.Task, error)
	RequestApproval(ctx context.Context, taskID string) (*models.Task, error)
}

// AdminTasks is the part of core.AdminView the tools use.
type AdminTasks interface {
	Refresh(ctx context.Context) error
	Tasks() []models.Task
	Filter(query string, filter core.StatusFilter) []models.Task
	Decide(ctx context.Context, taskID string, decision models.Decision, reviewText string, rating int) (*models.Task, error)
}

// Server wraps the task views and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	employee    EmployeeTasks
	admin       AdminTasks
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
}

// NewServer creates an MCP server over the given views. admin is nil for
// non-administrators; metricsCalc and alertEngine may be nil when no event
// log is configured.
func NewServer(employee EmployeeTasks, admin AdminTasks, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{
		employee:    employee,
		admin:       admin,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
	}
	s.server = gomcp.NewServer(&gomcp.Implementation{Name: "taskdesk", Version: version}, nil)
	s.registerTools()
	return s
}

// Run serves on stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type taskOutput struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Assignee      string `json:"assignee"`
	AssignedBy    string `json:"assigned_by,omitempty"`
	Deadline      string `json:"deadline"`
	Status        string `json:"status"`
	RequestStatus string `json:"request_status"`
	Notes         string `json:"notes,omitempty"`
	ApproveReview string `json:"approve_review,omitempty"`
	DeclineReason string `json:"decline_reason,omitempty"`
	Rating        int    `json:"rating"`
	Version       int64  `json:"version"`
}

type listTasksInput struct {
	Query  string `json:"query,omitempty" jsonschema:"case-insensitive text matched against assignee username, full name and task title"`
	Status string `json:"status,omitempty" jsonschema:"all, a work status (not started, in progress, completed), a request status (none, requested, approved, declined) or status:/request: prefixed"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type myTasksInput struct{}

type myTasksOutput struct {
	Ongoing   []taskOutput `json:"ongoing"`
	Completed []taskOutput `json:"completed"`
}

type updateTaskStatusInput struct {
	TaskID string  `json:"task_id" jsonschema:"the task id"`
	Status string  `json:"status,omitempty" jsonschema:"the new work status: not started, in progress or completed"`
	Notes  *string `json:"notes,omitempty" jsonschema:"replacement progress notes"`
}

type taskIDInput struct {
	TaskID string `json:"task_id" jsonschema:"the task id"`
}

type decideTaskInput struct {
	TaskID   string `json:"task_id" jsonschema:"the task id"`
	Decision string `json:"decision" jsonschema:"approved or declined"`
	Review   string `json:"review,omitempty" jsonschema:"review text or decline reason"`
	Rating   int    `json:"rating,omitempty" jsonschema:"rating from 0 (unrated) to 5"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	TasksCreated       int            `json:"tasks_created"`
	TasksDeleted       int            `json:"tasks_deleted"`
	ApprovalsRequested int            `json:"approvals_requested"`
	Approved           int            `json:"approved"`
	Declined           int            `json:"declined"`
	AverageRating      float64        `json:"average_rating"`
	RatedDecisions     int            `json:"rated_decisions"`
	TasksByStatus      map[string]int `json:"tasks_by_status"`
	MutationFailures   int            `json:"mutation_failures"`
	SessionsExpired    int            `json:"sessions_expired"`
	EventCount         int            `json:"event_count"`
	OldestEvent        string         `json:"oldest_event,omitempty"`
	NewestEvent        string         `json:"newest_event,omitempty"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "my_tasks",
		Description: "List the tasks assigned to the signed-in employee, split into ongoing and completed (approved).",
	}, s.handleMyTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_task_status",
		Description: "Change the work status and/or notes of one of your tasks. Not allowed while approval is requested or after approval.",
	}, s.handleUpdateTaskStatus)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "request_approval",
		Description: "Submit one of your completed tasks for administrator review.",
	}, s.handleRequestApproval)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get workflow metrics from the event log: tasks created, approvals requested, decisions and average rating.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate alerts: reviews pending too long, repeatedly declined tasks and overdue tasks.",
	}, s.handleGetAlerts)

	if s.admin == nil {
		return
	}

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List every task (administrators only), filtered by a text query and a status filter.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "decide_task",
		Description: "Approve or decline a task whose approval is requested (administrators only).",
	}, s.handleDecideTask)
}

// --- Tool handlers ---

func (s *Server) handleMyTasks(ctx context.Context, _ *gomcp.CallToolRequest, _ myTasksInput) (*gomcp.CallToolResult, myTasksOutput, error) {
	if err := s.employee.Refresh(ctx); err != nil {
		return viewErrorResult("loading your tasks", err), myTasksOutput{}, nil
	}
	ongoing, completed := core.Partition(s.employee.Tasks())
	return nil, myTasksOutput{Ongoing: tasksToOutput(ongoing), Completed: tasksToOutput(completed)}, nil
}

func (s *Server) handleUpdateTaskStatus(ctx context.Context, _ *gomcp.CallToolRequest, input updateTaskStatusInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}
	if input.Status == "" && input.Notes == nil {
		return errorResult("status or notes is required"), taskOutput{}, nil
	}
	upd := models.StatusUpdate{Notes: input.Notes}
	if input.Status != "" {
		upd.Status = models.NormalizeWorkStatus(input.Status)
	}

	task, err := s.employee.UpdateStatus(ctx, input.TaskID, upd)
	if err != nil {
		return viewErrorResult("updating task "+input.TaskID, err), taskOutput{}, nil
	}
	return nil, taskToOutput(*task), nil
}

func (s *Server) handleRequestApproval(ctx context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}
	task, err := s.employee.RequestApproval(ctx, input.TaskID)
	if err != nil {
		return viewErrorResult("requesting approval of "+input.TaskID, err), taskOutput{}, nil
	}
	return nil, taskToOutput(*task), nil
}

func (s *Server) handleListTasks(ctx context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	filter, err := core.ParseStatusFilter(input.Status)
	if err != nil {
		return errorResult(err.Error()), listTasksOutput{}, nil
	}
	if err := s.admin.Refresh(ctx); err != nil {
		return viewErrorResult("listing tasks", err), listTasksOutput{}, nil
	}
	tasks := s.admin.Filter(input.Query, filter)
	return nil, listTasksOutput{Tasks: tasksToOutput(tasks), Count: len(tasks)}, nil
}

func (s *Server) handleDecideTask(ctx context.Context, _ *gomcp.CallToolRequest, input decideTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}
	decision := models.Decision(strings.ToLower(strings.TrimSpace(input.Decision)))
	if decision != models.RequestApproved && decision != models.RequestDeclined {
		return errorResult(fmt.Sprintf("invalid decision %q: must be approved or declined", input.Decision)), taskOutput{}, nil
	}
	task, err := s.admin.Decide(ctx, input.TaskID, decision, input.Review, input.Rating)
	if err != nil {
		return viewErrorResult("deciding task "+input.TaskID, err), taskOutput{}, nil
	}
	return nil, taskToOutput(*task), nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	empty := metricsOutput{TasksByStatus: map[string]int{}}
	if s.metricsCalc == nil {
		return errorResult("metrics are not available (no event log configured)"), empty, nil
	}
	since, err := ParseSince(input.Since, time.Now().UTC())
	if err != nil {
		return errorResult(err.Error()), empty, nil
	}
	m, err := s.metricsCalc.Calculate(since)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), empty, nil
	}

	out := metricsOutput{
		TasksCreated:       m.TasksCreated,
		TasksDeleted:       m.TasksDeleted,
		ApprovalsRequested: m.ApprovalsRequested,
		Approved:           m.Approved,
		Declined:           m.Declined,
		AverageRating:      m.AverageRating,
		RatedDecisions:     m.RatedDecisions,
		TasksByStatus:      m.TasksByStatus,
		MutationFailures:   m.MutationFailures,
		SessionsExpired:    m.SessionsExpired,
		EventCount:         m.EventCount,
	}
	if m.OldestEvent != nil {
		out.OldestEvent = m.OldestEvent.Format(time.RFC3339)
	}
	if m.NewestEvent != nil {
		out.NewestEvent = m.NewestEvent.Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Server) handleGetAlerts(ctx context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alerts are not available (no event log configured)"), getAlertsOutput{}, nil
	}

	// Overdue checks need the full task list, which only administrators see.
	var tasks []models.Task
	if s.admin != nil {
		if err := s.admin.Refresh(ctx); err != nil {
			return viewErrorResult("loading tasks for alerts", err), getAlertsOutput{}, nil
		}
		tasks = s.admin.Tasks()
	}

	alerts, err := s.alertEngine.Evaluate(tasks)
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}
	out := getAlertsOutput{Alerts: make([]alertOutput, len(alerts)), Count: len(alerts)}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

// --- Helpers ---

func taskToOutput(t models.Task) taskOutput {
	return taskOutput{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Assignee:      t.AssignedTo.Username,
		AssignedBy:    t.AssignedBy,
		Deadline:      t.Deadline.Format(time.RFC3339),
		Status:        string(t.Status),
		RequestStatus: string(t.RequestStatus),
		Notes:         t.Notes,
		ApproveReview: t.ApproveReview,
		DeclineReason: t.DeclineReason,
		Rating:        t.Rating,
		Version:       t.Version,
	}
}

func tasksToOutput(tasks []models.Task) []taskOutput {
	out := make([]taskOutput, len(tasks))
	for i, t := range tasks {
		out[i] = taskToOutput(t)
	}
	return out
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// viewErrorResult reports a failed view call, telling the client how to
// recover from an expired session.
func viewErrorResult(op string, err error) *gomcp.CallToolResult {
	if errors.Is(err, core.ErrSessionExpired) {
		return errorResult(op + ": session expired, run `taskdesk signin` and restart the MCP server")
	}
	return errorResult(fmt.Sprintf("%s: %s", op, err))
}

// ParseSince parses a window such as "7d" or "24h" into the instant that
// far before now. An empty window means seven days.
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -7), nil
	}
	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}
	switch s[len(s)-1] {
	case 'd':
		return now.AddDate(0, 0, -n), nil
	case 'h':
		return now.Add(-time.Duration(n) * time.Hour), nil
	}
	return time.Time{}, fmt.Errorf("unsupported duration %q (use e.g. 7d, 30d, 24h)", s)
}
