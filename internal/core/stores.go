package core

import (
	"context"

	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// TaskStore is the contract the views depend on. The store owns the
// authoritative task state; every mutation names the version the caller
// last saw and returns the task as stored afterwards.
type TaskStore interface {
	ListAssigned(ctx context.Context, employeeID string) ([]models.Task, error)
	ListAll(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, nt models.NewTask) (*models.Task, error)
	UpdateTask(ctx context.Context, taskID string, version int64, upd models.StatusUpdate) (*models.Task, error)
	EditTask(ctx context.Context, taskID string, version int64, edit models.TaskEdit) (*models.Task, error)
	RequestApproval(ctx context.Context, taskID string, version int64) (*models.Task, error)
	DecideTask(ctx context.Context, taskID string, version int64, review models.Review) (*models.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
}

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// Workflow event types written through EventLogger.
const (
	EventTaskCreated       = "task.created"
	EventStatusChanged     = "task.status_changed"
	EventApprovalRequested = "task.approval_requested"
	EventTaskDecided       = "task.decided"
	EventTaskEdited        = "task.edited"
	EventTaskDeleted       = "task.deleted"
	EventMutationFailed    = "task.mutation_failed"
	EventSessionExpired    = "session.expired"
)
