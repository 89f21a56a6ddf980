package core

import (
	"context"

	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// EmployeeView is the assignee's view of their own tasks.
type EmployeeView struct {
	view
}

// NewEmployeeView creates a view over the tasks assigned to the session's
// employee. events may be nil.
func NewEmployeeView(store TaskStore, session *models.Session, events EventLogger) *EmployeeView {
	v := &EmployeeView{view: view{store: store, session: session, events: events}}
	v.list = func(ctx context.Context) ([]models.Task, error) {
		return store.ListAssigned(ctx, session.Employee.ID)
	}
	return v
}

// UpdateStatus changes the work status and/or notes of one of the caller's
// tasks.
func (v *EmployeeView) UpdateStatus(ctx context.Context, taskID string, upd models.StatusUpdate) (*models.Task, error) {
	callerID := v.session.Employee.ID
	return v.mutate(ctx, "updating status of", taskID,
		func(t *models.Task) error {
			return ApplyStatusUpdate(t, callerID, upd)
		},
		func(ctx context.Context, version int64) (*models.Task, error) {
			return v.store.UpdateTask(ctx, taskID, version, upd)
		},
	)
}

// RequestApproval submits a completed task for administrator review.
func (v *EmployeeView) RequestApproval(ctx context.Context, taskID string) (*models.Task, error) {
	callerID := v.session.Employee.ID
	return v.mutate(ctx, "requesting approval of", taskID,
		func(t *models.Task) error {
			return ApplyApprovalRequest(t, callerID)
		},
		func(ctx context.Context, version int64) (*models.Task, error) {
			return v.store.RequestApproval(ctx, taskID, version)
		},
	)
}
