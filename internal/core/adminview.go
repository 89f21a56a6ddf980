package core

import (
	"context"
	"fmt"

	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// AdminView is an administrator's view over every task.
type AdminView struct {
	view
}

// NewAdminView creates a view over all tasks. The session must belong to an
// administrator. events may be nil.
func NewAdminView(store TaskStore, session *models.Session, events EventLogger) (*AdminView, error) {
	if !session.IsAdmin() {
		return nil, fmt.Errorf("opening admin view: %w", ErrForbidden)
	}
	v := &AdminView{view: view{store: store, session: session, events: events}}
	v.list = store.ListAll
	return v, nil
}

// Filter returns the locally held tasks matching query and filter.
func (v *AdminView) Filter(query string, filter StatusFilter) []models.Task {
	return FilterTasks(v.cache.list(), query, filter)
}

// CreateTask validates nt locally and asks the store to create it. The
// store assigns the id, so there is nothing to apply optimistically.
func (v *AdminView) CreateTask(ctx context.Context, nt models.NewTask) (*models.Task, error) {
	if v.session.Expired() {
		return nil, fmt.Errorf("creating task: %w", ErrSessionExpired)
	}
	if nt.AssignedBy == "" {
		nt.AssignedBy = v.session.Employee.Username
	}
	if nt.Status == "" {
		nt.Status = string(models.StatusNotStarted)
	}
	if err := ValidateNewTask(nt); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	created, err := v.store.CreateTask(ctx, nt)
	if err != nil {
		v.noteFailure("create", "", err)
		return nil, fmt.Errorf("creating task: %w", err)
	}
	v.cache.put(*created)
	if err := v.Refresh(ctx); err != nil {
		return created, fmt.Errorf("creating task: confirmed, but %w", err)
	}
	return created, nil
}

// EditTask changes title, description or deadline. The approval workflow
// is not affected.
func (v *AdminView) EditTask(ctx context.Context, taskID string, edit models.TaskEdit) (*models.Task, error) {
	return v.mutate(ctx, "editing", taskID,
		func(t *models.Task) error {
			return ApplyEdit(t, edit)
		},
		func(ctx context.Context, version int64) (*models.Task, error) {
			return v.store.EditTask(ctx, taskID, version, edit)
		},
	)
}

// Decide approves or declines a requested task with a review text and a
// rating between 0 (unrated) and 5.
func (v *AdminView) Decide(ctx context.Context, taskID string, decision models.Decision, reviewText string, rating int) (*models.Task, error) {
	review, err := NormalizeReview(models.Review{Decision: decision, ReviewText: reviewText, Rating: rating})
	if err != nil {
		return nil, fmt.Errorf("deciding task %s: %w", taskID, err)
	}
	return v.mutate(ctx, "deciding", taskID,
		func(t *models.Task) error {
			return ApplyReview(t, review)
		},
		func(ctx context.Context, version int64) (*models.Task, error) {
			return v.store.DecideTask(ctx, taskID, version, review)
		},
	)
}

// DeleteTask removes a task permanently. Deleting a task the store does not
// hold fails with ErrNotFound.
func (v *AdminView) DeleteTask(ctx context.Context, taskID string) error {
	if v.session.Expired() {
		return fmt.Errorf("deleting task %s: %w", taskID, ErrSessionExpired)
	}
	prior, idx, held := v.cache.remove(taskID)

	if err := v.store.DeleteTask(ctx, taskID); err != nil {
		if held {
			v.cache.insertAt(idx, prior)
		}
		v.noteFailure("delete", taskID, err)
		return fmt.Errorf("deleting task %s: %w", taskID, err)
	}

	if err := v.Refresh(ctx); err != nil {
		return fmt.Errorf("deleting task %s: confirmed, but %w", taskID, err)
	}
	return nil
}
