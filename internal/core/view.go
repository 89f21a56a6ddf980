package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// view holds what the employee and admin views share: the store, the
// caller's session, the local cache and the apply/confirm/rollback protocol.
type view struct {
	store   TaskStore
	session *models.Session
	events  EventLogger
	cache   taskCache
	list    func(ctx context.Context) ([]models.Task, error)
}

// Refresh replaces the local task list with the store's.
func (v *view) Refresh(ctx context.Context) error {
	if v.session.Expired() {
		return fmt.Errorf("refreshing tasks: %w", ErrSessionExpired)
	}
	tasks, err := v.list(ctx)
	if err != nil {
		v.noteFailure("refresh", "", err)
		return fmt.Errorf("refreshing tasks: %w", err)
	}
	v.cache.replaceAll(tasks)
	return nil
}

// Tasks returns the locally held tasks in store order.
func (v *view) Tasks() []models.Task {
	return v.cache.list()
}

// Task returns the locally held task with the given id.
func (v *view) Task(id string) (models.Task, bool) {
	return v.cache.get(id)
}

// Ongoing returns the locally held tasks that are not yet approved.
func (v *view) Ongoing() []models.Task {
	return Ongoing(v.cache.list())
}

// Completed returns the locally held approved tasks.
func (v *view) Completed() []models.Task {
	return Completed(v.cache.list())
}

// Session returns the session the view acts for.
func (v *view) Session() *models.Session {
	return v.session
}

// lookup finds a task locally, re-fetching the list once when the task is
// not held. A task assigned since the last refresh is found that way.
func (v *view) lookup(ctx context.Context, op, taskID string) (models.Task, error) {
	if t, ok := v.cache.get(taskID); ok {
		return t, nil
	}
	if err := v.Refresh(ctx); err != nil {
		return models.Task{}, fmt.Errorf("%s task %s: %w", op, taskID, err)
	}
	if t, ok := v.cache.get(taskID); ok {
		return t, nil
	}
	return models.Task{}, fmt.Errorf("%s task %s: %w", op, taskID, ErrNotFound)
}

// mutate applies a change to the cached task, sends it to the store and
// either confirms the store's copy or restores the snapshot taken before
// the change. A change rejected by apply is never sent.
//
// The cache may lag the store. A precondition failure against a cached
// copy is re-checked once against a fresh list, and a store rejection for
// a conflict or precondition resyncs the cache so the caller's next attempt
// starts from the store's state.
func (v *view) mutate(
	ctx context.Context,
	op, taskID string,
	apply func(t *models.Task) error,
	send func(ctx context.Context, version int64) (*models.Task, error),
) (*models.Task, error) {
	if v.session.Expired() {
		return nil, fmt.Errorf("%s task %s: %w", op, taskID, ErrSessionExpired)
	}
	wasLoaded := v.cache.isLoaded()
	prior, err := v.lookup(ctx, op, taskID)
	if err != nil {
		return nil, err
	}

	next := prior.Clone()
	if err := apply(&next); err != nil {
		if !wasLoaded || !errors.Is(err, ErrPreconditionFailed) {
			return nil, err
		}
		if rerr := v.Refresh(ctx); rerr != nil {
			if errors.Is(rerr, ErrSessionExpired) {
				return nil, fmt.Errorf("%s task %s: %w", op, taskID, rerr)
			}
			return nil, err
		}
		fresh, ok := v.cache.get(taskID)
		if !ok {
			return nil, fmt.Errorf("%s task %s: %w", op, taskID, ErrNotFound)
		}
		prior = fresh
		next = prior.Clone()
		if err := apply(&next); err != nil {
			return nil, err
		}
	}
	v.cache.put(next)

	stored, err := send(ctx, prior.Version)
	if err != nil {
		v.cache.put(prior)
		v.noteFailure(op, taskID, err)
		if errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrPreconditionFailed) {
			// Best effort; the rejection is what the caller needs to see.
			_ = v.Refresh(ctx)
		}
		return nil, fmt.Errorf("%s task %s: %w", op, taskID, err)
	}
	v.cache.put(*stored)

	if err := v.Refresh(ctx); err != nil {
		return stored, fmt.Errorf("%s task %s: confirmed, but %w", op, taskID, err)
	}
	return stored, nil
}

// noteFailure records a failed store call. A rejected token expires the
// session; the caller decides what to do about it.
func (v *view) noteFailure(op, taskID string, err error) {
	if errors.Is(err, ErrSessionExpired) {
		v.session.MarkExpired()
		v.logEvent(EventSessionExpired, map[string]any{
			"employee_id": v.session.Employee.ID,
			"op":          op,
		})
		return
	}
	v.logEvent(EventMutationFailed, map[string]any{
		"task_id":     taskID,
		"op":          op,
		"employee_id": v.session.Employee.ID,
		"error":       err.Error(),
	})
}

func (v *view) logEvent(eventType string, data map[string]any) {
	if v.events == nil {
		return
	}
	// Event logging is best effort; a full disk must not fail a mutation.
	_ = v.events.LogEvent(eventType, data)
}
