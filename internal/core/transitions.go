package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// Placeholder review texts stored when an administrator decides without
// writing anything.
const (
	DefaultApproveReview = "No review provided"
	DefaultDeclineReason = "No reason provided"
)

// ValidateNewTask checks that every field required at creation is present.
func ValidateNewTask(nt models.NewTask) error {
	verr := &ValidationError{}
	if strings.TrimSpace(nt.Title) == "" {
		verr.Add("title", "is required")
	}
	if strings.TrimSpace(nt.Description) == "" {
		verr.Add("description", "is required")
	}
	if strings.TrimSpace(nt.AssignedTo) == "" {
		verr.Add("assignedTo", "is required")
	}
	if nt.Deadline.IsZero() {
		verr.Add("deadline", "is required")
	}
	if nt.Status != "" && models.NormalizeWorkStatus(nt.Status) != models.StatusNotStarted {
		verr.Add("status", fmt.Sprintf("must be %q on create", models.StatusNotStarted))
	}
	return verr.OrNil()
}

// BuildTask returns the initial state of a task created from nt.
func BuildTask(id string, nt models.NewTask, assignee models.Assignee, now time.Time) models.Task {
	return models.Task{
		ID:            id,
		Title:         strings.TrimSpace(nt.Title),
		Description:   strings.TrimSpace(nt.Description),
		AssignedTo:    assignee,
		AssignedBy:    nt.AssignedBy,
		Deadline:      nt.Deadline.UTC(),
		Status:        models.StatusNotStarted,
		RequestStatus: models.RequestNone,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ApplyStatusUpdate applies an assignee's progress update to t.
//
// Any work status may follow any other; ordering is advisory. Notes stay
// editable until the task is approved. While approval is requested the
// status is held at completed, since that is what the administrator is
// reviewing. An approved task is locked entirely.
func ApplyStatusUpdate(t *models.Task, callerID string, upd models.StatusUpdate) error {
	if t.AssignedTo.ID != callerID {
		return fmt.Errorf("updating status of task %s: %w", t.ID, ErrNotAssignee)
	}
	if upd.Status == "" && upd.Notes == nil {
		return NewValidationError("status", "or notes must be provided")
	}
	if upd.Status != "" && !upd.Status.Valid() {
		return NewValidationError("status", fmt.Sprintf("%q is not a work status", upd.Status))
	}
	switch t.RequestStatus {
	case models.RequestApproved:
		return fmt.Errorf("updating status of task %s: approval is %s: %w", t.ID, t.RequestStatus, ErrPreconditionFailed)
	case models.RequestRequested:
		if upd.Status != "" && upd.Status != t.Status {
			return fmt.Errorf("updating status of task %s: approval is %s: %w", t.ID, t.RequestStatus, ErrPreconditionFailed)
		}
	}
	if upd.Status != "" {
		t.Status = upd.Status
	}
	if upd.Notes != nil {
		t.Notes = *upd.Notes
	}
	return nil
}

// CanRequestApproval reports whether t may be submitted for approval.
func CanRequestApproval(t models.Task) bool {
	if t.Status != models.StatusCompleted {
		return false
	}
	return t.RequestStatus == models.RequestNone || t.RequestStatus == models.RequestDeclined
}

// ApplyApprovalRequest moves t to requested.
func ApplyApprovalRequest(t *models.Task, callerID string) error {
	if t.AssignedTo.ID != callerID {
		return fmt.Errorf("requesting approval of task %s: %w", t.ID, ErrNotAssignee)
	}
	if t.Status != models.StatusCompleted {
		return fmt.Errorf("requesting approval of task %s: status is %q, not %q: %w",
			t.ID, t.Status, models.StatusCompleted, ErrPreconditionFailed)
	}
	if !CanRequestApproval(*t) {
		return fmt.Errorf("requesting approval of task %s: request is already %s: %w",
			t.ID, t.RequestStatus, ErrPreconditionFailed)
	}
	t.RequestStatus = models.RequestRequested
	return nil
}

// ApplyEdit applies an administrator's edit. It does not touch the approval
// workflow.
func ApplyEdit(t *models.Task, edit models.TaskEdit) error {
	verr := &ValidationError{}
	if edit.Title != nil && strings.TrimSpace(*edit.Title) == "" {
		verr.Add("title", "must not be empty")
	}
	if edit.Description != nil && strings.TrimSpace(*edit.Description) == "" {
		verr.Add("description", "must not be empty")
	}
	if edit.Deadline != nil && edit.Deadline.IsZero() {
		verr.Add("deadline", "must not be empty")
	}
	if err := verr.OrNil(); err != nil {
		return err
	}
	if edit.Title != nil {
		t.Title = strings.TrimSpace(*edit.Title)
	}
	if edit.Description != nil {
		t.Description = strings.TrimSpace(*edit.Description)
	}
	if edit.Deadline != nil {
		t.Deadline = edit.Deadline.UTC()
	}
	return nil
}

// NormalizeReview validates r and fills in the placeholder text when the
// review is empty.
func NormalizeReview(r models.Review) (models.Review, error) {
	switch r.Decision {
	case models.RequestApproved, models.RequestDeclined:
	default:
		return r, NewValidationError("requestStatus", fmt.Sprintf("%q is not a decision, want approved or declined", r.Decision))
	}
	if r.Rating < 0 || r.Rating > models.MaxRating {
		return r, NewValidationError("rating", fmt.Sprintf("must be between 0 and %d, got %d", models.MaxRating, r.Rating))
	}
	r.ReviewText = strings.TrimSpace(r.ReviewText)
	if r.ReviewText == "" {
		if r.Decision == models.RequestApproved {
			r.ReviewText = DefaultApproveReview
		} else {
			r.ReviewText = DefaultDeclineReason
		}
	}
	return r, nil
}

// ApplyReview records an administrator's decision on t. Only a requested
// task can be decided, so each request cycle is decided at most once.
func ApplyReview(t *models.Task, r models.Review) error {
	r, err := NormalizeReview(r)
	if err != nil {
		return err
	}
	if t.RequestStatus != models.RequestRequested {
		return fmt.Errorf("deciding task %s: request is %s, not %s: %w",
			t.ID, t.RequestStatus, models.RequestRequested, ErrPreconditionFailed)
	}
	t.RequestStatus = r.Decision
	t.Rating = r.Rating
	if r.Decision == models.RequestApproved {
		t.ApproveReview = r.ReviewText
		t.DeclineReason = ""
	} else {
		t.DeclineReason = r.ReviewText
		t.ApproveReview = ""
	}
	return nil
}
