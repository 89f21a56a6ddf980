package core

import (
	"errors"
	"testing"
	"time"

	"github.com/valter-silva-au/taskdesk/pkg/models"
)

func newTestTask(status models.WorkStatus, req models.RequestStatus) models.Task {
	return models.Task{
		ID:            "task-001",
		Title:         "Fix the printer",
		AssignedTo:    testAlice.Assignee(),
		Status:        status,
		RequestStatus: req,
		Version:       1,
	}
}

func strPtr(s string) *string { return &s }

func TestValidateNewTask_MissingFields(t *testing.T) {
	err := ValidateNewTask(models.NewTask{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"title", "description", "assignedTo", "deadline"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected %s to be reported, got %v", field, verr.Fields)
		}
	}
}

func TestValidateNewTask_AcceptsLegacyStatus(t *testing.T) {
	if err := ValidateNewTask(sampleNewTask(testAlice.ID)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateNewTask_RejectsOtherInitialStatus(t *testing.T) {
	nt := sampleNewTask(testAlice.ID)
	nt.Status = string(models.StatusCompleted)
	if err := ValidateNewTask(nt); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildTask_InitialState(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	task := BuildTask("t1", sampleNewTask(testAlice.ID), testAlice.Assignee(), now)

	if task.Status != models.StatusNotStarted {
		t.Errorf("status = %q, want %q", task.Status, models.StatusNotStarted)
	}
	if task.RequestStatus != models.RequestNone {
		t.Errorf("requestStatus = %q, want none", task.RequestStatus)
	}
	if task.Version != 1 {
		t.Errorf("version = %d, want 1", task.Version)
	}
	if !task.CreatedAt.Equal(now) {
		t.Errorf("createdAt = %v, want %v", task.CreatedAt, now)
	}
}

func TestApplyStatusUpdate(t *testing.T) {
	tests := []struct {
		name    string
		task    models.Task
		caller  string
		upd     models.StatusUpdate
		wantErr error
		want    models.WorkStatus
	}{
		{
			name:   "forward progress",
			task:   newTestTask(models.StatusNotStarted, models.RequestNone),
			caller: testAlice.ID,
			upd:    models.StatusUpdate{Status: models.StatusInProgress},
			want:   models.StatusInProgress,
		},
		{
			name:   "backwards is allowed",
			task:   newTestTask(models.StatusCompleted, models.RequestNone),
			caller: testAlice.ID,
			upd:    models.StatusUpdate{Status: models.StatusNotStarted},
			want:   models.StatusNotStarted,
		},
		{
			name:   "rework after decline",
			task:   newTestTask(models.StatusCompleted, models.RequestDeclined),
			caller: testAlice.ID,
			upd:    models.StatusUpdate{Status: models.StatusInProgress},
			want:   models.StatusInProgress,
		},
		{
			name:    "someone else's task",
			task:    newTestTask(models.StatusNotStarted, models.RequestNone),
			caller:  testBob.ID,
			upd:     models.StatusUpdate{Status: models.StatusInProgress},
			wantErr: ErrForbidden,
		},
		{
			name:    "locked while requested",
			task:    newTestTask(models.StatusCompleted, models.RequestRequested),
			caller:  testAlice.ID,
			upd:     models.StatusUpdate{Status: models.StatusInProgress},
			wantErr: ErrPreconditionFailed,
		},
		{
			name:    "locked once approved",
			task:    newTestTask(models.StatusCompleted, models.RequestApproved),
			caller:  testAlice.ID,
			upd:     models.StatusUpdate{Notes: strPtr("late note")},
			wantErr: ErrPreconditionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := tt.task
			err := ApplyStatusUpdate(&task, tt.caller, tt.upd)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if task != tt.task {
					t.Fatal("task must be unchanged on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if task.Status != tt.want {
				t.Fatalf("status = %q, want %q", task.Status, tt.want)
			}
		})
	}
}

func TestApplyStatusUpdate_NotesOnly(t *testing.T) {
	task := newTestTask(models.StatusInProgress, models.RequestNone)
	if err := ApplyStatusUpdate(&task, testAlice.ID, models.StatusUpdate{Notes: strPtr("half way")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Notes != "half way" || task.Status != models.StatusInProgress {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestApplyStatusUpdate_WhileRequested(t *testing.T) {
	task := newTestTask(models.StatusCompleted, models.RequestRequested)
	if err := ApplyStatusUpdate(&task, testAlice.ID, models.StatusUpdate{Notes: strPtr("attached the receipts")}); err != nil {
		t.Fatalf("notes while requested: %v", err)
	}
	if task.Notes != "attached the receipts" || task.RequestStatus != models.RequestRequested {
		t.Fatalf("unexpected task: %+v", task)
	}

	same := models.StatusUpdate{Status: models.StatusCompleted, Notes: strPtr("final")}
	if err := ApplyStatusUpdate(&task, testAlice.ID, same); err != nil {
		t.Fatalf("restating completed while requested: %v", err)
	}
	if task.Notes != "final" {
		t.Fatalf("notes = %q", task.Notes)
	}
}

func TestApplyStatusUpdate_InvalidStatus(t *testing.T) {
	task := newTestTask(models.StatusInProgress, models.RequestNone)
	err := ApplyStatusUpdate(&task, testAlice.ID, models.StatusUpdate{Status: "done-ish"})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyApprovalRequest(t *testing.T) {
	tests := []struct {
		name    string
		status  models.WorkStatus
		req     models.RequestStatus
		wantErr bool
	}{
		{"completed and fresh", models.StatusCompleted, models.RequestNone, false},
		{"completed after decline", models.StatusCompleted, models.RequestDeclined, false},
		{"not started", models.StatusNotStarted, models.RequestNone, true},
		{"in progress", models.StatusInProgress, models.RequestNone, true},
		{"already requested", models.StatusCompleted, models.RequestRequested, true},
		{"already approved", models.StatusCompleted, models.RequestApproved, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := newTestTask(tt.status, tt.req)
			err := ApplyApprovalRequest(&task, testAlice.ID)
			if tt.wantErr {
				if !errors.Is(err, ErrPreconditionFailed) {
					t.Fatalf("expected ErrPreconditionFailed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if task.RequestStatus != models.RequestRequested {
				t.Fatalf("requestStatus = %q, want requested", task.RequestStatus)
			}
		})
	}
}

func TestApplyReview_Approve(t *testing.T) {
	task := newTestTask(models.StatusCompleted, models.RequestRequested)
	task.DeclineReason = "earlier decline"
	err := ApplyReview(&task, models.Review{Decision: models.RequestApproved, ReviewText: "Great job", Rating: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.RequestStatus != models.RequestApproved || task.ApproveReview != "Great job" || task.Rating != 4 {
		t.Fatalf("unexpected task: %+v", task)
	}
	if task.DeclineReason != "" {
		t.Fatalf("declineReason should be cleared, got %q", task.DeclineReason)
	}
}

func TestApplyReview_DeclineWithPlaceholder(t *testing.T) {
	task := newTestTask(models.StatusCompleted, models.RequestRequested)
	if err := ApplyReview(&task, models.Review{Decision: models.RequestDeclined}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.DeclineReason != DefaultDeclineReason {
		t.Fatalf("declineReason = %q, want placeholder", task.DeclineReason)
	}
	if task.ApproveReview != "" || task.Rating != 0 {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestApplyReview_RejectsSecondDecision(t *testing.T) {
	for _, req := range []models.RequestStatus{models.RequestApproved, models.RequestDeclined, models.RequestNone} {
		task := newTestTask(models.StatusCompleted, req)
		err := ApplyReview(&task, models.Review{Decision: models.RequestApproved, Rating: 5})
		if !errors.Is(err, ErrPreconditionFailed) {
			t.Fatalf("request %s: expected ErrPreconditionFailed, got %v", req, err)
		}
	}
}

func TestNormalizeReview_Bounds(t *testing.T) {
	if _, err := NormalizeReview(models.Review{Decision: models.RequestApproved, Rating: 6}); !IsValidation(err) {
		t.Fatalf("expected validation error for rating 6, got %v", err)
	}
	if _, err := NormalizeReview(models.Review{Decision: models.RequestApproved, Rating: -1}); !IsValidation(err) {
		t.Fatalf("expected validation error for rating -1, got %v", err)
	}
	if _, err := NormalizeReview(models.Review{Decision: models.RequestRequested}); !IsValidation(err) {
		t.Fatalf("expected validation error for non-decision, got %v", err)
	}
}

func TestApplyEdit(t *testing.T) {
	task := newTestTask(models.StatusCompleted, models.RequestRequested)
	deadline := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	err := ApplyEdit(&task, models.TaskEdit{Title: strPtr("  New title "), Deadline: &deadline})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Title != "New title" || !task.Deadline.Equal(deadline) {
		t.Fatalf("unexpected task: %+v", task)
	}
	if task.RequestStatus != models.RequestRequested {
		t.Fatal("edit must not touch the approval workflow")
	}

	if err := ApplyEdit(&task, models.TaskEdit{Title: strPtr(" ")}); !IsValidation(err) {
		t.Fatalf("expected validation error for blank title, got %v", err)
	}
}
