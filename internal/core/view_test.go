package core

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/valter-silva-au/taskdesk/pkg/models"
)

type viewFixture struct {
	store    *fakeStore
	events   *recordingLogger
	admin    *AdminView
	employee *EmployeeView
}

func newViewFixture(t *testing.T) *viewFixture {
	t.Helper()
	store := newFakeStore(testAdmin, testAlice, testBob)
	events := &recordingLogger{}
	admin, err := NewAdminView(store, models.NewSession("admin-token", testAdmin), events)
	if err != nil {
		t.Fatalf("NewAdminView: %v", err)
	}
	employee := NewEmployeeView(store, models.NewSession("alice-token", testAlice), events)
	return &viewFixture{store: store, events: events, admin: admin, employee: employee}
}

func (f *viewFixture) createAliceTask(t *testing.T) models.Task {
	t.Helper()
	ctx := context.Background()
	created, err := f.admin.CreateTask(ctx, sampleNewTask(testAlice.ID))
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := f.employee.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return *created
}

func TestNewAdminView_RequiresAdmin(t *testing.T) {
	_, err := NewAdminView(newFakeStore(), models.NewSession("tok", testAlice), nil)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestWorkflow_CreateCompleteRequestApprove(t *testing.T) {
	f := newViewFixture(t)
	ctx := context.Background()
	task := f.createAliceTask(t)

	if task.Status != models.StatusNotStarted {
		t.Fatalf("new task status = %q, want %q", task.Status, models.StatusNotStarted)
	}
	if len(f.employee.Ongoing()) != 1 || len(f.employee.Completed()) != 0 {
		t.Fatalf("expected one ongoing task, got %d ongoing %d completed",
			len(f.employee.Ongoing()), len(f.employee.Completed()))
	}

	if _, err := f.employee.UpdateStatus(ctx, task.ID, models.StatusUpdate{Status: models.StatusCompleted}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	requested, err := f.employee.RequestApproval(ctx, task.ID)
	if err != nil {
		t.Fatalf("RequestApproval: %v", err)
	}
	if requested.RequestStatus != models.RequestRequested {
		t.Fatalf("requestStatus = %q, want requested", requested.RequestStatus)
	}

	if err := f.admin.Refresh(ctx); err != nil {
		t.Fatalf("admin Refresh: %v", err)
	}
	decided, err := f.admin.Decide(ctx, task.ID, models.RequestApproved, "Great job", 5)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decided.ApproveReview != "Great job" || decided.Rating != 5 {
		t.Fatalf("unexpected decided task: %+v", decided)
	}

	if len(f.admin.Ongoing()) != 0 || len(f.admin.Completed()) != 1 {
		t.Fatal("approved task should move to the completed partition")
	}
	if err := f.employee.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(f.employee.Completed()) != 1 {
		t.Fatal("employee should see the approved task as completed")
	}
}

func TestDecide_DeclineClearsApproval(t *testing.T) {
	f := newViewFixture(t)
	ctx := context.Background()
	task := f.createAliceTask(t)

	if _, err := f.employee.UpdateStatus(ctx, task.ID, models.StatusUpdate{Status: models.StatusCompleted}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if _, err := f.employee.RequestApproval(ctx, task.ID); err != nil {
		t.Fatalf("RequestApproval: %v", err)
	}
	if err := f.admin.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	declined, err := f.admin.Decide(ctx, task.ID, models.RequestDeclined, "", 0)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if declined.RequestStatus != models.RequestDeclined || declined.DeclineReason != DefaultDeclineReason {
		t.Fatalf("unexpected declined task: %+v", declined)
	}
	if declined.ApproveReview != "" || declined.Rating != 0 {
		t.Fatalf("approval fields should be empty: %+v", declined)
	}

	// Resubmission is allowed after a decline.
	if err := f.employee.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	again, err := f.employee.RequestApproval(ctx, task.ID)
	if err != nil {
		t.Fatalf("resubmitting: %v", err)
	}
	if again.RequestStatus != models.RequestRequested {
		t.Fatalf("requestStatus = %q, want requested", again.RequestStatus)
	}
}

func TestRequestApproval_NotCompletedNeverReachesStore(t *testing.T) {
	f := newViewFixture(t)
	task := f.createAliceTask(t)
	before := f.store.calls

	_, err := f.employee.RequestApproval(context.Background(), task.ID)
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}
	if f.store.calls != before {
		t.Fatalf("store was called %d times", f.store.calls-before)
	}
	got, _ := f.employee.Task(task.ID)
	if got.RequestStatus != models.RequestNone {
		t.Fatalf("local requestStatus changed to %q", got.RequestStatus)
	}
}

func TestMutate_RollsBackOnStoreFailure(t *testing.T) {
	f := newViewFixture(t)
	ctx := context.Background()
	f.createAliceTask(t)
	f.createAliceTask(t)
	before := f.employee.Tasks()

	f.store.failNext = &ServerError{Status: 500, Message: "database unavailable"}
	_, err := f.employee.UpdateStatus(ctx, before[0].ID, models.StatusUpdate{Status: models.StatusInProgress})
	var serr *ServerError
	if !errors.As(err, &serr) {
		t.Fatalf("expected ServerError, got %v", err)
	}

	if !reflect.DeepEqual(f.employee.Tasks(), before) {
		t.Fatal("local state should be restored after a failed mutation")
	}
	if last := f.events.events[len(f.events.events)-1]; last != EventMutationFailed {
		t.Fatalf("last event = %q, want %q", last, EventMutationFailed)
	}
}

func TestMutate_SessionExpiry(t *testing.T) {
	f := newViewFixture(t)
	ctx := context.Background()
	task := f.createAliceTask(t)

	f.store.failNext = ErrSessionExpired
	_, err := f.employee.UpdateStatus(ctx, task.ID, models.StatusUpdate{Status: models.StatusInProgress})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if !f.employee.Session().Expired() {
		t.Fatal("session should be marked expired")
	}
	if last := f.events.events[len(f.events.events)-1]; last != EventSessionExpired {
		t.Fatalf("last event = %q, want %q", last, EventSessionExpired)
	}

	calls := f.store.calls
	if _, err := f.employee.UpdateStatus(ctx, task.ID, models.StatusUpdate{Status: models.StatusInProgress}); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired on expired session, got %v", err)
	}
	if f.store.calls != calls {
		t.Fatal("expired session must not reach the store")
	}
}

func TestMutate_VersionConflictBetweenAdmins(t *testing.T) {
	f := newViewFixture(t)
	ctx := context.Background()
	task := f.createAliceTask(t)

	other, err := NewAdminView(f.store, models.NewSession("other-token", testAdmin), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := other.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := f.admin.EditTask(ctx, task.ID, models.TaskEdit{Title: strPtr("First edit")}); err != nil {
		t.Fatalf("first edit: %v", err)
	}
	_, err = other.EditTask(ctx, task.ID, models.TaskEdit{Title: strPtr("Second edit")})
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	got, _ := other.Task(task.ID)
	if got.Title != "First edit" {
		t.Fatalf("conflicting view should resync to the store's copy, got title %q", got.Title)
	}

	if _, err := other.EditTask(ctx, task.ID, models.TaskEdit{Title: strPtr("Second edit")}); err != nil {
		t.Fatalf("retry after conflict: %v", err)
	}
}

func TestMutate_ConflictResyncsForRetry(t *testing.T) {
	f := newViewFixture(t)
	ctx := context.Background()
	task := f.createAliceTask(t)

	if _, err := f.admin.EditTask(ctx, task.ID, models.TaskEdit{Title: strPtr("Renamed by admin")}); err != nil {
		t.Fatalf("EditTask: %v", err)
	}

	upd := models.StatusUpdate{Status: models.StatusInProgress}
	if _, err := f.employee.UpdateStatus(ctx, task.ID, upd); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict on the stale write, got %v", err)
	}
	got, err := f.employee.UpdateStatus(ctx, task.ID, upd)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got.Status != models.StatusInProgress || got.Title != "Renamed by admin" {
		t.Fatalf("unexpected task after retry: %+v", got)
	}
}

func TestRequestApproval_ResubmitAfterDeclineWithoutRefresh(t *testing.T) {
	f := newViewFixture(t)
	ctx := context.Background()
	task := f.createAliceTask(t)

	if _, err := f.employee.UpdateStatus(ctx, task.ID, models.StatusUpdate{Status: models.StatusCompleted}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.employee.RequestApproval(ctx, task.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.admin.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.admin.Decide(ctx, task.ID, models.RequestDeclined, "Missing totals", 2); err != nil {
		t.Fatal(err)
	}

	// The employee view still holds the requested copy.
	cached, _ := f.employee.Task(task.ID)
	if cached.RequestStatus != models.RequestRequested {
		t.Fatalf("cached requestStatus = %q, want requested", cached.RequestStatus)
	}
	calls := f.store.calls
	again, err := f.employee.RequestApproval(ctx, task.ID)
	if err != nil {
		t.Fatalf("resubmission: %v", err)
	}
	if again.RequestStatus != models.RequestRequested {
		t.Fatalf("requestStatus = %q, want requested", again.RequestStatus)
	}
	if f.store.calls != calls+1 {
		t.Fatalf("expected one store mutation, got %d", f.store.calls-calls)
	}
}

func TestMutate_PreconditionStillFailsAfterRecheck(t *testing.T) {
	f := newViewFixture(t)
	ctx := context.Background()
	task := f.createAliceTask(t)
	if err := f.admin.DeleteTask(ctx, task.ID); err != nil {
		t.Fatal(err)
	}

	_, err := f.employee.RequestApproval(ctx, task.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a task deleted elsewhere, got %v", err)
	}
	if _, ok := f.employee.Task(task.ID); ok {
		t.Fatal("deleted task should be gone after the recheck")
	}
}

func TestDeleteTask(t *testing.T) {
	f := newViewFixture(t)
	ctx := context.Background()
	task := f.createAliceTask(t)

	if err := f.admin.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, ok := f.admin.Task(task.ID); ok {
		t.Fatal("deleted task still in view")
	}
	if err := f.admin.DeleteTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on re-delete, got %v", err)
	}
}

func TestDeleteTask_RestoresPositionOnFailure(t *testing.T) {
	f := newViewFixture(t)
	ctx := context.Background()
	f.createAliceTask(t)
	middle := f.createAliceTask(t)
	f.createAliceTask(t)
	before := f.admin.Tasks()

	f.store.failNext = &NetworkError{Op: "DELETE", Err: errors.New("connection reset")}
	if err := f.admin.DeleteTask(ctx, middle.ID); err == nil {
		t.Fatal("expected error")
	}
	if !reflect.DeepEqual(f.admin.Tasks(), before) {
		t.Fatalf("task order not restored: %v", ids(f.admin.Tasks()))
	}
}

func TestCreateTask_FillsDefaults(t *testing.T) {
	f := newViewFixture(t)
	nt := sampleNewTask(testBob.ID)
	nt.Status = ""
	created, err := f.admin.CreateTask(context.Background(), nt)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if created.AssignedBy != testAdmin.Username {
		t.Fatalf("assignedBy = %q, want %q", created.AssignedBy, testAdmin.Username)
	}
	if created.AssignedTo != testBob.Assignee() {
		t.Fatalf("assignedTo = %+v", created.AssignedTo)
	}
}

func TestCreateTask_ValidationNeverReachesStore(t *testing.T) {
	f := newViewFixture(t)
	_, err := f.admin.CreateTask(context.Background(), models.NewTask{Title: "only a title"})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.store.calls != 0 {
		t.Fatalf("store called %d times", f.store.calls)
	}
}

func TestAdminFilter(t *testing.T) {
	f := newViewFixture(t)
	ctx := context.Background()
	f.createAliceTask(t)
	if _, err := f.admin.CreateTask(ctx, sampleNewTask(testBob.ID)); err != nil {
		t.Fatal(err)
	}
	if got := f.admin.Filter("", AllStatuses); len(got) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(got))
	}
	got := f.admin.Filter("ALICE", AllStatuses)
	if len(got) != 1 || got[0].AssignedTo.ID != testAlice.ID {
		t.Fatalf("unexpected filter result: %v", ids(got))
	}
}

func TestEmployeeView_OnlySeesOwnTasks(t *testing.T) {
	f := newViewFixture(t)
	ctx := context.Background()
	if _, err := f.admin.CreateTask(ctx, sampleNewTask(testBob.ID)); err != nil {
		t.Fatal(err)
	}
	bobTask := f.admin.Tasks()[0]
	if err := f.employee.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if len(f.employee.Tasks()) != 0 {
		t.Fatal("alice should not see bob's task")
	}
	_, err := f.employee.UpdateStatus(ctx, bobTask.ID, models.StatusUpdate{Status: models.StatusInProgress})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
