package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// fakeStore is an in-memory TaskStore that enforces the same rules and
// version checks as the real store.
type fakeStore struct {
	mu        sync.Mutex
	tasks     []models.Task
	employees map[string]models.Employee
	nextID    int
	now       time.Time

	// failNext makes the next mutation fail with the given error.
	failNext error
	calls    int
}

func newFakeStore(employees ...models.Employee) *fakeStore {
	s := &fakeStore{
		employees: make(map[string]models.Employee),
		now:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	for _, e := range employees {
		s.employees[e.ID] = e
	}
	return s
}

func (s *fakeStore) takeFailure() error {
	s.calls++
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *fakeStore) ListAssigned(_ context.Context, employeeID string) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.AssignedTo.ID == employeeID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeStore) ListAll(_ context.Context) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Task(nil), s.tasks...), nil
}

func (s *fakeStore) CreateTask(_ context.Context, nt models.NewTask) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	if err := ValidateNewTask(nt); err != nil {
		return nil, err
	}
	emp, ok := s.employees[nt.AssignedTo]
	if !ok {
		return nil, ErrNotFound
	}
	s.nextID++
	t := BuildTask(fmt.Sprintf("task-%03d", s.nextID), nt, emp.Assignee(), s.now)
	s.tasks = append(s.tasks, t)
	return &t, nil
}

func (s *fakeStore) mutate(id string, version int64, fn func(*models.Task) error) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		if s.tasks[i].Version != version {
			return nil, ErrVersionConflict
		}
		next := s.tasks[i]
		if err := fn(&next); err != nil {
			return nil, err
		}
		next.Version++
		next.UpdatedAt = s.now
		s.tasks[i] = next
		return &next, nil
	}
	return nil, ErrNotFound
}

func (s *fakeStore) UpdateTask(_ context.Context, id string, version int64, upd models.StatusUpdate) (*models.Task, error) {
	return s.mutate(id, version, func(t *models.Task) error {
		return ApplyStatusUpdate(t, t.AssignedTo.ID, upd)
	})
}

func (s *fakeStore) EditTask(_ context.Context, id string, version int64, edit models.TaskEdit) (*models.Task, error) {
	return s.mutate(id, version, func(t *models.Task) error {
		return ApplyEdit(t, edit)
	})
}

func (s *fakeStore) RequestApproval(_ context.Context, id string, version int64) (*models.Task, error) {
	return s.mutate(id, version, func(t *models.Task) error {
		return ApplyApprovalRequest(t, t.AssignedTo.ID)
	})
}

func (s *fakeStore) DecideTask(_ context.Context, id string, version int64, r models.Review) (*models.Task, error) {
	return s.mutate(id, version, func(t *models.Task) error {
		return ApplyReview(t, r)
	})
}

func (s *fakeStore) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// recordingLogger captures logged events.
type recordingLogger struct {
	mu     sync.Mutex
	events []string
	data   []map[string]any
}

func (r *recordingLogger) LogEvent(eventType string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
	r.data = append(r.data, data)
	return nil
}

var (
	testAdmin = models.Employee{ID: "emp-admin", Username: "boss", FullName: "Bea Boss", Role: models.RoleAdmin}
	testAlice = models.Employee{ID: "emp-alice", Username: "alice", FullName: "Alice Archer", Role: models.RoleEmployee}
	testBob   = models.Employee{ID: "emp-bob", Username: "bob", FullName: "Bob Baker", Role: models.RoleEmployee}
)

func sampleNewTask(assignee string) models.NewTask {
	return models.NewTask{
		Title:       "Write quarterly report",
		Description: "Summarise Q1 numbers",
		AssignedTo:  assignee,
		Deadline:    time.Date(2026, 3, 15, 17, 0, 0, 0, time.UTC),
		Status:      "new task",
	}
}
