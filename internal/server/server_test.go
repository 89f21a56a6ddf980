package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/internal/storage"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

const testPassword = "correct horse"

type memEvents struct {
	mu    sync.Mutex
	types []string
}

func (m *memEvents) LogEvent(eventType string, _ map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types = append(m.types, eventType)
	return nil
}

type testEnv struct {
	srv    *Server
	events *memEvents
	admin  *models.Employee
	alice  *models.Employee
	bob    *models.Employee
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := storage.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	stores := StoresFor(db, logger)
	employees := stores.Employees
	events := &memEvents{}
	srv, err := New(Config{JWTSecret: []byte("test-secret"), TokenTTL: time.Hour}, stores, events, logger)
	require.NoError(t, err)

	seed := func(username string, role models.Role) *models.Employee {
		emp, err := employees.Create(context.Background(), models.Employee{
			Username: username, FullName: "Test " + username, Role: role,
		}, testPassword)
		require.NoError(t, err)
		return emp
	}
	return &testEnv{
		srv:    srv,
		events: events,
		admin:  seed("boss", models.RoleAdmin),
		alice:  seed("alice", models.RoleEmployee),
		bob:    seed("bob", models.RoleEmployee),
	}
}

func (e *testEnv) token(t *testing.T, emp *models.Employee) string {
	t.Helper()
	tok, err := e.srv.issueToken(emp)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) createTask(t *testing.T, assignee *models.Employee) models.Task {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/tasks", e.token(t, e.admin), models.NewTask{
		Title:       "Restock shelves",
		Description: "Aisle 4",
		AssignedTo:  assignee.ID,
		Deadline:    time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
		Status:      "new task",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Task](t, rec)
}

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New(Config{}, Stores{}, nil, logrus.New())
	assert.Error(t, err)
}

func TestSignIn(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users/login", "", models.SignInRequest{Username: "alice", Password: testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[models.SignInResponse](t, rec)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, env.alice.ID, resp.User.ID)
	assert.NotContains(t, rec.Body.String(), "password")

	claims, err := env.srv.parseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, env.alice.ID, claims.EmployeeID)
	assert.Equal(t, models.RoleEmployee, claims.Role)

	rec = env.do(t, http.MethodPost, "/api/users/login", "", models.SignInRequest{Username: "alice", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/users/login", "", models.SignInRequest{Username: "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[models.ErrorResponse](t, rec).Fields, "password")
}

func TestAuth_MissingOrBadToken(t *testing.T) {
	env := setupTestEnv(t)

	for _, tok := range []string{"", "garbage"} {
		rec := env.do(t, http.MethodGet, "/api/tasks", tok, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, InvalidTokenMessage, decode[models.ErrorResponse](t, rec).Message)
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	env := setupTestEnv(t)
	tok := env.token(t, env.admin)
	env.srv.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }

	rec := env.do(t, http.MethodGet, "/api/tasks", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutesRejectEmployees(t *testing.T) {
	env := setupTestEnv(t)
	tok := env.token(t, env.alice)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/tasks"},
		{http.MethodGet, "/api/users"},
		{http.MethodPost, "/api/tasks"},
		{http.MethodPatch, "/api/tasks/x/approve-reject"},
		{http.MethodDelete, "/api/tasks/x"},
	} {
		rec := env.do(t, route.method, route.path, tok, map[string]any{})
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", route.method, route.path)
	}
}

func TestCreateTask(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, env.alice)

	assert.Equal(t, models.StatusNotStarted, task.Status)
	assert.Equal(t, models.RequestNone, task.RequestStatus)
	assert.Equal(t, env.alice.Assignee(), task.AssignedTo)
	assert.Equal(t, "boss", task.AssignedBy)
	assert.Equal(t, int64(1), task.Version)
	assert.Contains(t, env.events.types, core.EventTaskCreated)
}

func TestCreateTask_UnknownAssignee(t *testing.T) {
	env := setupTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/tasks", env.token(t, env.admin), models.NewTask{
		Title: "x", Description: "y", AssignedTo: "ghost", Deadline: time.Now(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[models.ErrorResponse](t, rec).Fields, "assignedTo")
}

func TestListAssigned_OwnOrAdmin(t *testing.T) {
	env := setupTestEnv(t)
	env.createTask(t, env.alice)
	env.createTask(t, env.bob)

	rec := env.do(t, http.MethodGet, "/api/tasks/assigned/"+env.alice.ID, env.token(t, env.alice), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Task](t, rec), 1)

	rec = env.do(t, http.MethodGet, "/api/tasks/assigned/"+env.bob.ID, env.token(t, env.alice), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/tasks/assigned/"+env.bob.ID, env.token(t, env.admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Task](t, rec), 1)
}

func TestPatchTask_AssigneeOnlyStatus(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, env.alice)
	path := "/api/tasks/" + task.ID

	rec := env.do(t, http.MethodPatch, path, env.token(t, env.bob), models.TaskPatch{Status: models.StatusInProgress})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPatch, path, env.token(t, env.alice), models.TaskPatch{Status: models.StatusInProgress, Version: 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[models.Task](t, rec)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.Equal(t, int64(2), got.Version)

	title := "Hijacked"
	rec = env.do(t, http.MethodPatch, path, env.token(t, env.alice), models.TaskPatch{Title: &title})
	assert.Equal(t, http.StatusForbidden, rec.Code, "employees cannot edit details")
}

func TestPatchTask_StaleVersion(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, env.alice)
	path := "/api/tasks/" + task.ID
	title := "Renamed"

	rec := env.do(t, http.MethodPatch, path, env.token(t, env.admin), models.TaskPatch{Title: &title, Version: 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPatch, path, env.token(t, env.admin), models.TaskPatch{Title: &title, Version: 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, models.ErrorCodeVersionConflict, decode[models.ErrorResponse](t, rec).Code)
}

func TestPatchTask_EmptyPatch(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, env.alice)
	rec := env.do(t, http.MethodPatch, "/api/tasks/"+task.ID, env.token(t, env.alice), models.TaskPatch{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestApproval_RequiresCompleted(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, env.alice)

	rec := env.do(t, http.MethodPatch, "/api/tasks/"+task.ID+"/request-approval", env.token(t, env.alice),
		models.ApprovalRequest{RequestStatus: models.RequestRequested})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestWorkflow_ApproveAndDecline(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, env.alice)
	path := "/api/tasks/" + task.ID
	alice, admin := env.token(t, env.alice), env.token(t, env.admin)

	rec := env.do(t, http.MethodPatch, path, alice, models.TaskPatch{Status: models.StatusCompleted})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPatch, path+"/request-approval", alice, models.ApprovalRequest{RequestStatus: models.RequestRequested})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RequestRequested, decode[models.Task](t, rec).RequestStatus)

	notes := "receipts attached"
	rec = env.do(t, http.MethodPatch, path, alice, models.TaskPatch{Notes: &notes})
	require.Equal(t, http.StatusOK, rec.Code, "notes stay editable while requested")
	rec = env.do(t, http.MethodPatch, path, alice, models.TaskPatch{Status: models.StatusInProgress})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code, "status is held while requested")

	rec = env.do(t, http.MethodPatch, path+"/approve-reject", admin, models.DecisionRequest{RequestStatus: models.RequestDeclined, Rating: 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	declined := decode[models.Task](t, rec)
	assert.Equal(t, models.RequestDeclined, declined.RequestStatus)
	assert.Equal(t, core.DefaultDeclineReason, declined.DeclineReason)

	rec = env.do(t, http.MethodPatch, path+"/approve-reject", admin, models.DecisionRequest{RequestStatus: models.RequestApproved})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code, "a declined task must be resubmitted first")

	rec = env.do(t, http.MethodPatch, path+"/request-approval", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPatch, path+"/approve-reject", admin, models.DecisionRequest{
		RequestStatus: models.RequestApproved, ApproveReview: "Great job", Rating: 5,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	approved := decode[models.Task](t, rec)
	assert.Equal(t, models.RequestApproved, approved.RequestStatus)
	assert.Equal(t, "Great job", approved.ApproveReview)
	assert.Empty(t, approved.DeclineReason)
	assert.Equal(t, 5, approved.Rating)

	rec = env.do(t, http.MethodPatch, path, alice, models.TaskPatch{Status: models.StatusInProgress})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code, "approved tasks are locked")

	assert.Subset(t, env.events.types, []string{
		core.EventStatusChanged, core.EventApprovalRequested, core.EventTaskDecided,
	})
}

func TestDecide_InvalidRating(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, env.alice)
	rec := env.do(t, http.MethodPatch, "/api/tasks/"+task.ID+"/approve-reject", env.token(t, env.admin),
		models.DecisionRequest{RequestStatus: models.RequestApproved, Rating: 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[models.ErrorResponse](t, rec).Fields, "rating")
}

func TestDeleteTask(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, env.alice)
	admin := env.token(t, env.admin)

	rec := env.do(t, http.MethodDelete, "/api/tasks/"+task.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/tasks/"+task.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateEmployee(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.token(t, env.admin)

	ne := models.NewEmployee{Username: "carol", FullName: "Carol C", Email: "carol@example.com", Role: models.RoleEmployee, Password: testPassword}
	rec := env.do(t, http.MethodPost, "/api/users", admin, ne)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "carol", decode[models.Employee](t, rec).Username)

	rec = env.do(t, http.MethodPost, "/api/users", admin, ne)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, models.ErrorCodeDuplicate, decode[models.ErrorResponse](t, rec).Code)

	ne.Username, ne.Email = "dave", "not-an-email"
	rec = env.do(t, http.MethodPost, "/api/users", admin, ne)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[models.ErrorResponse](t, rec).Fields, "email")
}

func TestMalformedBody(t *testing.T) {
	env := setupTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/users/login", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
