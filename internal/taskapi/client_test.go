package taskapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

var alice = models.Employee{ID: "emp-alice", Username: "alice", FullName: "Alice Archer", Role: models.RoleEmployee}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, WithSession(models.NewSession("tok-1", alice)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_ListAssignedSendsBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/tasks/assigned/emp-alice", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []models.Task{{ID: "t1", Title: "One", AssignedTo: alice.Assignee()}})
	})

	tasks, err := c.ListAssigned(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].ID)
	assert.Equal(t, "alice", tasks[0].AssignedTo.Username)
}

func TestClient_UpdateTaskSendsVersion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/tasks/t1", r.URL.Path)
		assert.Equal(t, "3", r.Header.Get("If-Match"))

		var patch models.TaskPatch
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		assert.Equal(t, models.StatusCompleted, patch.Status)
		assert.Equal(t, int64(3), patch.Version)
		assert.Nil(t, patch.Title)

		writeJSON(w, http.StatusOK, models.Task{ID: "t1", Status: models.StatusCompleted, Version: 4})
	})

	got, err := c.UpdateTask(context.Background(), "t1", 3, models.StatusUpdate{Status: models.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Version)
}

func TestClient_DecideTaskPutsReviewInMatchingField(t *testing.T) {
	tests := []struct {
		decision    models.Decision
		wantApprove string
		wantDecline string
	}{
		{models.RequestApproved, "Great job", ""},
		{models.RequestDeclined, "", "Great job"},
	}
	for _, tt := range tests {
		t.Run(string(tt.decision), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/tasks/t1/approve-reject", r.URL.Path)
				var body map[string]any
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, string(tt.decision), body["requestStatus"])
				assert.Equal(t, float64(5), body["rating"])
				if tt.wantApprove != "" {
					assert.Equal(t, tt.wantApprove, body["approveReview"])
					assert.NotContains(t, body, "declineReason")
				} else {
					assert.Equal(t, tt.wantDecline, body["declineReason"])
					assert.NotContains(t, body, "approveReview")
				}
				writeJSON(w, http.StatusOK, models.Task{ID: "t1", RequestStatus: tt.decision})
			})
			_, err := c.DecideTask(context.Background(), "t1", 2,
				models.Review{Decision: tt.decision, ReviewText: "Great job", Rating: 5})
			require.NoError(t, err)
		})
	}
}

func TestClient_RequestApprovalBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks/t1/request-approval", r.URL.Path)
		var body models.ApprovalRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, models.RequestRequested, body.RequestStatus)
		writeJSON(w, http.StatusOK, models.Task{ID: "t1", RequestStatus: models.RequestRequested})
	})
	got, err := c.RequestApproval(context.Background(), "t1", 1)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRequested, got.RequestStatus)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, models.ErrorResponse{Message: "nope"}, core.ErrSessionExpired},
		{"invalid token message", http.StatusForbidden, models.ErrorResponse{Message: InvalidTokenMessage}, core.ErrSessionExpired},
		{"forbidden", http.StatusForbidden, models.ErrorResponse{Message: "admins only"}, core.ErrForbidden},
		{"not found", http.StatusNotFound, models.ErrorResponse{Message: "task not found"}, core.ErrNotFound},
		{"conflict", http.StatusConflict, models.ErrorResponse{Message: "stale"}, core.ErrVersionConflict},
		{"precondition", http.StatusPreconditionFailed, models.ErrorResponse{Message: "not completed"}, core.ErrPreconditionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := c.ListAll(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_DuplicateIsNotAVersionConflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users", r.URL.Path)
		writeJSON(w, http.StatusConflict, models.ErrorResponse{
			Message: "creating employee carol: already exists",
			Code:    models.ErrorCodeDuplicate,
		})
	})
	_, err := c.CreateEmployee(context.Background(), models.NewEmployee{Username: "carol"})
	assert.ErrorIs(t, err, core.ErrDuplicate)
	assert.False(t, errors.Is(err, core.ErrVersionConflict))
}

func TestClient_ValidationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Message: "validation failed",
			Fields:  map[string]string{"title": "is required"},
		})
	})
	_, err := c.CreateTask(context.Background(), models.NewTask{})

	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "is required", verr.Fields["title"])
}

func TestClient_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	err := c.DeleteTask(context.Background(), "t1")

	var serr *core.ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusBadGateway, serr.Status)
	assert.Equal(t, "boom", serr.Message)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, WithTimeout(time.Second))
	_, err := c.ListAll(context.Background())

	var nerr *core.NetworkError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "GET /api/tasks", nerr.Op)
}

func TestClient_SignIn(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/login", r.URL.Path)
		var req models.SignInRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "correct horse" {
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Message: "invalid username or password"})
			return
		}
		writeJSON(w, http.StatusOK, models.SignInResponse{Token: "jwt-abc", User: alice})
	})

	session, err := c.SignIn(context.Background(), "alice", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", session.Token)
	assert.Equal(t, alice.ID, session.Employee.ID)
	assert.False(t, session.Expired())

	_, err = c.SignIn(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
	assert.False(t, errors.Is(err, core.ErrSessionExpired))
}

func TestClient_ForSessionDoesNotMutateOriginal(t *testing.T) {
	c := New("http://example.invalid")
	admin := models.NewSession("admin-tok", models.Employee{ID: "a", Role: models.RoleAdmin})
	scoped := c.ForSession(admin)
	assert.Nil(t, c.Session())
	assert.Same(t, admin, scoped.Session())
}
