// Package taskapi is the HTTP client for the taskdesk REST API. Client
// implements core.TaskStore so the views can run against a remote server.
package taskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// InvalidTokenMessage is the message the server sends when it rejects a
// bearer token. Some deployments send it with a status other than 401.
const InvalidTokenMessage = "Invalid or expired token"

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 8 << 20

var _ core.TaskStore = (*Client)(nil)

// Client talks to a taskdesk server. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
	session *models.Session
	logger  logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithSession makes the client send the session's bearer token.
func WithSession(s *models.Session) Option {
	return func(c *Client) { c.session = s }
}

// WithLogger sets the logger used for request tracing at debug level.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the server at baseURL, e.g. http://127.0.0.1:8000.
func New(baseURL string, opts ...Option) *Client {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForSession returns a copy of c that authenticates as s.
func (c *Client) ForSession(s *models.Session) *Client {
	cp := *c
	cp.session = s
	return &cp
}

// Session returns the session the client authenticates as, if any.
func (c *Client) Session() *models.Session {
	return c.session
}

// SignIn exchanges a username and password for a session.
func (c *Client) SignIn(ctx context.Context, username, password string) (*models.Session, error) {
	var resp models.SignInResponse
	err := c.do(ctx, http.MethodPost, "/api/users/login", 0,
		models.SignInRequest{Username: username, Password: password}, &resp)
	if err != nil {
		// A 401 here is a bad password, not an expired session.
		if isSessionExpired(err) {
			return nil, fmt.Errorf("signing in as %s: %w", username, core.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("signing in as %s: %w", username, err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("signing in as %s: server returned no token", username)
	}
	return models.NewSession(resp.Token, resp.User), nil
}

// ListEmployees returns the employee directory. Administrators only.
func (c *Client) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	var emps []models.Employee
	if err := c.do(ctx, http.MethodGet, "/api/users", 0, nil, &emps); err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}
	return emps, nil
}

// CreateEmployee adds an employee. Administrators only.
func (c *Client) CreateEmployee(ctx context.Context, ne models.NewEmployee) (*models.Employee, error) {
	var emp models.Employee
	if err := c.do(ctx, http.MethodPost, "/api/users", 0, ne, &emp); err != nil {
		return nil, fmt.Errorf("creating employee %s: %w", ne.Username, err)
	}
	return &emp, nil
}

// GetTask fetches a single task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	var t models.Task
	if err := c.do(ctx, http.MethodGet, taskPath(taskID), 0, nil, &t); err != nil {
		return nil, fmt.Errorf("fetching task %s: %w", taskID, err)
	}
	return &t, nil
}

func (c *Client) ListAssigned(ctx context.Context, employeeID string) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks/assigned/"+url.PathEscape(employeeID), 0, nil, &tasks); err != nil {
		return nil, fmt.Errorf("listing tasks assigned to %s: %w", employeeID, err)
	}
	return tasks, nil
}

func (c *Client) ListAll(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", 0, nil, &tasks); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, nt models.NewTask) (*models.Task, error) {
	var t models.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", 0, nt, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) UpdateTask(ctx context.Context, taskID string, version int64, upd models.StatusUpdate) (*models.Task, error) {
	body := models.TaskPatch{Status: upd.Status, Notes: upd.Notes, Version: version}
	return c.mutate(ctx, http.MethodPatch, taskPath(taskID), version, body)
}

func (c *Client) EditTask(ctx context.Context, taskID string, version int64, edit models.TaskEdit) (*models.Task, error) {
	body := models.TaskPatch{Title: edit.Title, Description: edit.Description, Deadline: edit.Deadline, Version: version}
	return c.mutate(ctx, http.MethodPatch, taskPath(taskID), version, body)
}

func (c *Client) RequestApproval(ctx context.Context, taskID string, version int64) (*models.Task, error) {
	body := models.ApprovalRequest{RequestStatus: models.RequestRequested, Version: version}
	return c.mutate(ctx, http.MethodPatch, taskPath(taskID)+"/request-approval", version, body)
}

func (c *Client) DecideTask(ctx context.Context, taskID string, version int64, review models.Review) (*models.Task, error) {
	return c.mutate(ctx, http.MethodPatch, taskPath(taskID)+"/approve-reject", version,
		models.NewDecisionRequest(review, version))
}

func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, taskPath(taskID), 0, nil, nil)
}

func (c *Client) mutate(ctx context.Context, method, path string, version int64, body any) (*models.Task, error) {
	var t models.Task
	if err := c.do(ctx, method, path, version, body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func taskPath(taskID string) string {
	return "/api/tasks/" + url.PathEscape(taskID)
}

// do sends one request and decodes a 2xx JSON body into out. Non-2xx
// responses become core errors; transport failures become *core.NetworkError.
func (c *Client) do(ctx context.Context, method, path string, version int64, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encoding body: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil && c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}
	if version > 0 {
		req.Header.Set("If-Match", strconv.FormatInt(version, 10))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("op", op).Debug("request failed")
		return &core.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &core.NetworkError{Op: op, Err: err}
	}
	c.logger.WithFields(logrus.Fields{
		"op":       op,
		"status":   resp.StatusCode,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}
