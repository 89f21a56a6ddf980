package models

import "time"

// WorkStatus is the assignee-controlled progress of a task.
type WorkStatus string

const (
	StatusNotStarted WorkStatus = "not started"
	StatusInProgress WorkStatus = "in progress"
	StatusCompleted  WorkStatus = "completed"
)

// legacyNewTaskStatus is the value older clients send on create.
const legacyNewTaskStatus = "new task"

// WorkStatuses lists every work status in lifecycle order.
func WorkStatuses() []WorkStatus {
	return []WorkStatus{StatusNotStarted, StatusInProgress, StatusCompleted}
}

// Valid reports whether s is a known work status.
func (s WorkStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// NormalizeWorkStatus maps the legacy "new task" value and the empty string to
// StatusNotStarted and returns any other value unchanged.
func NormalizeWorkStatus(s string) WorkStatus {
	if s == "" || s == legacyNewTaskStatus {
		return StatusNotStarted
	}
	return WorkStatus(s)
}

// RequestStatus is the approval-workflow state of a task.
type RequestStatus string

const (
	RequestNone      RequestStatus = "none"
	RequestRequested RequestStatus = "requested"
	RequestApproved  RequestStatus = "approved"
	RequestDeclined  RequestStatus = "declined"
)

// RequestStatuses lists every request status.
func RequestStatuses() []RequestStatus {
	return []RequestStatus{RequestNone, RequestRequested, RequestApproved, RequestDeclined}
}

// Valid reports whether s is a known request status.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestNone, RequestRequested, RequestApproved, RequestDeclined:
		return true
	}
	return false
}

// Decision is the outcome an administrator assigns to a requested task.
type Decision = RequestStatus

// MaxRating is the highest rating an administrator can give.
const MaxRating = 5

// Assignee identifies the employee a task is assigned to. Username and
// FullName are display data resolved by the store.
type Assignee struct {
	ID       string `json:"_id" yaml:"id"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	FullName string `json:"fullName,omitempty" yaml:"full_name,omitempty"`
}

// Task is a unit of work assigned by an administrator to an employee.
type Task struct {
	ID            string        `json:"_id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	AssignedTo    Assignee      `json:"assignedTo"`
	AssignedBy    string        `json:"assignedBy"`
	Deadline      time.Time     `json:"deadline"`
	Status        WorkStatus    `json:"status"`
	RequestStatus RequestStatus `json:"requestStatus"`
	Notes         string        `json:"notes,omitempty"`
	ApproveReview string        `json:"approveReview,omitempty"`
	DeclineReason string        `json:"declineReason,omitempty"`
	Rating        int           `json:"rating"`
	Version       int64         `json:"version"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Clone returns a copy of t. Task holds no reference types, so a value copy
// is a deep copy; Clone exists so callers state the intent.
func (t Task) Clone() Task {
	return t
}

// NewTask carries the fields an administrator supplies on create.
type NewTask struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description" validate:"required"`
	AssignedTo  string    `json:"assignedTo" validate:"required"`
	AssignedBy  string    `json:"assignedBy"`
	Deadline    time.Time `json:"deadline" validate:"required"`
	Status      string    `json:"status,omitempty"`
}

// TaskEdit carries an administrator's edit of task details. Nil fields are
// left unchanged.
type TaskEdit struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}

// StatusUpdate carries an assignee's progress update. An empty Status or a
// nil Notes leaves that field unchanged.
type StatusUpdate struct {
	Status WorkStatus `json:"status,omitempty"`
	Notes  *string    `json:"notes,omitempty"`
}

// Review carries an administrator's decision on a requested task.
type Review struct {
	Decision   Decision `json:"requestStatus"`
	ReviewText string   `json:"review,omitempty"`
	Rating     int      `json:"rating"`
}
