package models

import "time"

// SignInRequest is the body of POST /api/users/login.
type SignInRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SignInResponse is returned on a successful sign-in.
type SignInResponse struct {
	Token string   `json:"token"`
	User  Employee `json:"user"`
}

// NewEmployee is the body of POST /api/users.
type NewEmployee struct {
	Username    string `json:"username" validate:"required,min=2,max=64"`
	FullName    string `json:"fullName" validate:"required"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone,omitempty" validate:"omitempty,max=32"`
	JobTitle    string `json:"jobTitle,omitempty"`
	Location    string `json:"location,omitempty"`
	JobCategory string `json:"jobCategory,omitempty"`
	Role        Role   `json:"role" validate:"required,oneof=admin employee"`
	Password    string `json:"password" validate:"required,min=8"`
}

// Employee returns the directory record described by n, without a password.
func (n NewEmployee) Employee() Employee {
	return Employee{
		Username:    n.Username,
		FullName:    n.FullName,
		Email:       n.Email,
		Phone:       n.Phone,
		JobTitle:    n.JobTitle,
		Location:    n.Location,
		JobCategory: n.JobCategory,
		Role:        n.Role,
	}
}

// EmployeeUpdate is the body of PUT /api/users/update-user/:id. nil means
// unchanged; the username and password are not editable here.
type EmployeeUpdate struct {
	FullName    *string `json:"fullName,omitempty" validate:"omitempty,min=1"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	JobTitle    *string `json:"jobTitle,omitempty"`
	Location    *string `json:"location,omitempty"`
	JobCategory *string `json:"jobCategory,omitempty"`
	Role        *Role   `json:"role,omitempty" validate:"omitempty,oneof=admin employee"`
}

// IsEmpty reports whether u changes nothing.
func (u EmployeeUpdate) IsEmpty() bool {
	return u.FullName == nil && u.Email == nil && u.Phone == nil && u.JobTitle == nil &&
		u.Location == nil && u.JobCategory == nil && u.Role == nil
}

// Apply copies the set fields of u onto e.
func (u EmployeeUpdate) Apply(e *Employee) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&e.FullName, u.FullName)
	set(&e.Email, u.Email)
	set(&e.Phone, u.Phone)
	set(&e.JobTitle, u.JobTitle)
	set(&e.Location, u.Location)
	set(&e.JobCategory, u.JobCategory)
	if u.Role != nil {
		e.Role = *u.Role
	}
}

// PasswordChange is the body of PUT /api/users/change-password.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

// NewTodo is the body of POST /api/todos. UserID is accepted for
// compatibility; the server always files the item under the caller.
type NewTodo struct {
	Title  string `json:"title" validate:"required,max=200"`
	UserID string `json:"userId,omitempty"`
}

// CatalogEntryRequest is the body of POST /api/locations and
// POST /api/job-categories.
type CatalogEntryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// TaskPatch is the body of PATCH /api/tasks/:id. Administrators send the
// detail fields, assignees the progress fields; nil means unchanged.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Status      WorkStatus `json:"status,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	Version     int64      `json:"version,omitempty"`
}

// IsEdit reports whether p touches administrator-owned fields.
func (p TaskPatch) IsEdit() bool {
	return p.Title != nil || p.Description != nil || p.Deadline != nil
}

// IsStatusUpdate reports whether p touches assignee-owned fields.
func (p TaskPatch) IsStatusUpdate() bool {
	return p.Status != "" || p.Notes != nil
}

// Edit returns the administrator part of p.
func (p TaskPatch) Edit() TaskEdit {
	return TaskEdit{Title: p.Title, Description: p.Description, Deadline: p.Deadline}
}

// StatusUpdate returns the assignee part of p.
func (p TaskPatch) StatusUpdate() StatusUpdate {
	return StatusUpdate{Status: p.Status, Notes: p.Notes}
}

// ApprovalRequest is the body of PATCH /api/tasks/:id/request-approval.
type ApprovalRequest struct {
	RequestStatus RequestStatus `json:"requestStatus"`
	Version       int64         `json:"version,omitempty"`
}

// DecisionRequest is the body of PATCH /api/tasks/:id/approve-reject. The
// review text travels in the field matching the decision.
type DecisionRequest struct {
	RequestStatus Decision `json:"requestStatus" validate:"required,oneof=approved declined"`
	ApproveReview string   `json:"approveReview,omitempty"`
	DeclineReason string   `json:"declineReason,omitempty"`
	Rating        int      `json:"rating" validate:"min=0,max=5"`
	Version       int64    `json:"version,omitempty"`
}

// NewDecisionRequest builds the wire form of r.
func NewDecisionRequest(r Review, version int64) DecisionRequest {
	req := DecisionRequest{RequestStatus: r.Decision, Rating: r.Rating, Version: version}
	if r.Decision == RequestApproved {
		req.ApproveReview = r.ReviewText
	} else {
		req.DeclineReason = r.ReviewText
	}
	return req
}

// Review returns the decision carried by d.
func (d DecisionRequest) Review() Review {
	text := d.DeclineReason
	if d.RequestStatus == RequestApproved {
		text = d.ApproveReview
	}
	return Review{Decision: d.RequestStatus, ReviewText: text, Rating: d.Rating}
}

// Error codes carried by ErrorResponse where the status alone is ambiguous.
const (
	ErrorCodeDuplicate       = "duplicate"
	ErrorCodeVersionConflict = "version_conflict"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
