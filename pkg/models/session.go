package models

import (
	"sync"
	"time"
)

// Role is an employee's permission level.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// Employee is a directory entry. PasswordHash never leaves the store.
type Employee struct {
	ID           string    `json:"_id" yaml:"id"`
	Username     string    `json:"username" yaml:"username"`
	FullName     string    `json:"fullName" yaml:"full_name"`
	Email        string    `json:"email,omitempty" yaml:"email,omitempty"`
	Phone        string    `json:"phone,omitempty" yaml:"phone,omitempty"`
	JobTitle     string    `json:"jobTitle,omitempty" yaml:"job_title,omitempty"`
	Location     string    `json:"location,omitempty" yaml:"location,omitempty"`
	JobCategory  string    `json:"jobCategory,omitempty" yaml:"job_category,omitempty"`
	Role         Role      `json:"role" yaml:"role"`
	PasswordHash string    `json:"-" yaml:"-"`
	CreatedAt    time.Time `json:"createdAt" yaml:"created_at"`
}

// Assignee returns the assignee reference for e.
func (e Employee) Assignee() Assignee {
	return Assignee{ID: e.ID, Username: e.Username, FullName: e.FullName}
}

// Session holds the bearer token and profile obtained at sign-in. It is
// passed explicitly to the views; when the store rejects the token the view
// marks the session expired instead of navigating anywhere.
type Session struct {
	Token    string    `yaml:"token"`
	Employee Employee  `yaml:"employee"`
	IssuedAt time.Time `yaml:"issued_at"`

	mu      sync.RWMutex
	expired bool
}

// NewSession returns a live session for the given token and employee.
func NewSession(token string, employee Employee) *Session {
	return &Session{Token: token, Employee: employee, IssuedAt: time.Now().UTC()}
}

// IsAdmin reports whether the session belongs to an administrator.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Employee.Role == RoleAdmin
}

// MarkExpired flags the session as no longer usable.
func (s *Session) MarkExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired = true
}

// Expired reports whether the session has been rejected by the store or
// never carried a token.
func (s *Session) Expired() bool {
	if s == nil || s.Token == "" {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expired
}
