package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// FilterField names the task field a StatusFilter targets.
type FilterField string

const (
	FilterAll     FilterField = "all"
	FilterStatus  FilterField = "status"
	FilterRequest FilterField = "request"
)

// StatusFilter selects tasks by exactly one of the two status enumerations.
type StatusFilter struct {
	Field FilterField
	Value string
}

// AllStatuses matches every task.
var AllStatuses = StatusFilter{Field: FilterAll}

// ByStatus matches tasks whose work status is s.
func ByStatus(s models.WorkStatus) StatusFilter {
	return StatusFilter{Field: FilterStatus, Value: string(s)}
}

// ByRequest matches tasks whose request status is s.
func ByRequest(s models.RequestStatus) StatusFilter {
	return StatusFilter{Field: FilterRequest, Value: string(s)}
}

func (f StatusFilter) String() string {
	if f.Field == FilterAll || f.Field == "" {
		return string(FilterAll)
	}
	return string(f.Field) + ":" + f.Value
}

// ParseStatusFilter accepts "all", "status:<work status>",
// "request:<request status>" or a bare status value. A bare value is
// resolved to the only field it belongs to; "completed", which both
// enumerations could mean, resolves to the work status.
func ParseStatusFilter(s string) (StatusFilter, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == string(FilterAll) {
		return AllStatuses, nil
	}

	if field, value, ok := strings.Cut(s, ":"); ok {
		value = strings.TrimSpace(value)
		switch FilterField(strings.TrimSpace(field)) {
		case FilterStatus:
			ws := models.NormalizeWorkStatus(value)
			if !ws.Valid() {
				return StatusFilter{}, fmt.Errorf("parsing status filter %q: %q is not a work status", s, value)
			}
			return ByStatus(ws), nil
		case FilterRequest:
			rs := models.RequestStatus(value)
			if !rs.Valid() {
				return StatusFilter{}, fmt.Errorf("parsing status filter %q: %q is not a request status", s, value)
			}
			return ByRequest(rs), nil
		default:
			return StatusFilter{}, fmt.Errorf("parsing status filter %q: unknown field %q", s, field)
		}
	}

	if ws := models.WorkStatus(s); ws.Valid() {
		return ByStatus(ws), nil
	}
	if rs := models.RequestStatus(s); rs.Valid() {
		return ByRequest(rs), nil
	}
	return StatusFilter{}, fmt.Errorf("parsing status filter %q: not a work or request status", s)
}

// Matches reports whether t passes the filter.
func (f StatusFilter) Matches(t models.Task) bool {
	switch f.Field {
	case FilterStatus:
		return string(t.Status) == f.Value
	case FilterRequest:
		return string(t.RequestStatus) == f.Value
	default:
		return true
	}
}

// MatchesQuery reports whether query occurs, case-insensitively, in the
// assignee's username, the assignee's full name, or the task title. An
// empty query matches everything.
func MatchesQuery(t models.Task, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.AssignedTo.Username), q) ||
		strings.Contains(strings.ToLower(t.AssignedTo.FullName), q) ||
		strings.Contains(strings.ToLower(t.Title), q)
}

// FilterTasks returns the tasks matching both query and filter, preserving
// order. The input slice is not modified.
func FilterTasks(tasks []models.Task, query string, filter StatusFilter) []models.Task {
	result := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if MatchesQuery(t, query) && filter.Matches(t) {
			result = append(result, t)
		}
	}
	return result
}

// IsTerminal reports whether t has been approved and so is complete.
func IsTerminal(t models.Task) bool {
	return t.RequestStatus == models.RequestApproved
}

// Ongoing returns the tasks that have not been approved.
func Ongoing(tasks []models.Task) []models.Task {
	ongoing, _ := Partition(tasks)
	return ongoing
}

// Completed returns the approved tasks.
func Completed(tasks []models.Task) []models.Task {
	_, completed := Partition(tasks)
	return completed
}

// Partition splits tasks into ongoing and completed. Every task lands in
// exactly one of the two, in input order.
func Partition(tasks []models.Task) (ongoing, completed []models.Task) {
	ongoing = make([]models.Task, 0, len(tasks))
	completed = make([]models.Task, 0)
	for _, t := range tasks {
		if IsTerminal(t) {
			completed = append(completed, t)
		} else {
			ongoing = append(ongoing, t)
		}
	}
	return ongoing, completed
}

// Overdue returns the ongoing tasks whose deadline is before now.
func Overdue(tasks []models.Task, now time.Time) []models.Task {
	var result []models.Task
	for _, t := range Ongoing(tasks) {
		if !t.Deadline.IsZero() && t.Deadline.Before(now) {
			result = append(result, t)
		}
	}
	return result
}
