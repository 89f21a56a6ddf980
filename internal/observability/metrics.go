package observability

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// Metrics holds workflow metrics derived from the event log.
type Metrics struct {
	TasksCreated       int            `json:"tasks_created"`
	TasksDeleted       int            `json:"tasks_deleted"`
	ApprovalsRequested int            `json:"approvals_requested"`
	Approved           int            `json:"approved"`
	Declined           int            `json:"declined"`
	AverageRating      float64        `json:"average_rating"`
	RatedDecisions     int            `json:"rated_decisions"`
	TasksByStatus      map[string]int `json:"tasks_by_status"`
	MutationFailures   int            `json:"mutation_failures"`
	SessionsExpired    int            `json:"sessions_expired"`
	EventCount         int            `json:"event_count"`
	OldestEvent        *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent        *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates the events written since the given time. TasksByStatus
// counts transitions into each status, not the current state of tasks.
// AverageRating covers rated decisions only; a rating of zero means unrated.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{TasksByStatus: make(map[string]int)}
	m.EventCount = len(events)

	ratingSum := 0
	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case core.EventTaskCreated:
			m.TasksCreated++
		case core.EventTaskDeleted:
			m.TasksDeleted++
		case core.EventStatusChanged:
			if status, ok := event.Data["new_status"].(string); ok {
				m.TasksByStatus[status]++
			}
		case core.EventApprovalRequested:
			m.ApprovalsRequested++
		case core.EventTaskDecided:
			switch decisionOf(event) {
			case models.RequestApproved:
				m.Approved++
			case models.RequestDeclined:
				m.Declined++
			}
			if r := intOf(event.Data["rating"]); r > 0 {
				ratingSum += r
				m.RatedDecisions++
			}
		case core.EventMutationFailed:
			m.MutationFailures++
		case core.EventSessionExpired:
			m.SessionsExpired++
		}
	}
	if m.RatedDecisions > 0 {
		m.AverageRating = float64(ratingSum) / float64(m.RatedDecisions)
	}
	return m, nil
}

func decisionOf(event Event) models.RequestStatus {
	d, _ := event.Data["decision"].(string)
	return models.RequestStatus(d)
}

// intOf reads a number from event data. Values read back from JSON are
// float64; values handed straight to a writer may be int.
func intOf(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
