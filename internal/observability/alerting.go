package observability

import (
	"fmt"
	"sort"
	"time"

	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// Alert conditions.
const (
	ConditionReviewPending = "review_pending_too_long"
	ConditionDeclineStreak = "declined_repeatedly"
	ConditionOverdue       = "task_overdue"
)

// AlertThresholds configures when alerts should fire.
type AlertThresholds struct {
	ReviewDays  int `yaml:"review_days" json:"review_days"`
	MaxDeclines int `yaml:"max_declines" json:"max_declines"`
}

// DefaultAlertThresholds returns the default alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{ReviewDays: 3, MaxDeclines: 3}
}

// AlertEngine evaluates alert conditions against the event log and, when
// the caller can see them, the current tasks.
type AlertEngine interface {
	// Evaluate returns the triggered alerts ordered by ID. tasks may be
	// nil, in which case overdue tasks are not checked.
	Evaluate(tasks []models.Task) ([]Alert, error)
}

type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates a new AlertEngine with the given EventLog and thresholds.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (ae *alertEngine) Evaluate(tasks []models.Task) ([]Alert, error) {
	now := ae.now()
	events, err := ae.eventLog.Read(EventFilter{})
	if err != nil {
		return nil, fmt.Errorf("reading events for alerts: %w", err)
	}

	var alerts []Alert
	alerts = append(alerts, ae.checkPendingReviews(events, now)...)
	alerts = append(alerts, ae.checkDeclineStreaks(events, now)...)
	if tasks != nil {
		alerts = append(alerts, checkOverdue(tasks, now)...)
	}

	sort.Slice(alerts, func(i, j int) bool { return alerts[i].ID < alerts[j].ID })
	return alerts, nil
}

// checkPendingReviews finds approval requests that no decision or deletion
// has answered within the threshold.
func (ae *alertEngine) checkPendingReviews(events []Event, now time.Time) []Alert {
	pending := make(map[string]time.Time)
	for _, event := range events {
		taskID := taskIDOf(event)
		if taskID == "" {
			continue
		}
		switch event.Type {
		case core.EventApprovalRequested:
			pending[taskID] = event.Time
		case core.EventTaskDecided, core.EventTaskDeleted:
			delete(pending, taskID)
		}
	}

	threshold := time.Duration(ae.thresholds.ReviewDays) * 24 * time.Hour
	var alerts []Alert
	for taskID, since := range pending {
		if now.Sub(since) > threshold {
			alerts = append(alerts, Alert{
				ID:          "review-" + taskID,
				Condition:   ConditionReviewPending,
				Severity:    SeverityMedium,
				Message:     fmt.Sprintf("task %s has waited for review for more than %d days", taskID, ae.thresholds.ReviewDays),
				TriggeredAt: now,
			})
		}
	}
	return alerts
}

// checkDeclineStreaks finds open tasks declined at least MaxDeclines times.
// An approval or a deletion closes the task and ends its streak.
func (ae *alertEngine) checkDeclineStreaks(events []Event, now time.Time) []Alert {
	declines := make(map[string]int)
	for _, event := range events {
		taskID := taskIDOf(event)
		if taskID == "" {
			continue
		}
		switch {
		case event.Type == core.EventTaskDecided && decisionOf(event) == models.RequestDeclined:
			declines[taskID]++
		case event.Type == core.EventTaskDecided && decisionOf(event) == models.RequestApproved,
			event.Type == core.EventTaskDeleted:
			delete(declines, taskID)
		}
	}

	if ae.thresholds.MaxDeclines <= 0 {
		return nil
	}
	var alerts []Alert
	for taskID, n := range declines {
		if n >= ae.thresholds.MaxDeclines {
			alerts = append(alerts, Alert{
				ID:          "declines-" + taskID,
				Condition:   ConditionDeclineStreak,
				Severity:    SeverityLow,
				Message:     fmt.Sprintf("task %s has been declined %d times", taskID, n),
				TriggeredAt: now,
			})
		}
	}
	return alerts
}

func checkOverdue(tasks []models.Task, now time.Time) []Alert {
	var alerts []Alert
	for _, t := range core.Overdue(tasks, now) {
		alerts = append(alerts, Alert{
			ID:        "overdue-" + t.ID,
			Condition: ConditionOverdue,
			Severity:  SeverityHigh,
			Message: fmt.Sprintf("task %s (%q, assigned to %s) was due %s",
				t.ID, t.Title, t.AssignedTo.Username, t.Deadline.Format("2006-01-02 15:04")),
			TriggeredAt: now,
		})
	}
	return alerts
}
