package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// Dashboard panel indices.
const (
	panelTasks = iota
	panelMetrics
	panelAlerts
	panelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	load func() tea.Msg

	// Data.
	scope       string
	taskCounts  map[string]int
	overdue     int
	metricsData *metricsSnapshot
	alerts      []alertSnapshot

	// State.
	loading bool
	err     error
}

type metricsSnapshot struct {
	tasksCreated       int
	approvalsRequested int
	approved           int
	declined           int
	averageRating      float64
	eventCount         int
}

type alertSnapshot struct {
	severity string
	message  string
	time     string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	scope      string
	taskCounts map[string]int
	overdue    int
	metrics    *metricsSnapshot
	alerts     []alertSnapshot
	err        error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	statusNotStarted = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusCompleted  = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	statusRequested  = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	statusApproved   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusDeclined   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Task counts are keyed by work status for tasks outside the review
// workflow and by request status for the rest.
var dashboardOrder = []string{
	string(models.StatusNotStarted),
	string(models.StatusInProgress),
	string(models.StatusCompleted),
	string(models.RequestRequested),
	string(models.RequestDeclined),
	string(models.RequestApproved),
}

func newDashboardModel(load func() tea.Msg) dashboardModel {
	return dashboardModel{
		activePanel: panelTasks,
		loading:     true,
		taskCounts:  make(map[string]int),
		load:        load,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return m.load
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, m.load
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.scope = msg.scope
		m.taskCounts = msg.taskCounts
		m.overdue = msg.overdue
		m.metricsData = msg.metrics
		m.alerts = msg.alerts
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" taskdesk ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	tasksPanel := m.renderTasksPanel()
	metricsPanel := m.renderMetricsPanel()
	alertsPanel := m.renderAlertsPanel()

	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, colWidth-4)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, colWidth-4)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, tasksPanel, metricsPanel, alertsPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, panelWidth)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, tasksPanel, metricsPanel, alertsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderTasksPanel() string {
	var b strings.Builder
	header := "Tasks"
	if m.scope != "" {
		header = "Tasks (" + m.scope + ")"
	}
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	if len(m.taskCounts) == 0 {
		b.WriteString("  No tasks found.")
		return b.String()
	}

	for _, key := range dashboardOrder {
		count, ok := m.taskCounts[key]
		if !ok || count == 0 {
			continue
		}
		label := fmt.Sprintf("  %-14s %d", key, count)
		b.WriteString(styleForStatus(key).Render(label))
		b.WriteString("\n")
	}

	total := 0
	for _, c := range m.taskCounts {
		total += c
	}
	b.WriteString(fmt.Sprintf("\n  Total: %d", total))
	if m.overdue > 0 {
		b.WriteString(severityHigh.Render(fmt.Sprintf("\n  Overdue: %d", m.overdue)))
	}

	return b.String()
}

func (m dashboardModel) renderMetricsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Metrics (7d)"))
	b.WriteString("\n")

	if m.metricsData == nil {
		b.WriteString("  No metrics available.")
		return b.String()
	}

	md := m.metricsData
	lines := []struct {
		label string
		value int
	}{
		{"Events", md.eventCount},
		{"Created", md.tasksCreated},
		{"Requested", md.approvalsRequested},
		{"Approved", md.approved},
		{"Declined", md.declined},
	}

	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %-14s %d\n", l.label, l.value))
	}
	if md.averageRating > 0 {
		b.WriteString(fmt.Sprintf("  %-14s %.1f\n", "Avg rating", md.averageRating))
	}

	return b.String()
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alerts {
		sev := styleForSeverity(a.severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(a.severity)))
		b.WriteString(fmt.Sprintf("  %s %s\n", sev, a.message))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(m.alerts)))

	return b.String()
}

func styleForStatus(status string) lipgloss.Style {
	switch status {
	case string(models.StatusNotStarted):
		return statusNotStarted
	case string(models.StatusInProgress):
		return statusInProgress
	case string(models.StatusCompleted):
		return statusCompleted
	case string(models.RequestRequested):
		return statusRequested
	case string(models.RequestApproved):
		return statusApproved
	case string(models.RequestDeclined):
		return statusDeclined
	default:
		return lipgloss.NewStyle()
	}
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

// dashboardKey buckets a task for the tasks panel.
func dashboardKey(t models.Task) string {
	if t.RequestStatus == models.RequestNone || t.RequestStatus == "" {
		return string(t.Status)
	}
	return string(t.RequestStatus)
}

// loadDashboardData reads the signed-in user's tasks (every task for an
// administrator) and the observability data.
func loadDashboardData() tea.Msg {
	result := dataLoadedMsg{
		taskCounts: make(map[string]int),
	}
	ctx := context.Background()
	now := time.Now().UTC()

	session, err := currentSession()
	if err != nil {
		result.err = err
		return result
	}

	var tasks []models.Task
	var alertTasks []models.Task
	if session.IsAdmin() {
		view, err := adminView()
		if err != nil {
			result.err = err
			return result
		}
		if err := view.Refresh(ctx); err != nil {
			result.err = checkSession(fmt.Errorf("loading tasks: %w", err))
			return result
		}
		tasks = view.Tasks()
		alertTasks = tasks
		result.scope = "all"
	} else {
		view, err := employeeView()
		if err != nil {
			result.err = err
			return result
		}
		if err := view.Refresh(ctx); err != nil {
			result.err = checkSession(fmt.Errorf("loading tasks: %w", err))
			return result
		}
		tasks = view.Tasks()
		result.scope = session.Employee.Username
	}
	for _, t := range tasks {
		result.taskCounts[dashboardKey(t)]++
	}
	result.overdue = len(core.Overdue(tasks, now))

	if MetricsCalc != nil {
		metrics, err := MetricsCalc.Calculate(now.AddDate(0, 0, -7))
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		result.metrics = &metricsSnapshot{
			tasksCreated:       metrics.TasksCreated,
			approvalsRequested: metrics.ApprovalsRequested,
			approved:           metrics.Approved,
			declined:           metrics.Declined,
			averageRating:      metrics.AverageRating,
			eventCount:         metrics.EventCount,
		}
	}

	if AlertEngine != nil {
		alerts, err := AlertEngine.Evaluate(alertTasks)
		if err != nil {
			result.err = fmt.Errorf("loading alerts: %w", err)
			return result
		}
		result.alerts = make([]alertSnapshot, 0, len(alerts))

		// Sort alerts by severity: high first, then medium, then low.
		sort.SliceStable(alerts, func(i, j int) bool {
			return severityRank(string(alerts[i].Severity)) < severityRank(string(alerts[j].Severity))
		})

		for _, a := range alerts {
			result.alerts = append(result.alerts, alertSnapshot{
				severity: string(a.Severity),
				message:  a.Message,
				time:     a.TriggeredAt.Format("2006-01-02 15:04 UTC"),
			})
		}
	}

	return result
}

func severityRank(s string) int {
	switch s {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for tasks, metrics and alerts",
	Long: `Launch an interactive terminal dashboard showing task counts by status,
workflow metrics and alerts.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := currentSession(); err != nil {
			return err
		}
		p := tea.NewProgram(newDashboardModel(loadDashboardData), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
