// Package statsui provides the Bubble Tea history interface.
package statsui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/prompts"
	"github.com/verte-zerg/codetype/internal/stats"
)

const (
	tabOverview = iota
	tabSessions
)

const (
	sinceLayout        = "2006-01-02"
	overviewPlotHeight = 8
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

// Model implements the Bubble Tea history UI.
type Model struct {
	source   stats.HistorySource
	filter   model.HistoryFilter
	username string

	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	overview  viewport.Model
	sessions  table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a history UI for the user named in filter.
func NewModel(src stats.HistorySource, filter model.HistoryFilter, username string) *Model {
	if filter.CurveWindow < 1 {
		filter.CurveWindow = 1
	}
	m := &Model{
		source:   src,
		filter:   filter,
		username: username,
		tabs:     []string{"Overview", "Sessions"},
		overview: viewport.New(0, 0),
		sessions: table.New(table.WithColumns(sessionColumns()), table.WithFocused(true)),
	}
	m.filterInputs = []textinput.Model{
		newFilterInput("Category: "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last: "),
		newFilterInput("Curve window: "),
	}
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderOverview()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h", "right", "l", "tab":
			m.activeTab = (m.activeTab + 1) % len(m.tabs)
			return m, tea.ClearScreen
		case "/":
			return m.startFilter()
		}
		var cmd tea.Cmd
		if m.activeTab == tabSessions {
			m.sessions, cmd = m.sessions.Update(msg)
		} else {
			m.overview, cmd = m.overview.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight := m.layoutHeights()
	header := fitLines(m.renderTabs()+"\n"+m.renderFilterSummary(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	return header + "\n" + body + "\n" + m.renderFooter()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func sessionColumns() []table.Column {
	widths := []int{16, 8, 5, 8, 8, 6, 6}
	columns := make([]table.Column, len(stats.HistoryHeaders))
	for i, title := range stats.HistoryHeaders {
		columns[i] = table.Column{Title: title, Width: widths[i]}
	}
	return columns
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight int) {
	headerHeight = lipgloss.Height(activeNavStyle.Render("X")) + 1
	footerHeight := 1
	if m.errMsg != "" && !m.filterMode {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight := m.layoutHeights()
	m.overview.Width = m.width
	m.overview.Height = bodyHeight
	m.sessions.SetWidth(m.width)
	m.sessions.SetHeight(bodyHeight)
	for i := range m.filterInputs {
		m.filterInputs[i].Width = max(10, m.width-lipgloss.Width(m.filterInputs[i].Prompt)-2)
	}
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.source, m.filter)
	if err != nil {
		m.errMsg = err.Error()
		m.overview.SetContent("Failed to load history.")
		return
	}
	m.errMsg = ""
	m.report = report
	m.sessions.SetRows(sessionRows(report.Records))
	m.sessions.GotoTop()
	m.renderOverview()
}

func sessionRows(records []model.SessionRecord) []table.Row {
	formatted := stats.HistoryRows(records)
	rows := make([]table.Row, len(formatted))
	for i, row := range formatted {
		rows[i] = table.Row(row)
	}
	return rows
}

func (m *Model) renderOverview() {
	if m.errMsg != "" {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.overview.SetContent(renderOverview(m.report, width))
}

func renderOverview(report stats.Report, width int) string {
	if len(report.Records) == 0 {
		return "No sessions found."
	}
	s := report.Summary
	cards := []string{
		metricCard("Sessions", strconv.Itoa(s.Sessions)),
		metricCard("Avg WPM", fmt.Sprintf("%.1f", s.AvgWPM)),
		metricCard("Best WPM", strconv.Itoa(s.BestWPM)),
		metricCard("Avg Acc", fmt.Sprintf("%.1f%%", s.AvgAccuracy)),
		metricCard("Time", stats.FormatSeconds(s.TotalTime)),
	}
	var summary string
	if width < 80 {
		summary = strings.Join(cards, "\n")
	} else {
		summary = lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	}

	var trends strings.Builder
	_ = stats.PlotSeriesWithColor(&trends, fmt.Sprintf("Trends (window %d)", report.Window), []stats.Series{
		{Name: "WPM", Values: report.WPMCurve},
		{Name: "Accuracy", Values: report.AccuracyCurve},
	}, stats.PlotWidthFor(width), overviewPlotHeight, true)
	return summary + "\n\n" + strings.TrimRight(trends.String(), "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderFilterSummary() string {
	category := m.filter.Category
	if category == "" {
		category = "any"
	}
	since := "any"
	if m.filter.Since != nil {
		since = m.filter.Since.Format(sinceLayout)
	}
	last := "all"
	if m.filter.Last > 0 {
		last = strconv.Itoa(m.filter.Last)
	}
	summary := fmt.Sprintf("%s  category=%s  since=%s  last=%s  window=%d", m.username, category, since, last, m.filter.CurveWindow)
	return headerStyle.Render(runewidth.Truncate(summary, m.width, "..."))
}

func (m *Model) renderBody() string {
	if m.filterMode {
		lines := []string{"Filter (enter to apply, esc to cancel)"}
		for _, input := range m.filterInputs {
			lines = append(lines, input.View())
		}
		if m.filterError != "" {
			lines = append(lines, errorStyle.Render(m.filterError))
		}
		return strings.Join(lines, "\n")
	}
	if m.activeTab == tabSessions {
		if len(m.report.Records) == 0 {
			return "No sessions found."
		}
		return m.sessions.View()
	}
	return m.overview.View()
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := headerStyle.Render("Nav: left/right  Scroll: up/down  Filter: /  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.filterInputs[0].SetValue(m.filter.Category)
	m.filterInputs[1].SetValue("")
	if m.filter.Since != nil {
		m.filterInputs[1].SetValue(m.filter.Since.Format(sinceLayout))
	}
	m.filterInputs[2].SetValue("")
	if m.filter.Last > 0 {
		m.filterInputs[2].SetValue(strconv.Itoa(m.filter.Last))
	}
	m.filterInputs[3].SetValue(strconv.Itoa(m.filter.CurveWindow))
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	m.filterIndex = (idx%count + count) % count
	for i := range m.filterInputs {
		m.filterInputs[i].Blur()
	}
	return m.filterInputs[m.filterIndex].Focus()
}

func (m *Model) applyFilter() error {
	category := prompts.NormalizeCategory(m.filterInputs[0].Value())

	var since *time.Time
	if input := strings.TrimSpace(m.filterInputs[1].Value()); input != "" {
		parsed, err := time.ParseInLocation(sinceLayout, input, time.Local)
		if err != nil {
			return fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		since = &parsed
	}

	last := 0
	if input := strings.TrimSpace(m.filterInputs[2].Value()); input != "" {
		parsed, err := strconv.Atoi(input)
		if err != nil || parsed < 0 {
			return fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		last = parsed
	}

	window := 1
	if input := strings.TrimSpace(m.filterInputs[3].Value()); input != "" {
		parsed, err := strconv.Atoi(input)
		if err != nil || parsed < 1 {
			return fmt.Errorf("invalid curve window (use integer >= 1)")
		}
		window = parsed
	}

	m.filter.Category = category
	m.filter.Since = since
	m.filter.Last = last
	m.filter.CurveWindow = window
	return nil
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if w := lipgloss.Width(line); w < width {
			lines[i] = line + strings.Repeat(" ", width-w)
		}
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
