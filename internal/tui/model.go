// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/codetype/internal/config"
	"github.com/verte-zerg/codetype/internal/engine"
	"github.com/verte-zerg/codetype/internal/identity"
	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/prompts"
	"github.com/verte-zerg/codetype/internal/session"
	statsPkg "github.com/verte-zerg/codetype/internal/stats"
)

// DurationPresets are the selectable test lengths in seconds.
var DurationPresets = []int{15, 30, 60, 120}

const fetchTimeout = 10 * time.Second

// Authenticator signs users in for result persistence.
type Authenticator interface {
	Current() *identity.Identity
	SignIn(ctx context.Context, username string) (identity.Identity, error)
}

// Options wires the practice model to its collaborators.
type Options struct {
	Config     model.Config
	Source     prompts.Source
	History    statsPkg.HistorySource
	Recorder   *session.Recorder
	Auth       Authenticator
	Picker     *prompts.Picker
	Categories []string
	Logger     *slog.Logger
}

type mode int

const (
	modePractice mode = iota
	modeLogin
	modeSettings
	modeCustomDuration
)

type tickMsg struct {
	generation uint64
}

type promptsLoadedMsg struct {
	category string
	prompts  []model.Prompt
	err      error
}

type signedInMsg struct {
	ident identity.Identity
	err   error
}

type savedMsg struct {
	ok bool
}

type historyLoadedMsg struct {
	records []model.SessionRecord
	err     error
}

// Model implements the Bubble Tea typing UI.
type Model struct {
	source     prompts.Source
	history    statsPkg.HistorySource
	recorder   *session.Recorder
	auth       Authenticator
	picker     *prompts.Picker
	categories []string
	logger     *slog.Logger

	eng     *engine.Engine
	mode    mode
	loading bool
	ident   *identity.Identity

	login     textinput.Model
	custom    textinput.Model
	loginErr  string
	catCursor int

	width  int
	height int

	lastWPM  int
	lastAcc  float64
	hasLast  bool
	allWPM   float64
	allAcc   float64
	sessions int
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = pendingStyle.Copy().Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	activeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	titleStyle       = lipgloss.NewStyle().Bold(true)
)

// NewModel constructs a practice TUI model.
func NewModel(opts Options) *Model {
	category := prompts.NormalizeCategory(opts.Config.Category)
	if category == "" {
		category = prompts.DefaultCategory
	}
	categories := opts.Categories
	if len(categories) == 0 {
		categories = prompts.Categories
	}
	picker := opts.Picker
	if picker == nil {
		picker = prompts.NewPicker()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	login := textinput.New()
	login.Placeholder = "username"
	login.CharLimit = 32
	login.Prompt = "> "

	custom := textinput.New()
	custom.Placeholder = "seconds"
	custom.CharLimit = 4
	custom.Prompt = "custom: "
	custom.Validate = func(s string) error {
		for _, r := range s {
			if r < '0' || r > '9' {
				return fmt.Errorf("digits only")
			}
		}
		return nil
	}

	m := &Model{
		source:     opts.Source,
		history:    opts.History,
		recorder:   opts.Recorder,
		auth:       opts.Auth,
		picker:     picker,
		categories: categories,
		logger:     logger,
		eng:        engine.New("", opts.Config.Duration, category),
		loading:    true,
		login:      login,
		custom:     custom,
	}
	m.catCursor = m.categoryIndex(category)
	if m.auth != nil {
		m.ident = m.auth.Current()
	}
	if m.auth != nil && m.ident == nil {
		m.mode = modeLogin
		m.login.Focus()
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.fetchPrompts(m.eng.Category()), m.loadHistory()}
	if m.mode == modeLogin {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		return m, m.handleTick(msg)
	case promptsLoadedMsg:
		m.handlePrompts(msg)
		return m, nil
	case signedInMsg:
		return m, m.handleSignedIn(msg)
	case savedMsg:
		if msg.ok {
			return m, m.loadHistory()
		}
		return m, nil
	case historyLoadedMsg:
		m.handleHistory(msg)
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeLogin:
			return m, m.updateLogin(msg)
		case modeSettings:
			return m, m.updateSettings(msg)
		case modeCustomDuration:
			return m, m.updateCustom(msg)
		default:
			return m, m.updatePractice(msg)
		}
	default:
		return m, nil
	}
}

func (m *Model) updatePractice(msg tea.KeyMsg) tea.Cmd {
	if m.eng.Status() == engine.StatusFinished {
		switch msg.Type {
		case tea.KeyEnter:
			return m.retry()
		case tea.KeyEsc:
			m.mode = modeSettings
		}
		return nil
	}
	var keys []engine.Key
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeSettings
		return nil
	case tea.KeyBackspace, tea.KeyDelete:
		keys = append(keys, engine.Backspace())
	case tea.KeyTab:
		keys = append(keys, engine.Tab())
	case tea.KeyEnter:
		keys = append(keys, engine.Enter())
	case tea.KeySpace:
		keys = append(keys, engine.Char(' '))
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			keys = append(keys, engine.Char(r))
		}
	default:
		return nil
	}
	return m.submit(keys)
}

func (m *Model) submit(keys []engine.Key) tea.Cmd {
	if m.loading {
		return nil
	}
	var cmd tea.Cmd
	for _, k := range keys {
		out := m.eng.Submit(k)
		if out.Started {
			cmd = tickCmd(m.eng.Generation())
		}
		if out.PromptComplete {
			m.nextPrompt()
		}
	}
	return cmd
}

func (m *Model) updateSettings(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter:
		m.mode = modePractice
		return nil
	case tea.KeyLeft:
		return m.cycleCategory(-1)
	case tea.KeyRight:
		return m.cycleCategory(1)
	case tea.KeyRunes:
		switch key := string(msg.Runes); key {
		case "h":
			return m.cycleCategory(-1)
		case "l":
			return m.cycleCategory(1)
		case "c":
			m.mode = modeCustomDuration
			m.custom.SetValue("")
			return m.custom.Focus()
		case "1", "2", "3", "4":
			m.applyDuration(DurationPresets[int(key[0]-'1')])
			m.mode = modePractice
		}
	}
	return nil
}

func (m *Model) updateCustom(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.custom.Blur()
		m.mode = modeSettings
		return nil
	case tea.KeyEnter:
		if d := config.ParseDuration(m.custom.Value()); d > 0 {
			m.applyDuration(d)
		}
		m.custom.Blur()
		m.mode = modePractice
		return nil
	}
	var cmd tea.Cmd
	m.custom, cmd = m.custom.Update(msg)
	return cmd
}

func (m *Model) updateLogin(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.login.Blur()
		m.mode = modePractice
		return nil
	case tea.KeyEnter:
		username := strings.TrimSpace(m.login.Value())
		if username == "" {
			m.loginErr = "username is required"
			return nil
		}
		return m.signIn(username)
	}
	var cmd tea.Cmd
	m.login, cmd = m.login.Update(msg)
	return cmd
}

// applyDuration resets the attempt when seconds differs from the current
// duration.
func (m *Model) applyDuration(seconds int) {
	if seconds == m.eng.Duration() {
		return
	}
	if m.eng.SetDuration(seconds) {
		m.nextPrompt()
	}
}

func (m *Model) cycleCategory(step int) tea.Cmd {
	if len(m.categories) == 0 {
		return nil
	}
	m.catCursor = (m.catCursor + step + len(m.categories)) % len(m.categories)
	category := m.categories[m.catCursor]
	m.eng.SetCategory(category)
	m.loading = true
	return m.fetchPrompts(category)
}

func (m *Model) retry() tea.Cmd {
	if m.eng.Reset(true) {
		m.nextPrompt()
	}
	return nil
}

func (m *Model) nextPrompt() {
	if p, ok := m.picker.Next(); ok {
		m.eng.SetPrompt(p.Text)
	}
}

func (m *Model) handleTick(msg tickMsg) tea.Cmd {
	if msg.generation != m.eng.Generation() {
		return nil
	}
	res, finished := m.eng.Tick()
	if !finished {
		return tickCmd(msg.generation)
	}
	m.lastWPM = res.WPM
	m.lastAcc = res.Accuracy
	m.hasLast = true
	return m.save(res)
}

func (m *Model) handlePrompts(msg promptsLoadedMsg) {
	if msg.category != m.eng.Category() {
		return
	}
	if msg.err != nil {
		m.logger.Warn("failed to fetch prompts", "category", msg.category, "error", msg.err)
	}
	p, ok := m.picker.Load(msg.prompts)
	if !ok {
		m.loading = true
		m.eng.SetPrompt("")
		return
	}
	m.loading = false
	m.eng.SetPrompt(p.Text)
}

func (m *Model) handleSignedIn(msg signedInMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Error("sign in failed", "error", msg.err)
		m.loginErr = msg.err.Error()
		return nil
	}
	ident := msg.ident
	m.ident = &ident
	m.loginErr = ""
	m.login.Blur()
	m.mode = modePractice
	return m.loadHistory()
}

func (m *Model) handleHistory(msg historyLoadedMsg) {
	if msg.err != nil {
		m.logger.Error("failed to load session stats", "error", msg.err)
		return
	}
	if len(msg.records) == 0 {
		return
	}
	last := msg.records[len(msg.records)-1]
	m.lastWPM = last.WPM
	m.lastAcc = last.Accuracy
	m.hasLast = true
	summary := statsPkg.Summarize(msg.records)
	m.allWPM = summary.AvgWPM
	m.allAcc = summary.AvgAccuracy
	m.sessions = summary.Sessions
}

func tickCmd(generation uint64) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{generation: generation}
	})
}

func (m *Model) fetchPrompts(category string) tea.Cmd {
	source := m.source
	return func() tea.Msg {
		if source == nil {
			return promptsLoadedMsg{category: category}
		}
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		list, err := source.FetchPrompts(ctx, category)
		return promptsLoadedMsg{category: category, prompts: list, err: err}
	}
}

func (m *Model) loadHistory() tea.Cmd {
	if m.history == nil || m.ident == nil {
		return nil
	}
	history := m.history
	userID := m.ident.UserID
	return func() tea.Msg {
		records, err := history.ListSessions(context.Background(), model.HistoryFilter{UserID: userID})
		return historyLoadedMsg{records: records, err: err}
	}
}

func (m *Model) save(res engine.Result) tea.Cmd {
	if m.recorder == nil || m.ident == nil {
		return nil
	}
	recorder := m.recorder
	ident := *m.ident
	return func() tea.Msg {
		return savedMsg{ok: recorder.Record(context.Background(), &ident, res)}
	}
}

func (m *Model) signIn(username string) tea.Cmd {
	auth := m.auth
	return func() tea.Msg {
		ident, err := auth.SignIn(context.Background(), username)
		return signedInMsg{ident: ident, err: err}
	}
}

func (m *Model) categoryIndex(category string) int {
	for i, c := range m.categories {
		if c == category {
			return i
		}
	}
	return 0
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch {
	case m.mode == modeLogin:
		content = m.renderLogin()
	case m.eng.Status() == engine.StatusFinished:
		content = m.renderResults()
	case m.loading:
		content = fmt.Sprintf("Loading prompts for category: %s...", m.eng.Category())
	default:
		content = m.renderPractice()
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 0
	}
	return max(1, int(float64(m.width)*0.70))
}

func (m *Model) renderPractice() string {
	prompt := m.eng.Prompt()
	typed := m.eng.Typed()
	cells := styleCells(prompt, typed, len(typed))
	width := m.contentWidth()
	text := layout(cells, width)
	if width > 0 {
		text = lipgloss.NewStyle().Width(width).Render(text)
	}
	lines := []string{
		m.renderSettingsBar(),
		fmt.Sprintf("Time left: %ds", m.eng.Remaining()),
		"",
		text,
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderSettingsBar() string {
	durations := make([]string, 0, len(DurationPresets)+1)
	custom := true
	for i, d := range DurationPresets {
		label := fmt.Sprintf("%d:%ds", i+1, d)
		if d == m.eng.Duration() {
			label = activeStyle.Render(label)
			custom = false
		}
		durations = append(durations, label)
	}
	customLabel := "c:custom"
	if custom {
		customLabel = activeStyle.Render(fmt.Sprintf("c:%ds", m.eng.Duration()))
	}
	durations = append(durations, customLabel)

	cats := make([]string, 0, len(m.categories))
	for _, c := range m.categories {
		if c == m.eng.Category() {
			c = activeStyle.Render(c)
		}
		cats = append(cats, c)
	}
	bar := "time " + strings.Join(durations, " ") + "   category " + strings.Join(cats, " ")
	switch m.mode {
	case modeSettings:
		return bar + "\n" + footerStyle.Render("1-4 duration · c custom · ←/→ category · esc back")
	case modeCustomDuration:
		return bar + "\n" + m.custom.View()
	default:
		return footerStyle.Render(bar)
	}
}

func (m *Model) renderResults() string {
	res, _ := m.eng.Result()
	lines := []string{
		titleStyle.Render("Test Completed!"),
		"",
		fmt.Sprintf("WPM: %d", res.WPM),
		fmt.Sprintf("Accuracy: %.1f%%", res.Accuracy),
		"",
		footerStyle.Render("enter retry · esc settings · ctrl+c quit"),
	}
	if m.ident == nil {
		lines = append(lines, footerStyle.Render("sign in to save results"))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderLogin() string {
	lines := []string{
		titleStyle.Render("codetype"),
		"Sign in to save your results",
		"",
		m.login.View(),
	}
	if m.loginErr != "" {
		lines = append(lines, incorrectStyle.Render(m.loginErr))
	}
	lines = append(lines, "", footerStyle.Render("enter sign in · esc practice without saving"))
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	segments := []string{}
	if m.ident != nil {
		segments = append(segments, m.ident.Username)
	} else {
		segments = append(segments, "not signed in")
	}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %d WPM · %.1f%%", m.lastWPM, m.lastAcc))
	}
	if m.sessions > 0 {
		segments = append(segments, fmt.Sprintf("All-time %.1f WPM · %.1f%%", m.allWPM, m.allAcc))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}
