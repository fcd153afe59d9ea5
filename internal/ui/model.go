// Package ui provides the Bubble Tea terminal menu for resmenu.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
	"github.com/eliteGoblin/focusd/resmenu/internal/usecase"
)

// Controller is the selection controller surface the menu presents.
type Controller interface {
	Refresh(ctx context.Context)
	Displays() []domain.DisplayView
	FavoritesFor(id domain.DisplayID) []domain.DisplayMode
	PreviousFor(id domain.DisplayID) (domain.DisplayMode, bool)
	IsFavorite(id domain.DisplayID, mode domain.DisplayMode) bool
	NeedsConfirmation(id domain.DisplayID, mode domain.DisplayMode) bool
	RequestModeChange(ctx context.Context, id domain.DisplayID, target domain.DisplayMode, confirm domain.Confirmer) usecase.Outcome
	ToggleFavorite(id domain.DisplayID, mode domain.DisplayMode) usecase.Outcome
	LastError() (string, bool)
}

// Section titles, in display order.
const (
	sectionFavorites   = "Favorites"
	sectionPrevious    = "Previous"
	sectionRecommended = "Recommended"
	sectionMore        = "More"
	sectionLegacy      = "Legacy"
)

// DisplaysChangedMsg tells the menu the display configuration changed
// outside of it (hot-plug, wake, another tool).
type DisplaysChangedMsg struct{}

type outcomeMsg struct {
	display string
	mode    domain.DisplayMode
	outcome usecase.Outcome
}

type refreshedMsg struct{}

// row is one selectable menu entry.
type row struct {
	section  string
	mode     domain.DisplayMode
	current  bool
	favorite bool
	risky    bool
}

// pendingChange is a risky mode change waiting for the y/n modal.
type pendingChange struct {
	display domain.DisplayID
	name    string
	mode    domain.DisplayMode
}

// Options configures the menu.
type Options struct {
	Context    context.Context
	Controller Controller
}

// Model is the root menu state for Bubble Tea.
type Model struct {
	ctx        context.Context
	controller Controller
	keys       keyMap
	styles     Styles
	help       help.Model

	views      []domain.DisplayView
	displayIdx int
	rows       []row
	cursor     int

	pending  *pendingChange
	applying bool
	status   string
	width    int
}

// New creates the menu model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	m := Model{
		ctx:        ctx,
		controller: opts.Controller,
		keys:       DefaultKeyMap(),
		styles:     DefaultStyles(),
		help:       help.New(),
	}
	m.reload()
	return m
}

// Run starts the menu and blocks until the user quits. Messages sent on
// updates (typically DisplaysChangedMsg from the watcher) are forwarded.
func Run(ctx context.Context, opts Options, updates <-chan tea.Msg) error {
	if opts.Controller == nil {
		return fmt.Errorf("menu requires a controller")
	}
	if opts.Context == nil {
		opts.Context = ctx
	}

	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if updates != nil {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-updates:
					if !ok {
						return
					}
					p.Send(msg)
				}
			}
		}()
	}

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case DisplaysChangedMsg, refreshedMsg:
		m.reload()
		return m, nil

	case outcomeMsg:
		m.applying = false
		m.status = describeOutcome(msg)
		m.reload()
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pending != nil {
		return m.handleModalKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.NextDisplay):
		m.switchDisplay(1)

	case key.Matches(msg, m.keys.PrevDisplay):
		m.switchDisplay(-1)

	case key.Matches(msg, m.keys.Refresh):
		m.status = "Refreshing displays"
		return m, m.refreshCmd()

	case key.Matches(msg, m.keys.Apply):
		if r, ok := m.selected(); ok {
			return m.requestChange(r.mode)
		}

	case key.Matches(msg, m.keys.Favorite):
		if r, ok := m.selected(); ok {
			m.toggleFavorite(r.mode)
		}

	case key.Matches(msg, m.keys.Previous):
		v, ok := m.view()
		if !ok {
			break
		}
		prev, ok := m.controller.PreviousFor(v.ID)
		if !ok {
			m.status = fmt.Sprintf("No previous mode for %s", v.Name)
			break
		}
		return m.requestChange(prev)
	}
	return m, nil
}

func (m Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Yes):
		p := m.pending
		m.pending = nil
		m.applying = true
		m.status = fmt.Sprintf("Switching %s to %s", p.name, p.mode)
		return m, m.applyCmd(p.display, p.name, p.mode, true)

	case key.Matches(msg, m.keys.No):
		m.pending = nil
		m.status = "Cancelled"

	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// requestChange opens the modal for unacknowledged risky modes and applies
// everything else directly.
func (m Model) requestChange(mode domain.DisplayMode) (tea.Model, tea.Cmd) {
	v, ok := m.view()
	if !ok {
		return m, nil
	}
	if m.applying {
		m.status = "A mode change is already in progress"
		return m, nil
	}
	if mode.ID == v.Current.ID {
		m.status = fmt.Sprintf("%s is already active", mode)
		return m, nil
	}
	if m.controller.NeedsConfirmation(v.ID, mode) {
		m.pending = &pendingChange{display: v.ID, name: v.Name, mode: mode}
		return m, nil
	}
	m.applying = true
	m.status = fmt.Sprintf("Switching %s to %s", v.Name, mode)
	return m, m.applyCmd(v.ID, v.Name, mode, false)
}

func (m Model) applyCmd(id domain.DisplayID, name string, mode domain.DisplayMode, confirmed bool) tea.Cmd {
	ctx := m.ctx
	ctrl := m.controller
	return func() tea.Msg {
		confirm := func(string) bool { return confirmed }
		return outcomeMsg{
			display: name,
			mode:    mode,
			outcome: ctrl.RequestModeChange(ctx, id, mode, confirm),
		}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	ctx := m.ctx
	ctrl := m.controller
	return func() tea.Msg {
		ctrl.Refresh(ctx)
		return refreshedMsg{}
	}
}

func (m *Model) toggleFavorite(mode domain.DisplayMode) {
	v, ok := m.view()
	if !ok {
		return
	}
	outcome := m.controller.ToggleFavorite(v.ID, mode)
	m.status = describeOutcome(outcomeMsg{display: v.Name, mode: mode, outcome: outcome})
	m.reload()
}

func (m *Model) switchDisplay(delta int) {
	if len(m.views) == 0 {
		return
	}
	m.displayIdx = (m.displayIdx + delta + len(m.views)) % len(m.views)
	m.cursor = 0
	m.rebuildRows()
}

func (m Model) view() (domain.DisplayView, bool) {
	if m.displayIdx < 0 || m.displayIdx >= len(m.views) {
		return domain.DisplayView{}, false
	}
	return m.views[m.displayIdx], true
}

func (m Model) selected() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

// reload re-reads the controller snapshot, keeping the selected display
// when it is still connected.
func (m *Model) reload() {
	var selectedID domain.DisplayID
	hadSelection := false
	if v, ok := m.view(); ok {
		selectedID, hadSelection = v.ID, true
	}

	m.views = m.controller.Displays()
	m.displayIdx = 0
	if hadSelection {
		for i, v := range m.views {
			if v.ID == selectedID {
				m.displayIdx = i
				break
			}
		}
	}
	m.rebuildRows()
}

func (m *Model) rebuildRows() {
	m.rows = nil
	v, ok := m.view()
	if ok {
		m.rows = buildRows(m.controller, v)
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// buildRows lays out one display's menu: Favorites, Previous, Recommended,
// More, Legacy. A mode may appear in several sections.
func buildRows(ctrl Controller, v domain.DisplayView) []row {
	var rows []row
	add := func(section string, modes ...domain.DisplayMode) {
		for _, mode := range modes {
			rows = append(rows, row{
				section:  section,
				mode:     mode,
				current:  mode.ID == v.Current.ID,
				favorite: ctrl.IsFavorite(v.ID, mode),
				risky:    ctrl.NeedsConfirmation(v.ID, mode),
			})
		}
	}

	add(sectionFavorites, ctrl.FavoritesFor(v.ID)...)
	if prev, ok := ctrl.PreviousFor(v.ID); ok {
		add(sectionPrevious, prev)
	}
	add(sectionRecommended, v.Tiers.Recommended...)
	add(sectionMore, v.Tiers.More...)
	add(sectionLegacy, v.Tiers.Legacy...)
	return rows
}

// View implements tea.Model.
func (m Model) View() string {
	if m.pending != nil {
		return m.renderModal()
	}

	var b strings.Builder
	v, ok := m.view()
	if !ok {
		b.WriteString(m.styles.Title.Render("resmenu"))
		b.WriteString("\n\n")
		b.WriteString(m.styles.MutedText.Render("No active displays."))
		b.WriteString("\n")
	} else {
		title := fmt.Sprintf("%s  (%d/%d)", v.Name, m.displayIdx+1, len(m.views))
		b.WriteString(m.styles.Title.Render(title))
		b.WriteString("\n")
		b.WriteString(m.styles.MutedText.Render("  Current: " + v.Current.String()))
		b.WriteString("\n")
		b.WriteString(m.renderRows())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderRows() string {
	var b strings.Builder
	section := ""
	for i, r := range m.rows {
		if r.section != section {
			section = r.section
			b.WriteString(m.styles.Section.Render(section))
			b.WriteString("\n")
		}
		b.WriteString(m.renderRow(r, i == m.cursor))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderRow(r row, selected bool) string {
	marker := "  "
	if r.current {
		marker = "✓ "
	}
	label := marker + r.mode.String()
	if r.favorite {
		label += " ★"
	}
	if r.risky {
		label += " !"
	}

	style := m.styles.Item
	switch {
	case selected:
		style = m.styles.Selected
	case r.current:
		style = m.styles.Current
	case r.risky:
		style = m.styles.Risky
	case r.favorite:
		style = m.styles.Favorite
	}
	cursor := "  "
	if selected {
		cursor = "> "
	}
	return cursor + style.Render(label)
}

func (m Model) renderStatus() string {
	if msg, ok := m.controller.LastError(); ok {
		return m.styles.StatusErr.Render("Error: " + msg)
	}
	if m.status == "" {
		return ""
	}
	return m.styles.StatusOK.Render(m.status)
}

func (m Model) renderModal() string {
	p := m.pending
	body := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Risky.Render(fmt.Sprintf("Switch %s to %s?", p.name, p.mode)),
		"",
		"This mode may be unreadable or unsupported on this display.",
		"",
		m.styles.MutedText.Render("y: switch anyway    n/esc: cancel"),
	)
	return m.styles.ModalFrame.Render(body)
}

func describeOutcome(msg outcomeMsg) string {
	switch msg.outcome {
	case usecase.OutcomeApplied:
		return fmt.Sprintf("Switched %s to %s", msg.display, msg.mode)
	case usecase.OutcomeNoop:
		return fmt.Sprintf("%s is already active", msg.mode)
	case usecase.OutcomeDeclined:
		return "Cancelled"
	case usecase.OutcomeUnavailable:
		return fmt.Sprintf("No previous mode for %s", msg.display)
	case usecase.OutcomeFavoriteAdded:
		return fmt.Sprintf("Added %s to favorites", msg.mode)
	case usecase.OutcomeFavoriteRemoved:
		return fmt.Sprintf("Removed %s from favorites", msg.mode)
	default:
		return ""
	}
}

// Ensure the controller satisfies the menu's view of it.
var _ Controller = (*usecase.Controller)(nil)
