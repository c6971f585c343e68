// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/jeranaias/cardchat-tui/internal/completion"
	"github.com/jeranaias/cardchat-tui/internal/config"
	"github.com/jeranaias/cardchat-tui/internal/conversation"
	"github.com/jeranaias/cardchat-tui/internal/render"
	"github.com/jeranaias/cardchat-tui/internal/ui/styles"
	"github.com/jeranaias/cardchat-tui/internal/util"
)

// inputHeight is the number of text rows in the input box.
const inputHeight = 3

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options configures New.
type Options struct {
	Client   completion.Client
	Renderer *render.Renderer
	Theme    *styles.Theme
	// Model is sent with every request and shown in the header.
	Model string
	UI    config.UIConfig
	// Watcher, when set, feeds live [ui] reloads into the view.
	Watcher *config.Watcher
	Logger  *zerolog.Logger
	// Notice is shown as a warning until the next status, e.g. a backend
	// that failed its startup check.
	Notice string
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	session  *conversation.Session
	client   completion.Client
	renderer *render.Renderer
	theme    *styles.Theme
	ui       config.UIConfig
	watcher  *config.Watcher
	logger   zerolog.Logger

	// Dimensions
	width  int
	height int

	// UI Components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model
	keyMap   KeyMap

	cancelMgr *cancelManager // Pointer to avoid copying mutex during Bubble Tea updates

	// Transient status notice
	status      string
	statusLevel statusLevel
	statusSeq   int
}

// New creates a new chat model.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ModeAuto)
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.New(render.Options{Theme: theme, MarkdownStyle: opts.UI.MarkdownStyle, Logger: &logger})
	}

	keys := DefaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.Prompt = ""
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	// Enter submits; only the Newline binding breaks lines.
	ta.KeyMap.InsertNewline = keys.Newline
	ta.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	m := Model{
		session: conversation.New(conversation.Options{
			Model:  opts.Model,
			Logger: &logger,
		}),
		client:    opts.Client,
		renderer:  renderer,
		theme:     theme,
		ui:        opts.UI,
		watcher:   opts.Watcher,
		logger:    logger.With().Str("component", "chat").Logger(),
		viewport:  vp,
		input:     ta,
		spinner:   sp,
		help:      help.New(),
		keyMap:    keys,
		cancelMgr: newCancelManager(),
	}
	m.applyTheme()
	if opts.Notice != "" {
		m.statusSeq++
		m.status = opts.Notice
		m.statusLevel = statusWarn
	}
	return m
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Session returns the conversation state behind the view.
func (m Model) Session() *conversation.Session { return m.session }

// Theme returns the active theme.
func (m Model) Theme() *styles.Theme { return m.theme }

// Status returns the transient notice, or "" when none is showing.
func (m Model) Status() string { return m.status }

// InputValue returns the current contents of the input box.
func (m Model) InputValue() string { return m.input.Value() }

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForConfigCmd(m.watcher))
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case FragmentMsg:
		return m.handleFragment(msg)

	case CompleteMsg:
		return m.handleComplete(msg)

	case FailedMsg:
		return m.handleFailed(msg)

	case ConfigChangedMsg:
		return m.handleConfigChanged(msg)

	case statusClearMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil

	case spinner.TickMsg:
		if !m.session.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshViewport()
		return m, cmd

	default:
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
}

// View renders the chat view.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.layout()
	m.refreshViewport()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.cancelMgr.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Cancel):
		return m.cancelTurn()

	case key.Matches(msg, m.keyMap.ToggleTheme):
		m.theme = m.theme.Toggle()
		m.renderer.SetTheme(m.theme)
		m.applyTheme()
		m.refreshViewport()
		return m, m.setStatus(statusInfo, string(m.theme.Mode())+" theme")

	case key.Matches(msg, m.keyMap.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.ViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keyMap.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts a turn from the input box. Empty input and input while a
// reply is streaming are ignored, leaving the box untouched.
func (m Model) submit() (tea.Model, tea.Cmd) {
	turn, err := m.session.Submit(m.input.Value())
	if err != nil {
		return m, nil
	}

	m.input.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)

	m.refreshViewport()
	m.viewport.GotoBottom()

	return m, tea.Batch(streamCmd(ctx, m.client, turn), m.spinner.Tick)
}

// cancelTurn stops the in-flight reply. The turn ends at once; the pump's
// own failure event arrives later and is ignored as stale.
func (m Model) cancelTurn() (tea.Model, tea.Cmd) {
	if !m.session.Busy() {
		return m, nil
	}
	m.session.Fail(m.session.TurnID(), context.Canceled)
	m.cancelMgr.cancel()
	m.refreshViewport()
	return m, m.setStatus(statusWarn, "Reply cancelled")
}

func (m Model) handleFragment(msg FragmentMsg) (tea.Model, tea.Cmd) {
	if !m.session.Fragment(msg.Turn, msg.Text) {
		return m, closeStreamCmd(msg.stream)
	}

	follow := m.viewport.AtBottom()
	m.refreshViewport()
	if follow {
		m.viewport.GotoBottom()
	}
	return m, nextFragmentCmd(msg.Turn, msg.stream)
}

func (m Model) handleComplete(msg CompleteMsg) (tea.Model, tea.Cmd) {
	if msg.Usage != nil {
		m.session.RecordUsage(msg.Turn, *msg.Usage)
	}
	reply := m.session.Complete(msg.Turn)
	if reply == nil {
		return m, nil
	}
	m.cancelMgr.cancel()

	follow := m.viewport.AtBottom()
	m.refreshViewport()
	if follow {
		m.viewport.GotoBottom()
	}
	return m, nil
}

func (m Model) handleFailed(msg FailedMsg) (tea.Model, tea.Cmd) {
	if !m.session.Fail(msg.Turn, msg.Err) {
		return m, nil
	}
	m.cancelMgr.cancel()
	m.refreshViewport()

	if errors.Is(msg.Err, context.Canceled) {
		return m, m.setStatus(statusWarn, "Reply cancelled")
	}
	return m, m.setStatus(statusError, "Request failed: "+util.FirstLine(msg.Err.Error()))
}

// handleConfigChanged applies a reloaded [ui] section. Provider and log
// settings need a restart and are left alone.
func (m Model) handleConfigChanged(msg ConfigChangedMsg) (tea.Model, tea.Cmd) {
	next := waitForConfigCmd(m.watcher)

	if msg.Change.Err != nil {
		return m, tea.Batch(next, m.setStatus(statusWarn, "Config not reloaded: "+util.FirstLine(msg.Change.Err.Error())))
	}
	if msg.Change.Config == nil {
		return m, next
	}

	ui := msg.Change.Config.UI
	if mode, err := styles.ParseMode(ui.Theme); err == nil && mode != styles.ModeAuto && mode != m.theme.Mode() {
		m.theme = styles.NewTheme(mode)
		m.renderer.SetTheme(m.theme)
		m.applyTheme()
	}
	m.renderer.SetMarkdownStyle(ui.MarkdownStyle)
	m.ui = ui

	m.refreshViewport()
	return m, tea.Batch(next, m.setStatus(statusInfo, "Config reloaded"))
}

// =============================================================================
// HELPERS
// =============================================================================

// setStatus shows a transient notice and schedules its removal.
func (m *Model) setStatus(level statusLevel, text string) tea.Cmd {
	m.statusSeq++
	m.status = text
	m.statusLevel = level
	return clearStatusCmd(m.statusSeq)
}

// applyTheme pushes theme colors into the bubbles components.
func (m *Model) applyTheme() {
	m.spinner.Style = m.theme.Spinner
	m.help.Styles.ShortKey = m.theme.ShortcutKey
	m.help.Styles.ShortDesc = m.theme.ShortcutDsc
	m.help.Styles.FullKey = m.theme.ShortcutKey
	m.help.Styles.FullDesc = m.theme.ShortcutDsc
	m.input.FocusedStyle.Placeholder = m.theme.Timestamp
	m.input.BlurredStyle.Placeholder = m.theme.Timestamp
}

// layout sizes the viewport to whatever the fixed chrome leaves over.
func (m *Model) layout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}

	// Border (2) plus padding (2) of the input container.
	inputWidth := m.width - 4
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.SetWidth(inputWidth)
	m.help.Width = m.width

	chrome := lipgloss.Height(m.renderHeader()) +
		lipgloss.Height(m.renderInput()) +
		lipgloss.Height(m.renderStatusBar()) +
		lipgloss.Height(m.renderHelp())

	vpHeight := m.height - chrome
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = vpHeight
}

// contentWidth is the render width for message bodies.
func (m Model) contentWidth() int {
	w := m.viewport.Width - 2
	if m.ui.WordWrap > 0 && m.ui.WordWrap < w {
		w = m.ui.WordWrap
	}
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderMessages())
}
