// Package tui is a terminal presentation of the chat widget. It drives a
// widget.Controller the same way the web page does: a launcher toggles the
// panel, enter submits, and a spinner stands in for the typing indicator.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/capitalize-ai/assistant-widget/internal/model"
	"github.com/capitalize-ai/assistant-widget/internal/widget"
	"github.com/capitalize-ai/assistant-widget/pkg/logger"
)

const (
	placeholderIdle    = "Type your message here..."
	placeholderPending = "Processing..."

	// rows used by the header, typing line, input box and help line
	chromeHeight = 8
)

// focusMsg asks the model to focus the input once the panel has opened.
type focusMsg struct{}

// replyMsg reports that a submission has finished.
type replyMsg struct {
	message model.Message
	outcome widget.Outcome
}

// Options configures the terminal widget.
type Options struct {
	// GlamourStyle is a glamour standard style name. Empty selects one from
	// the terminal background.
	GlamourStyle string
	Logger       *logger.Logger
}

// Model is the bubbletea model of the terminal widget.
type Model struct {
	ctx    context.Context
	ctrl   *widget.Controller
	styles Styles
	logger *logger.Logger

	glamourStyle string
	renderer     *glamour.TermRenderer

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	state  model.WidgetState
	notice string
}

// New creates the terminal widget for ctrl. Requests outlive ctx.
func New(ctx context.Context, ctrl *widget.Controller, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = logger.Global()
	}

	ta := textarea.New()
	ta.Placeholder = placeholderIdle
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(2)
	ta.KeyMap.InsertNewline.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:          ctx,
		ctrl:         ctrl,
		styles:       DefaultStyles(),
		logger:       opts.Logger,
		glamourStyle: opts.GlamourStyle,
		textarea:     ta,
		spinner:      sp,
		state:        ctrl.Snapshot(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case focusMsg:
		if !m.state.Open || m.state.Pending {
			return m, nil
		}
		return m, m.textarea.Focus()

	case replyMsg:
		m.logger.Debug("reply shown",
			zap.Int64("message_id", msg.message.ID),
			zap.String("outcome", string(msg.outcome)),
		)
		m.refresh()
		m.textarea.Placeholder = placeholderIdle
		if !m.state.Open {
			return m, nil
		}
		return m, m.textarea.Focus()

	case spinner.TickMsg:
		if !m.state.Pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "ctrl+o":
		open := m.ctrl.ToggleVisibility()
		m.refresh()
		if !open {
			m.textarea.Blur()
			return m, nil
		}
		return m, tea.Tick(widget.FocusDelay, func(time.Time) tea.Msg { return focusMsg{} })

	case "enter":
		if !m.state.Open {
			return m, nil
		}
		return m.submit()

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if !m.state.Open || m.state.Pending {
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	sub, err := m.ctrl.Submit(m.ctx, m.textarea.Value())
	switch {
	case errors.Is(err, widget.ErrEmptyMessage), errors.Is(err, widget.ErrBusy):
		return m, nil
	case err != nil:
		m.logger.Error("failed to submit message", zap.Error(err))
		m.notice = err.Error()
		return m, nil
	}

	m.notice = ""
	m.textarea.Reset()
	m.textarea.Blur()
	m.textarea.Placeholder = placeholderPending
	m.refresh()

	return m, tea.Batch(waitForReply(sub), m.spinner.Tick)
}

// waitForReply blocks until sub has appended its bot message.
func waitForReply(sub *widget.Submission) tea.Cmd {
	return func() tea.Msg {
		msg, _ := sub.Wait(context.Background())
		return replyMsg{message: msg, outcome: sub.Outcome()}
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	vpHeight := height - chromeHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(width - 4)

	renderer, err := newRenderer(m.glamourStyle, width-4)
	if err != nil {
		m.logger.Warn("failed to create markdown renderer", zap.Error(err))
	}
	m.renderer = renderer

	m.refresh()
}

func newRenderer(style string, wrap int) (*glamour.TermRenderer, error) {
	if wrap < 20 {
		wrap = 20
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	return glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(wrap))
}

// refresh reloads the controller state and redraws the log.
func (m *Model) refresh() {
	m.state = m.ctrl.Snapshot()
	if m.ready {
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
	}
}

func (m Model) renderHistory() string {
	var sb strings.Builder

	for _, msg := range m.state.Messages {
		stamp := m.styles.Timestamp.Render(msg.Timestamp.Format("15:04"))
		if msg.IsBot {
			sb.WriteString(m.styles.Bot.Render("Assistant") + " " + stamp + "\n")
			sb.WriteString(m.renderMarkdown(msg.Text))
		} else {
			sb.WriteString(m.styles.User.Render("You") + " " + stamp + "\n")
			sb.WriteString(m.styles.UserText.Render(msg.Text))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m Model) renderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		if rendered, err := m.renderer.Render(content); err == nil {
			return rendered
		}
	}
	return content + "\n"
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if !m.state.Open {
		return m.styles.Launcher.Render("💬 AI Assistant") + "\n" +
			m.styles.Help.Render("  ctrl+o open chat • ctrl+c quit")
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Header.Width(m.width).Render("AI Assistant"))
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")

	if m.state.Pending {
		sb.WriteString(m.spinner.View() + m.styles.Typing.Render(" Assistant is typing..."))
	} else if m.notice != "" {
		sb.WriteString(m.styles.Error.Render(m.notice))
	}
	sb.WriteString("\n")

	sb.WriteString(m.styles.Input.Render(m.textarea.View()))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Help.Render("enter send • pgup/pgdown scroll • ctrl+o close • ctrl+c quit"))

	return sb.String()
}
