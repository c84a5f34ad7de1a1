// Package tui provides the interactive chat surface for rumpbot.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rumpbot/rumpbot/pkg/models"
)

// placeholderText is shown while a work request is in flight.
const placeholderText = "Working on it..."

// SubmitMsg is sent when the user submits a chat message.
type SubmitMsg struct {
	Text string
}

// KillMsg is sent when the user asks to kill the run or one worker.
// WorkerNumber 0 targets the whole run.
type KillMsg struct {
	WorkerNumber int
}

// RetryMsg is sent when the user asks to retry one worker.
type RetryMsg struct {
	WorkerNumber int
}

// BotMessageMsg appends a bot reply to the transcript. When it arrives
// while a placeholder is showing, it replaces the placeholder.
type BotMessageMsg struct {
	Text string
}

// StatusMsg carries an orchestration status update into the transcript.
// Important updates become new entries; routine ones update in place.
type StatusMsg struct {
	Update models.StatusUpdate
}

// BusyMsg toggles the in-flight placeholder.
type BusyMsg struct {
	Busy bool
}

// ErrorMsg surfaces a failure as a transcript entry.
type ErrorMsg struct {
	Err error
}

type entryKind int

const (
	entryUser entryKind = iota
	entryBot
	entryStatus
)

type entry struct {
	kind entryKind
	text string
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Padding(0, 1).
			Bold(true)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// ChatApp is the bubbletea model for the chat surface: a scrollable
// transcript over an input line, with slash commands for out-of-band
// control of running work.
type ChatApp struct {
	viewport viewport.Model
	input    textinput.Model

	entries []entry
	// statusIdx is the index of the in-place status entry, -1 when the
	// next routine update should start a new one.
	statusIdx int
	// placeholderIdx is the index of the pending "Working on it..."
	// entry, -1 when none is showing.
	placeholderIdx int

	width    int
	height   int
	ready    bool
	quitting bool
}

// NewChatApp creates the chat model.
func NewChatApp() *ChatApp {
	ti := textinput.New()
	ti.Placeholder = "Message rumpbot, or /kill, /kill N, /retry N, /quit"
	ti.Focus()
	ti.CharLimit = 2000

	return &ChatApp{
		input:          ti,
		statusIdx:      -1,
		placeholderIdx: -1,
	}
}

// Init implements tea.Model.
func (a *ChatApp) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (a *ChatApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		case "enter":
			text := strings.TrimSpace(a.input.Value())
			if text == "" {
				return a, nil
			}
			a.input.Reset()
			return a, a.submit(text)
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			a.viewport, cmd = a.viewport.Update(msg)
			return a, cmd
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()

	case BotMessageMsg:
		a.clearPlaceholder()
		a.appendEntry(entry{kind: entryBot, text: msg.Text})
		a.statusIdx = -1

	case StatusMsg:
		a.applyStatus(msg.Update)

	case BusyMsg:
		if msg.Busy && a.placeholderIdx < 0 {
			a.appendEntry(entry{kind: entryStatus, text: placeholderText})
			a.placeholderIdx = len(a.entries) - 1
		} else if !msg.Busy {
			a.clearPlaceholder()
		}
		a.refresh()

	case ErrorMsg:
		a.clearPlaceholder()
		a.appendEntry(entry{kind: entryStatus, text: errorStyle.Render(fmt.Sprintf("error: %v", msg.Err))})
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

// submit turns the input line into a chat message or a control command.
func (a *ChatApp) submit(text string) tea.Cmd {
	if !strings.HasPrefix(text, "/") {
		a.appendEntry(entry{kind: entryUser, text: text})
		a.statusIdx = -1
		return func() tea.Msg { return SubmitMsg{Text: text} }
	}

	fields := strings.Fields(text)
	switch fields[0] {
	case "/quit", "/exit":
		a.quitting = true
		return tea.Quit
	case "/kill":
		n := 0
		if len(fields) > 1 {
			parsed, err := strconv.Atoi(fields[1])
			if err != nil || parsed < 1 {
				a.appendEntry(entry{kind: entryStatus, text: "usage: /kill [worker-number]"})
				return nil
			}
			n = parsed
		}
		return func() tea.Msg { return KillMsg{WorkerNumber: n} }
	case "/retry":
		if len(fields) < 2 {
			a.appendEntry(entry{kind: entryStatus, text: "usage: /retry <worker-number>"})
			return nil
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			a.appendEntry(entry{kind: entryStatus, text: "usage: /retry <worker-number>"})
			return nil
		}
		return func() tea.Msg { return RetryMsg{WorkerNumber: n} }
	default:
		a.appendEntry(entry{kind: entryStatus, text: fmt.Sprintf("unknown command %s", fields[0])})
		return nil
	}
}

// applyStatus routes one orchestration update into the transcript.
func (a *ChatApp) applyStatus(update models.StatusUpdate) {
	text := update.Message
	if update.Progress != "" {
		text = fmt.Sprintf("[%s] %s", update.Progress, text)
	}

	if update.Important {
		a.appendEntry(entry{kind: entryStatus, text: text})
		a.statusIdx = -1
		return
	}

	if a.statusIdx >= 0 && a.statusIdx < len(a.entries) {
		a.entries[a.statusIdx].text = text
		a.refresh()
		return
	}
	a.appendEntry(entry{kind: entryStatus, text: text})
	a.statusIdx = len(a.entries) - 1
}

func (a *ChatApp) appendEntry(e entry) {
	a.entries = append(a.entries, e)
	a.refresh()
}

func (a *ChatApp) clearPlaceholder() {
	if a.placeholderIdx < 0 || a.placeholderIdx >= len(a.entries) {
		a.placeholderIdx = -1
		return
	}
	a.entries = append(a.entries[:a.placeholderIdx], a.entries[a.placeholderIdx+1:]...)
	if a.statusIdx > a.placeholderIdx {
		a.statusIdx--
	}
	a.placeholderIdx = -1
	a.refresh()
}

// refresh re-renders the transcript into the viewport, pinned to the
// bottom.
func (a *ChatApp) refresh() {
	if !a.ready {
		return
	}
	a.viewport.SetContent(a.renderTranscript())
	a.viewport.GotoBottom()
}

func (a *ChatApp) renderTranscript() string {
	var b strings.Builder
	for i, e := range a.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		switch e.kind {
		case entryUser:
			b.WriteString(userStyle.Render("you ") + e.text)
		case entryBot:
			b.WriteString(botStyle.Render("rumpbot ") + e.text)
		case entryStatus:
			b.WriteString(statusStyle.Render("· " + e.text))
		}
	}
	return b.String()
}

func (a *ChatApp) resize() {
	inputHeight := 3
	headerHeight := 1
	vpHeight := a.height - inputHeight - headerHeight - 1
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !a.ready {
		a.viewport = viewport.New(a.width, vpHeight)
		a.ready = true
	} else {
		a.viewport.Width = a.width
		a.viewport.Height = vpHeight
	}
	a.input.Width = a.width - 6
	a.refresh()
}

// View implements tea.Model.
func (a *ChatApp) View() string {
	if a.quitting {
		return "bye\n"
	}
	if !a.ready {
		return "starting..."
	}

	header := headerStyle.Render("rumpbot")
	inputBox := inputBoxStyle.Width(a.width - 2).Render(a.input.View())
	return lipgloss.JoinVertical(lipgloss.Left, header, a.viewport.View(), inputBox)
}

// Entries returns the transcript texts, used by tests.
func (a *ChatApp) Entries() []string {
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.text
	}
	return out
}

// NewChatProgram wraps the app in a tea.Program using the alternate
// screen. Extra options let the caller hook message routing.
func NewChatProgram(opts ...tea.ProgramOption) (*tea.Program, *ChatApp) {
	app := NewChatApp()
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	p := tea.NewProgram(app, opts...)
	return p, app
}
