// Package tui is the interactive terminal chat view. Keystrokes drive the
// chat controller; the controller's message list is rendered on every
// refresh.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/pelusa-v/mailgram/internal/appctx"
	"github.com/pelusa-v/mailgram/internal/chat"
	"github.com/pelusa-v/mailgram/internal/render"
)

// Chat is the part of the chat controller the view drives.
type Chat interface {
	Target() chat.Target
	Select(t chat.Target)
	HandleTyping()
	SendMessage(text string) error
	UploadAttachment(ctx context.Context, file chat.Attachment) error
}

// RefreshMsg asks the view to redraw the message list.
type RefreshMsg struct{}

// NoticeMsg shows a notification in the status line.
type NoticeMsg struct {
	Level appctx.Level
	Text  string
}

// PresenceMsg reports a user going online or offline.
type PresenceMsg struct {
	UserID string
	Online bool
}

type uploadedMsg struct {
	name string
	err  error
}

const helpText = "/peer ID · /group ID · /upload PATH · esc to quit"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	statusStyles = map[appctx.Level]lipgloss.Style{
		appctx.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("247")),
		appctx.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		appctx.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		appctx.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

type Model struct {
	ctl   Chat
	list  *chat.MemoryList
	user  appctx.User
	input textinput.Model

	// open resolves /upload paths; replaced in tests.
	open func(path string) (chat.Attachment, func() error, error)

	online      map[string]bool
	status      string
	statusLevel appctx.Level
	width       int
	height      int
}

func New(ctl Chat, list *chat.MemoryList, user appctx.User) Model {
	in := textinput.New()
	in.Placeholder = "Message"
	in.Prompt = "> "
	in.CharLimit = 4096
	in.Focus()
	return Model{
		ctl:         ctl,
		list:        list,
		user:        user,
		input:       in,
		open:        OpenAttachment,
		online:      map[string]bool{},
		status:      helpText,
		statusLevel: appctx.LevelInfo,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(10, msg.Width-4)
		return m, nil
	case RefreshMsg:
		return m, nil
	case NoticeMsg:
		m.setStatus(msg.Level, msg.Text)
		return m, nil
	case PresenceMsg:
		m.online[msg.UserID] = msg.Online
		return m, nil
	case uploadedMsg:
		if msg.err != nil {
			m.setStatus(appctx.LevelError, fmt.Sprintf("Upload of %s failed: %v", msg.name, msg.err))
		} else {
			m.setStatus(appctx.LevelSuccess, "Uploaded "+msg.name)
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before && !strings.HasPrefix(after, "/") {
		m.ctl.HandleTyping()
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	m.input.Reset()
	if strings.HasPrefix(text, "/") {
		return m.command(text)
	}
	err := m.ctl.SendMessage(text)
	switch {
	case errors.Is(err, chat.ErrNoTarget):
		m.setStatus(appctx.LevelWarning, "Pick a conversation first: "+helpText)
	case err != nil && !errors.Is(err, chat.ErrEmptyMessage):
		m.setStatus(appctx.LevelError, err.Error())
	}
	return m, nil
}

func (m Model) command(line string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/peer", "/group":
		t := chat.Peer(arg)
		if name == "/group" {
			t = chat.Group(arg)
		}
		if t.IsNone() {
			m.setStatus(appctx.LevelWarning, "usage: "+name+" ID")
			return m, nil
		}
		m.ctl.Select(t)
		m.setStatus(appctx.LevelInfo, "Chatting with "+t.String())
		return m, nil
	case "/upload":
		if arg == "" {
			m.setStatus(appctx.LevelWarning, "usage: /upload PATH")
			return m, nil
		}
		m.setStatus(appctx.LevelInfo, "Uploading "+arg+"...")
		return m, m.upload(arg)
	default:
		m.setStatus(appctx.LevelWarning, "unknown command "+name+": "+helpText)
		return m, nil
	}
}

// upload runs off the update loop; the result comes back as uploadedMsg.
func (m Model) upload(path string) tea.Cmd {
	ctl, open := m.ctl, m.open
	return func() tea.Msg {
		file, closeFile, err := open(path)
		if err != nil {
			return uploadedMsg{name: path, err: err}
		}
		defer func() { _ = closeFile() }()
		return uploadedMsg{name: file.Name, err: ctl.UploadAttachment(context.Background(), file)}
	}
}

func presenceLabel(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

func (m *Model) setStatus(level appctx.Level, text string) {
	m.statusLevel, m.status = level, text
}

func (m Model) View() string {
	target := m.ctl.Target()
	title := fmt.Sprintf("Mailgram · %s · %s", render.Name(m.user.Name, m.user.ID), target)
	if target.IsPeer() {
		if online, ok := m.online[target.ID()]; ok {
			title += " · " + presenceLabel(online)
		}
	}
	typingName, typing := m.list.Typing()
	body := render.Messages(m.list.Messages(), typingName, typing, m.width)
	if m.height > 0 {
		lines := strings.Split(body, "\n")
		if room := m.height - 4; room > 0 && len(lines) > room {
			body = strings.Join(lines[len(lines)-room:], "\n")
		}
	}
	style, ok := statusStyles[m.statusLevel]
	if !ok {
		style = statusStyles[appctx.LevelInfo]
	}
	return strings.Join([]string{
		titleStyle.Render(title),
		body,
		style.Render(m.status),
		m.input.View(),
	}, "\n")
}
