// Package render formats chat messages and admin tables for the terminal.
package render

import (
	"path"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pelusa-v/mailgram/internal/chat"
	"github.com/pelusa-v/mailgram/internal/events"
)

var (
	sentColor     = lipgloss.Color("63")
	receivedColor = lipgloss.Color("241")
	metaColor     = lipgloss.Color("242")

	sentStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(sentColor).Padding(0, 1)
	receivedStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(receivedColor).Padding(0, 1)
	metaStyle     = lipgloss.NewStyle().Foreground(metaColor)
	pendingStyle  = metaStyle.Italic(true)
	typingStyle   = lipgloss.NewStyle().Foreground(metaColor).Italic(true)
)

const timeLayout = "15:04"

// Body is the text shown inside a bubble. Media kinds show a placeholder
// naming the file instead of the URL's contents.
func Body(m chat.MessageView) string {
	content := Sanitize(m.Content)
	switch m.Kind {
	case events.KindImage:
		return "[image] " + fileName(content)
	case events.KindVideo:
		return "[video] " + fileName(content)
	case events.KindAudio:
		return "[audio] " + fileName(content)
	case events.KindDocument:
		return "[file] " + fileName(content)
	default:
		return content
	}
}

func fileName(u string) string {
	if u == "" {
		return ""
	}
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return path.Base(u)
}

// Meta is the bubble's footer: sender for received messages, then the
// time, then "sending" while the id is still pending.
func Meta(m chat.MessageView) string {
	parts := make([]string, 0, 3)
	if m.Direction == chat.Received {
		parts = append(parts, Name(m.SenderName, m.SenderID))
	}
	if !m.Timestamp.IsZero() {
		parts = append(parts, m.Timestamp.Local().Format(timeLayout))
	}
	if m.ID.IsPending() {
		parts = append(parts, "sending")
	}
	return strings.Join(parts, " · ")
}

// Bubble renders one message aligned by direction within width columns.
func Bubble(m chat.MessageView, width int) string {
	style := receivedStyle
	align := lipgloss.Left
	if m.Direction == chat.Sent {
		style = sentStyle
		align = lipgloss.Right
	}
	meta := metaStyle
	if m.ID.IsPending() {
		meta = pendingStyle
	}
	box := style.Render(Body(m) + "\n" + meta.Render(Meta(m)))
	if width <= 0 {
		return box
	}
	return lipgloss.PlaceHorizontal(width, align, box)
}

// Messages renders a conversation followed by the typing indicator, if any.
func Messages(msgs []chat.MessageView, typingName string, typing bool, width int) string {
	out := make([]string, 0, len(msgs)+1)
	for _, m := range msgs {
		out = append(out, Bubble(m, width))
	}
	if typing {
		out = append(out, Typing(typingName))
	}
	return strings.Join(out, "\n")
}

func Typing(name string) string {
	return typingStyle.Render(Name(name, "Someone") + " is typing...")
}
