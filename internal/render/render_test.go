package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pelusa-v/mailgram/internal/admin"
	"github.com/pelusa-v/mailgram/internal/chat"
	"github.com/pelusa-v/mailgram/internal/events"
)

func TestSanitize_KeepsTextVerbatim(t *testing.T) {
	for _, s := range []string{
		"if a<b and c>d",
		"use <div> tags",
		"I typed &lt; literally",
		"<b>bold</b> &amp; co",
		"two\nlines\tand a tab",
	} {
		require.Equal(t, s, Sanitize(s))
	}
}

func TestSanitize_StripsTerminalControls(t *testing.T) {
	require.Equal(t, "clearscreen", Sanitize("clear\x1b[2Jscreen"))
	require.Equal(t, "red text", Sanitize("\x1b[31mred\x1b[0m text"))
	require.Equal(t, "title", Sanitize("\x1b]0;pwned\x07title"))
	require.Equal(t, "bell", Sanitize("bell\a\r\b"))
}

func TestName(t *testing.T) {
	require.Equal(t, "Ann", Name(" Ann ", "Guest"))
	require.Equal(t, "<Ann>", Name("<Ann>", "Guest"))
	require.Equal(t, "Guest", Name("\x1b[2J ", "Guest"))
}

func TestBody(t *testing.T) {
	cases := []struct {
		kind events.Kind
		in   string
		want string
	}{
		{events.KindText, "if a<b and c>d", "if a<b and c>d"},
		{events.KindText, "hi \x1b[1mthere", "hi there"},
		{events.KindImage, "/uploads/cat.png", "[image] cat.png"},
		{events.KindVideo, "https://cdn.test/v/clip.mp4?sig=1", "[video] clip.mp4"},
		{events.KindAudio, "/uploads/a.ogg", "[audio] a.ogg"},
		{events.KindDocument, "/uploads/report.pdf", "[file] report.pdf"},
		{"", "plain", "plain"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Body(chat.MessageView{Kind: tc.kind, Content: tc.in}), tc.in)
	}
}

func TestMeta(t *testing.T) {
	ts := time.Date(2024, 1, 2, 9, 5, 0, 0, time.Local)

	received := chat.MessageView{ID: chat.Confirmed("1"), SenderID: "u2", SenderName: "Bob", Timestamp: ts, Direction: chat.Received}
	require.Equal(t, "Bob · 09:05", Meta(received))

	received.SenderName = ""
	require.Equal(t, "u2 · 09:05", Meta(received))

	sent := chat.MessageView{ID: chat.Pending(1), Timestamp: ts, Direction: chat.Sent}
	require.Equal(t, "09:05 · sending", Meta(sent))
}

func TestBubble_ContainsBodyAndMeta(t *testing.T) {
	m := chat.MessageView{ID: chat.Confirmed("9"), Content: "hello", Kind: events.KindText, Direction: chat.Sent}
	out := Bubble(m, 40)
	require.Contains(t, out, "hello")
	for _, line := range strings.Split(out, "\n") {
		require.LessOrEqual(t, len([]rune(line)), 40)
	}
}

func TestMessages_TypingIndicator(t *testing.T) {
	msgs := []chat.MessageView{{ID: chat.Confirmed("1"), Content: "one", Direction: chat.Received}}
	out := Messages(msgs, "Ann", true, 0)
	require.Contains(t, out, "one")
	require.Contains(t, out, "Ann is typing...")

	require.NotContains(t, Messages(msgs, "Ann", false, 0), "typing")
}

func TestTable(t *testing.T) {
	tbl := &admin.Table{
		Columns: []admin.Column{{Key: "name", Label: "Name", Indicator: admin.Ascending}},
		Rows: []*admin.Row{
			{ID: "1", Cells: []string{"Ann"}, Selected: true},
			{ID: "2", Cells: []string{"Bob"}, Hidden: true},
		},
	}
	out := Table(tbl)
	require.Contains(t, out, "Name ▲")
	require.Contains(t, out, "Ann")
	require.Contains(t, out, "*")
	require.NotContains(t, out, "Bob")

	require.Equal(t, "Name ▼", HeaderLabel(admin.Column{Label: "Name", Indicator: admin.Descending}))
	require.Equal(t, "Name", HeaderLabel(admin.Column{Label: "Name"}))
}

func TestTable_MarksSelectionInCheckboxColumn(t *testing.T) {
	tbl := &admin.Table{
		Columns: []admin.Column{{Checkbox: true}, {Key: "name", Label: "Name"}},
		Rows: []*admin.Row{
			{ID: "1", Cells: []string{"", "Ann"}, Selected: true},
			{ID: "2", Cells: []string{"", "Bob"}},
		},
	}
	out := Table(tbl)

	var ann, bob string
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(line, "Ann"):
			ann = line
		case strings.Contains(line, "Bob"):
			bob = line
		}
	}
	require.Equal(t, 3, strings.Count(ann, "│"), ann)
	require.Contains(t, ann, "*")
	require.Equal(t, 3, strings.Count(bob, "│"), bob)
	require.NotContains(t, bob, "*")
}
