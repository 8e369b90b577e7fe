package tui

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/pelusa-v/mailgram/internal/appctx"
	"github.com/pelusa-v/mailgram/internal/chat"
)

type fakeChat struct {
	target   chat.Target
	typing   int
	sent     []string
	sendErr  error
	uploaded []chat.Attachment
	content  []string
}

func (f *fakeChat) Target() chat.Target { return f.target }

func (f *fakeChat) Select(t chat.Target) { f.target = t }

func (f *fakeChat) HandleTyping() { f.typing++ }

func (f *fakeChat) SendMessage(text string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeChat) UploadAttachment(_ context.Context, file chat.Attachment) error {
	b, err := io.ReadAll(file.Body)
	if err != nil {
		return err
	}
	f.uploaded = append(f.uploaded, file)
	f.content = append(f.content, string(b))
	return nil
}

func newModel() (Model, *fakeChat) {
	f := &fakeChat{}
	return New(f, &chat.MemoryList{}, appctx.User{ID: "u1", Name: "Ann"}), f
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

func TestTypingCallsHandleTyping(t *testing.T) {
	m, f := newModel()
	m = typeText(t, m, "hey")
	require.Equal(t, 3, f.typing)
	require.Equal(t, "hey", m.input.Value())

	m, _ = press(m, tea.KeyLeft)
	require.Equal(t, 3, f.typing)
}

func TestEnterSends(t *testing.T) {
	m, f := newModel()
	f.target = chat.Peer("u2")
	m = typeText(t, m, "hello")
	m, _ = press(m, tea.KeyEnter)

	require.Equal(t, []string{"hello"}, f.sent)
	require.Empty(t, m.input.Value())
}

func TestEnterWithoutTargetWarns(t *testing.T) {
	m, f := newModel()
	f.sendErr = chat.ErrNoTarget
	m = typeText(t, m, "hello")
	m, _ = press(m, tea.KeyEnter)

	require.Equal(t, appctx.LevelWarning, m.statusLevel)
	require.Contains(t, m.status, "Pick a conversation")
}

func TestSelectCommands(t *testing.T) {
	m, f := newModel()
	m = typeText(t, m, "/group g1")
	require.Zero(t, f.typing)
	m, _ = press(m, tea.KeyEnter)
	require.Equal(t, chat.Group("g1"), f.target)
	require.Equal(t, "Chatting with group:g1", m.status)

	m = typeText(t, m, "/peer ")
	m, _ = press(m, tea.KeyEnter)
	require.Equal(t, chat.Group("g1"), f.target)
	require.Equal(t, "usage: /peer ID", m.status)

	m = typeText(t, m, "/nope")
	m, _ = press(m, tea.KeyEnter)
	require.Contains(t, m.status, "unknown command /nope")
}

func TestUploadCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("some notes"), 0o600))

	m, f := newModel()
	m = typeText(t, m, "/upload "+path)
	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)

	next, _ := m.Update(cmd())
	m = next.(Model)
	require.Len(t, f.uploaded, 1)
	require.Equal(t, "notes.txt", f.uploaded[0].Name)
	require.True(t, strings.HasPrefix(f.uploaded[0].ContentType, "text/plain"))
	require.Equal(t, int64(10), f.uploaded[0].Size)
	require.Equal(t, []string{"some notes"}, f.content)
	require.Equal(t, "Uploaded notes.txt", m.status)
}

func TestUploadCommand_MissingFile(t *testing.T) {
	m, f := newModel()
	m = typeText(t, m, "/upload /does/not/exist.png")
	m, cmd := press(m, tea.KeyEnter)

	next, _ := m.Update(cmd())
	m = next.(Model)
	require.Empty(t, f.uploaded)
	require.Equal(t, appctx.LevelError, m.statusLevel)
}

func TestOpenAttachment_SniffsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
	require.NoError(t, os.WriteFile(path, png, 0o600))

	file, closeFile, err := OpenAttachment(path)
	require.NoError(t, err)
	defer closeFile()
	require.Equal(t, "image/png", file.ContentType)

	b, err := io.ReadAll(file.Body)
	require.NoError(t, err)
	require.Equal(t, png, b)
}

func TestNoticeAndView(t *testing.T) {
	m, f := newModel()
	f.target = chat.Peer("u2")
	m.list.Append(chat.MessageView{ID: chat.Confirmed("1"), Content: "hi there", Direction: chat.Received, SenderName: "Bob"})
	m.list.ShowTyping("Bob")

	next, _ := m.Update(NoticeMsg{Level: appctx.LevelError, Text: "Bulk action failed"})
	m = next.(Model)

	out := m.View()
	require.Contains(t, out, "peer:u2")
	require.Contains(t, out, "hi there")
	require.Contains(t, out, "Bob is typing...")
	require.Contains(t, out, "Bulk action failed")
}

func TestEscQuits(t *testing.T) {
	m, _ := newModel()
	_, cmd := press(m, tea.KeyEsc)
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *recordingSender) all() []tea.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tea.Msg(nil), s.msgs...)
}

func TestRelayQueuesUntilAttached(t *testing.T) {
	var r Relay
	r.Notify(appctx.LevelInfo, "queued")
	r.Refresh()
	r.SetStatus("u2", true)
	require.Len(t, r.queue, 3)

	s := &recordingSender{}
	r.Attach(s)
	defer r.Stop()
	require.Eventually(t, func() bool { return len(s.all()) == 3 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []tea.Msg{
		NoticeMsg{Level: appctx.LevelInfo, Text: "queued"},
		RefreshMsg{},
		PresenceMsg{UserID: "u2", Online: true},
	}, s.all())
}

func TestRelayKeepsOrder(t *testing.T) {
	var r Relay
	s := &recordingSender{}
	r.Attach(s)
	defer r.Stop()

	const n = 200
	for i := 0; i < n; i++ {
		r.Notify(appctx.LevelInfo, strconv.Itoa(i))
	}
	require.Eventually(t, func() bool { return len(s.all()) == n }, time.Second, 5*time.Millisecond)
	for i, msg := range s.all() {
		require.Equal(t, strconv.Itoa(i), msg.(NoticeMsg).Text)
	}
}

func TestRelayStop(t *testing.T) {
	var r Relay
	s := &recordingSender{}
	r.Attach(s)
	r.Stop()
	r.Stop()

	r.Refresh()
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, s.all())
}

func TestPresenceShownForPeer(t *testing.T) {
	m, f := newModel()
	f.target = chat.Peer("u2")
	require.NotContains(t, m.View(), "online")

	next, _ := m.Update(PresenceMsg{UserID: "u2", Online: true})
	m = next.(Model)
	require.Contains(t, m.View(), "peer:u2 · online")

	next, _ = m.Update(PresenceMsg{UserID: "u2", Online: false})
	m = next.(Model)
	require.Contains(t, m.View(), "peer:u2 · offline")

	f.target = chat.Group("g1")
	require.NotContains(t, m.View(), "offline")
}
