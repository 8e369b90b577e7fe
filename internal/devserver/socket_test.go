package devserver

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/pelusa-v/mailgram/internal/api"
	"github.com/pelusa-v/mailgram/internal/appctx"
	"github.com/pelusa-v/mailgram/internal/chat"
	"github.com/pelusa-v/mailgram/internal/events"
	"github.com/pelusa-v/mailgram/internal/transport"
)

type peer struct {
	ctl  *chat.Controller
	list *chat.MemoryList
	tc   *transport.Client

	mu     sync.Mutex
	online map[string]bool
}

func (p *peer) SetStatus(userID string, online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = online
}

func (p *peer) isOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

func startServer(t *testing.T) (*Server, *fasthttputil.InmemoryListener) {
	t.Helper()
	store, groups := NewStore(nil), NewGroups(nil)
	Seed(store, groups, time.Now())
	srv, err := New(store, groups)
	require.NoError(t, err)

	ln := fasthttputil.NewInmemoryListener()
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan struct{})
	go func() {
		_ = srv.Serve(ctx, ln)
		close(served)
	}()
	t.Cleanup(func() {
		cancel()
		<-served
	})
	return srv, ln
}

func connect(t *testing.T, ln *fasthttputil.InmemoryListener, userID, name string) *peer {
	t.Helper()
	dial := func(context.Context, string, string) (net.Conn, error) { return ln.Dial() }
	tc, err := transport.Dial(context.Background(), "ws://mailgram.test/socket/"+userID+"?name="+name, nil, transport.WithNetDial(dial))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tc.Close() })

	hc := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
	uploader, err := api.New("http://mailgram.test", api.WithHTTPClient(hc))
	require.NoError(t, err)

	app, err := appctx.New(appctx.User{ID: userID, Name: name}, appctx.NotifierFunc(func(appctx.Level, string) {}))
	require.NoError(t, err)

	p := &peer{list: &chat.MemoryList{}, tc: tc, online: map[string]bool{}}
	p.ctl, err = chat.NewController(app, tc, uploader, p.list, chat.WithPresence(p))
	require.NoError(t, err)
	t.Cleanup(p.ctl.Bind(tc))
	return p
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 3*time.Second, 10*time.Millisecond, msg)
}

func TestSocket_PrivateMessageRoundTrip(t *testing.T) {
	srv, ln := startServer(t)
	ann := connect(t, ln, "1", "Ann")
	eventually(t, func() bool { return srv.Hub().Online("1") }, "ann registered")
	bob := connect(t, ln, "2", "Bob")
	eventually(t, func() bool { return ann.isOnline("2") }, "ann sees bob online")

	ann.ctl.SelectPeer("2")
	require.NoError(t, ann.ctl.SendMessage("hello bob"))

	eventually(t, func() bool { return len(bob.list.Messages()) == 1 }, "bob receives")
	got := bob.list.Messages()[0]
	require.Equal(t, "hello bob", got.Content)
	require.Equal(t, "1", got.SenderID)
	require.Equal(t, "Ann", got.SenderName)
	require.Equal(t, chat.Received, got.Direction)

	eventually(t, func() bool {
		msgs := ann.list.Messages()
		return len(msgs) == 1 && !msgs[0].ID.IsPending()
	}, "ann's message confirmed")
	require.Equal(t, got.ID, ann.list.Messages()[0].ID)
	require.Len(t, srv.store.Messages(), 1)

	require.NoError(t, bob.tc.Close())
	eventually(t, func() bool { return !ann.isOnline("2") }, "ann sees bob offline")
}

func TestSocket_GroupMessageAndTyping(t *testing.T) {
	srv, ln := startServer(t)
	ann := connect(t, ln, "1", "Ann")
	eventually(t, func() bool { return srv.Hub().Online("1") }, "ann registered")
	bob := connect(t, ln, "2", "Bob")
	eventually(t, func() bool { return ann.isOnline("2") }, "bob registered")

	ann.ctl.SelectGroup("general")
	bob.ctl.SelectGroup("general")

	ann.ctl.HandleTyping()
	eventually(t, func() bool {
		name, shown := bob.list.Typing()
		return shown && name == "Ann"
	}, "bob sees ann typing")

	require.NoError(t, ann.ctl.SendMessage("hi all"))
	eventually(t, func() bool { return len(bob.list.Messages()) == 1 }, "bob receives group message")
	eventually(t, func() bool {
		_, shown := bob.list.Typing()
		return !shown
	}, "typing cleared after send")

	eventually(t, func() bool {
		msgs := ann.list.Messages()
		return len(msgs) == 1 && !msgs[0].ID.IsPending()
	}, "sender only sees its own confirmed copy")
	require.Equal(t, "hi all", bob.list.Messages()[0].Content)
}

func TestSocket_UploadAttachment(t *testing.T) {
	srv, ln := startServer(t)
	ann := connect(t, ln, "1", "Ann")
	eventually(t, func() bool { return srv.Hub().Online("1") }, "ann registered")
	bob := connect(t, ln, "2", "Bob")
	eventually(t, func() bool { return ann.isOnline("2") }, "bob registered")

	ann.ctl.SelectPeer("2")
	body := "\x89PNG fake"
	err := ann.ctl.UploadAttachment(context.Background(), chat.Attachment{
		Name:        "cat.png",
		ContentType: "image/png",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	})
	require.NoError(t, err)

	eventually(t, func() bool { return len(bob.list.Messages()) == 1 }, "bob receives image")
	got := bob.list.Messages()[0]
	require.Equal(t, events.KindImage, got.Kind)
	require.True(t, strings.HasPrefix(got.Content, "/uploads/"))
}

func TestHub_DropsMessagesFromNonMembers(t *testing.T) {
	srv, ln := startServer(t)
	dee := connect(t, ln, "4", "Dee")
	eventually(t, func() bool { return srv.Hub().Online("4") }, "registered")

	out := events.Outgoing{GroupID: "general", Message: "let me in", Type: events.KindText}
	require.NoError(t, dee.tc.Emit(events.GroupMessage, out))

	time.Sleep(50 * time.Millisecond)
	require.Empty(t, srv.store.Messages())
}
