package chat

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/pelusa-v/mailgram/internal/appctx"
	"github.com/pelusa-v/mailgram/internal/events"
)

const (
	defaultTypingTimeout = time.Second
	// DefaultMaxUpload mirrors the backend's request size limit.
	DefaultMaxUpload = 16 << 20
	maxPending       = 256
)

// Emitter publishes outbound socket events.
type Emitter interface {
	Emit(event string, payload any) error
}

// Subscriber registers inbound socket handlers. The returned func removes
// the handler.
type Subscriber interface {
	On(event string, handler func(data json.RawMessage)) func()
}

// Uploader posts an attachment and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error)
}

type Option func(*Controller)

func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(ctl *Controller) { ctl.logger = l }
}

func WithPresence(p PresenceView) Option {
	return func(ctl *Controller) { ctl.presence = p }
}

// WithMaxUploadSize sets the client-side attachment limit. Zero disables it.
func WithMaxUploadSize(n int64) Option {
	return func(ctl *Controller) { ctl.maxUpload = n }
}

func WithTypingTimeout(d time.Duration) Option {
	return func(ctl *Controller) {
		if d > 0 {
			ctl.typingTimeout = d
		}
	}
}

// Controller owns the active conversation target of one chat view and the
// render contract of its message list. All methods are safe to call from
// transport, timer and UI goroutines; they serialize on one lock.
type Controller struct {
	app      *appctx.Context
	out      Emitter
	uploader Uploader
	list     MessageList
	presence PresenceView

	clock         clock.Clock
	logger        zerolog.Logger
	maxUpload     int64
	typingTimeout time.Duration

	mu      sync.Mutex
	target  Target
	seq     uint64
	pending []MessageID

	typing       bool
	typingTarget Target
	typingTimer  *clock.Timer
	typingGen    uint64
}

func NewController(app *appctx.Context, out Emitter, uploader Uploader, list MessageList, opts ...Option) (*Controller, error) {
	if app == nil {
		return nil, errors.New("chat: app context must not be nil")
	}
	if out == nil {
		return nil, errors.New("chat: emitter must not be nil")
	}
	if uploader == nil {
		return nil, errors.New("chat: uploader must not be nil")
	}
	if list == nil {
		return nil, errors.New("chat: message list must not be nil")
	}
	c := &Controller{
		app:           app,
		out:           out,
		uploader:      uploader,
		list:          list,
		clock:         clock.New(),
		logger:        zerolog.Nop(),
		maxUpload:     DefaultMaxUpload,
		typingTimeout: defaultTypingTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Bind registers every inbound handler on sub. The returned func removes
// them all.
func (c *Controller) Bind(sub Subscriber) func() {
	disposers := []func(){
		sub.On(events.NewMessage, decodeInto(c, c.OnPrivateMessage)),
		sub.On(events.NewGroupMessage, decodeInto(c, c.OnGroupMessage)),
		sub.On(events.MessageSent, decodeInto(c, c.OnMessageAck)),
		sub.On(events.UserTyping, decodeInto(c, c.OnUserTyping)),
		sub.On(events.GroupTyping, decodeInto(c, c.OnGroupTyping)),
		sub.On(events.UserStatus, decodeInto(c, c.OnUserStatus)),
	}
	return func() {
		for _, dispose := range disposers {
			dispose()
		}
	}
}

func decodeInto[T any](c *Controller, fn func(T)) func(json.RawMessage) {
	return func(data json.RawMessage) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			c.logger.Debug().Err(err).Msg("dropping malformed event")
			return
		}
		fn(v)
	}
}

func (c *Controller) Target() Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *Controller) SelectPeer(userID string) { c.Select(Peer(userID)) }

func (c *Controller) SelectGroup(groupID string) { c.Select(Group(groupID)) }

// Select replaces the active target and clears the rendered messages.
// History arrives with the page render, so nothing is fetched here.
func (c *Controller) Select(t Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTypingLocked()
	c.target = t
	c.list.Clear()
	c.logger.Debug().Stringer("target", t).Msg("conversation selected")
}

// SendMessage renders text optimistically and emits it to the active
// target. Transport failures are logged, not returned.
func (c *Controller) SendMessage(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sendLocked(events.KindText, strings.TrimSpace(text)); err != nil {
		return err
	}
	c.stopTypingLocked()
	return nil
}

func (c *Controller) sendLocked(kind events.Kind, content string) error {
	if c.target.IsNone() {
		return ErrNoTarget
	}
	if content == "" {
		return ErrEmptyMessage
	}

	c.seq++
	id := Pending(c.seq)
	c.pending = append(c.pending, id)
	if len(c.pending) > maxPending {
		c.pending = c.pending[len(c.pending)-maxPending:]
	}

	c.list.Append(MessageView{
		ID:         id,
		SenderID:   c.app.User.ID,
		SenderName: c.app.User.Name,
		Content:    content,
		Kind:       kind,
		Timestamp:  c.clock.Now(),
		Direction:  Sent,
	})

	payload := events.Outgoing{Message: content, Type: kind, TempID: id.String()}
	event := events.PrivateMessage
	if c.target.IsGroup() {
		event = events.GroupMessage
		payload.GroupID = events.ID(c.target.ID())
	} else {
		payload.ReceiverID = events.ID(c.target.ID())
	}
	if err := c.out.Emit(event, payload); err != nil {
		c.logger.Warn().Err(err).Str("event", event).Msg("emit failed")
	}
	return nil
}

// OnPrivateMessage renders a direct message. The transport only delivers
// messages addressed to this user, so no target check applies.
func (c *Controller) OnPrivateMessage(in events.Incoming) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list.Append(viewFromIncoming(in, c.clock.Now()))
}

// OnGroupMessage renders a group message only when that group is active.
func (c *Controller) OnGroupMessage(in events.Incoming) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isActiveGroupLocked(in.GroupID) {
		return
	}
	c.list.Append(viewFromIncoming(in, c.clock.Now()))
}

// OnMessageAck reconciles an optimistic render with the server record. Acks
// carrying temp_id match it exactly; bare acks match the oldest pending
// send, since acks come back in send order.
func (c *Controller) OnMessageAck(ack events.Ack) {
	c.mu.Lock()
	defer c.mu.Unlock()

	local, ok := c.takePendingLocked(ack.TempID)
	if !ok {
		return
	}
	at, ok := events.ParseTime(ack.Timestamp)
	if !ok {
		at = c.clock.Now()
	}
	if !c.list.Confirm(local, Confirmed(ack.ID.String()), at) {
		c.logger.Debug().Stringer("id", local).Msg("acked message no longer rendered")
	}
}

func (c *Controller) takePendingLocked(tempID string) (MessageID, bool) {
	if len(c.pending) == 0 {
		return MessageID{}, false
	}
	if tempID == "" {
		id := c.pending[0]
		c.pending = c.pending[1:]
		return id, true
	}
	for i, id := range c.pending {
		if id.String() == tempID {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return id, true
		}
	}
	return MessageID{}, false
}

// OnUserTyping toggles the indicator for a direct conversation.
func (c *Controller) OnUserTyping(ev events.RemoteTyping) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showTypingLocked(ev)
}

// OnGroupTyping toggles the indicator only for the active group.
func (c *Controller) OnGroupTyping(ev events.RemoteTyping) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isActiveGroupLocked(ev.GroupID) {
		return
	}
	c.showTypingLocked(ev)
}

func (c *Controller) showTypingLocked(ev events.RemoteTyping) {
	if ev.Typing {
		c.list.ShowTyping(ev.UserName)
		return
	}
	c.list.HideTyping()
}

func (c *Controller) OnUserStatus(ev events.Status) {
	if c.presence == nil {
		return
	}
	c.presence.SetStatus(ev.UserID.String(), ev.Status == events.StatusOnline)
}

func (c *Controller) isActiveGroupLocked(groupID events.ID) bool {
	return c.target.IsGroup() && c.target.ID() == groupID.String()
}
