package devserver

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/pelusa-v/mailgram/internal/events"
)

type frame struct {
	from *Client
	env  events.Envelope
}

// Hub owns the connected clients and relays socket events between them.
// All routing happens on the Run goroutine.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client // user id -> client

	register   chan *Client
	unregister chan *Client
	inbound    chan frame
	done       chan struct{}

	store  *Store
	groups *Groups
	clock  clock.Clock
	logger zerolog.Logger
}

type HubOption func(*Hub)

func WithHubClock(c clock.Clock) HubOption {
	return func(h *Hub) { h.clock = c }
}

func WithHubLogger(l zerolog.Logger) HubOption {
	return func(h *Hub) { h.logger = l }
}

func NewHub(store *Store, groups *Groups, opts ...HubOption) *Hub {
	h := &Hub{
		clients:    map[string]*Client{},
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan frame, 64),
		done:       make(chan struct{}),
		store:      store,
		groups:     groups,
		clock:      clock.New(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run routes events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if old := h.clients[c.ID]; old != nil {
				close(old.send)
			}
			h.clients[c.ID] = c
			h.mu.Unlock()
			h.logger.Info().Str("user", c.ID).Msg("client connected")
			h.broadcast(c.ID, events.UserStatus, events.Status{UserID: events.ID(c.ID), Status: events.StatusOnline})

		case c := <-h.unregister:
			h.mu.Lock()
			current := h.clients[c.ID] == c
			if current {
				delete(h.clients, c.ID)
				close(c.send)
			}
			h.mu.Unlock()
			if current {
				h.logger.Info().Str("user", c.ID).Msg("client disconnected")
				h.broadcast(c.ID, events.UserStatus, events.Status{UserID: events.ID(c.ID), Status: events.StatusOffline})
			}

		case f := <-h.inbound:
			h.route(f)
		}
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) receive(f frame) bool {
	select {
	case h.inbound <- f:
		return true
	case <-h.done:
		return false
	}
}

// Online reports whether userID has a live connection.
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[userID] != nil
}

func (h *Hub) route(f frame) {
	switch f.env.Event {
	case events.PrivateMessage:
		var out events.Outgoing
		if !h.decode(f, &out) {
			return
		}
		h.privateMessage(f.from, out)
	case events.GroupMessage:
		var out events.Outgoing
		if !h.decode(f, &out) {
			return
		}
		h.groupMessage(f.from, out)
	case events.Typing:
		var st events.TypingState
		if !h.decode(f, &st) {
			return
		}
		h.typing(f.from, st)
	default:
		h.logger.Debug().Str("event", f.env.Event).Str("user", f.from.ID).Msg("ignoring unknown event")
	}
}

func (h *Hub) decode(f frame, v any) bool {
	if err := json.Unmarshal(f.env.Data, v); err != nil {
		h.logger.Debug().Err(err).Str("event", f.env.Event).Msg("dropping malformed event")
		return false
	}
	return true
}

func (h *Hub) privateMessage(from *Client, out events.Outgoing) {
	to := out.ReceiverID.String()
	if to == "" || strings.TrimSpace(out.Message) == "" {
		return
	}
	rec := h.store.RecordMessage(MessageRecord{
		SenderID:   from.ID,
		ReceiverID: to,
		Kind:       out.Type,
		Content:    out.Message,
		Time:       h.clock.Now().UTC(),
	})
	h.sendTo(to, events.NewMessage, incoming(rec, from.Name))
	h.ack(from, rec, out.TempID)
}

// groupMessage relays to every other member; the sender only gets the ack.
func (h *Hub) groupMessage(from *Client, out events.Outgoing) {
	gid := out.GroupID.String()
	if strings.TrimSpace(out.Message) == "" || !h.groups.IsMember(from.ID, gid) {
		h.logger.Debug().Str("user", from.ID).Str("group", gid).Msg("dropping group message")
		return
	}
	rec := h.store.RecordMessage(MessageRecord{
		SenderID: from.ID,
		GroupID:  normalizeGroupID(gid),
		Kind:     out.Type,
		Content:  out.Message,
		Time:     h.clock.Now().UTC(),
	})
	payload := incoming(rec, from.Name)
	for _, member := range h.groups.Members(gid) {
		if member != from.ID {
			h.sendTo(member, events.NewGroupMessage, payload)
		}
	}
	h.ack(from, rec, out.TempID)
}

func (h *Hub) typing(from *Client, st events.TypingState) {
	ev := events.RemoteTyping{UserID: events.ID(from.ID), UserName: from.Name, Typing: st.Typing}
	switch {
	case st.GroupID != "":
		if !h.groups.IsMember(from.ID, st.GroupID.String()) {
			return
		}
		ev.GroupID = events.ID(normalizeGroupID(st.GroupID.String()))
		for _, member := range h.groups.Members(st.GroupID.String()) {
			if member != from.ID {
				h.sendTo(member, events.GroupTyping, ev)
			}
		}
	case st.ReceiverID != "":
		h.sendTo(st.ReceiverID.String(), events.UserTyping, ev)
	}
}

func (h *Hub) ack(c *Client, rec MessageRecord, tempID string) {
	h.deliver(c, events.MessageSent, events.Ack{
		ID:        events.ID(rec.ID),
		Timestamp: events.FormatTime(rec.Time),
		TempID:    tempID,
	})
}

func incoming(rec MessageRecord, senderName string) events.Incoming {
	return events.Incoming{
		ID:         events.ID(rec.ID),
		GroupID:    events.ID(rec.GroupID),
		SenderID:   events.ID(rec.SenderID),
		SenderName: senderName,
		Content:    rec.Content,
		Timestamp:  events.FormatTime(rec.Time),
		Type:       rec.Kind,
	}
}

func (h *Hub) sendTo(userID, event string, payload any) {
	h.mu.RLock()
	c := h.clients[userID]
	h.mu.RUnlock()
	if c != nil {
		h.deliver(c, event, payload)
	}
}

func (h *Hub) broadcast(exceptID, event string, payload any) {
	h.mu.RLock()
	snapshot := make([]*Client, 0, len(h.clients))
	for id, c := range h.clients {
		if id != exceptID {
			snapshot = append(snapshot, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range snapshot {
		h.deliver(c, event, payload)
	}
}

// deliver drops the frame when the client's queue is full.
func (h *Hub) deliver(c *Client, event string, payload any) {
	data, err := encode(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("encoding event")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.clients[c.ID] != c {
		return
	}
	select {
	case c.send <- data:
	default:
		h.logger.Warn().Str("user", c.ID).Str("event", event).Msg("client queue full, dropping")
	}
}

func encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(events.Envelope{Event: event, Data: data})
}
