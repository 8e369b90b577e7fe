package chat

import (
	"strconv"
	"time"

	"github.com/pelusa-v/mailgram/internal/events"
)

type Direction string

const (
	Sent     Direction = "sent"
	Received Direction = "received"
)

const tempPrefix = "temp-"

// MessageID is either Pending (a local counter, before the server has
// acknowledged the send) or Confirmed (the server's durable id).
type MessageID struct {
	local     uint64
	server    string
	confirmed bool
}

func Pending(local uint64) MessageID {
	return MessageID{local: local}
}

func Confirmed(serverID string) MessageID {
	return MessageID{server: serverID, confirmed: true}
}

func (id MessageID) IsPending() bool { return !id.confirmed }

// String renders pending ids as "temp-N" and confirmed ids verbatim.
func (id MessageID) String() string {
	if id.confirmed {
		return id.server
	}
	return tempPrefix + strconv.FormatUint(id.local, 10)
}

// MessageView is one rendered message bubble.
type MessageView struct {
	ID         MessageID
	SenderID   string
	SenderName string
	Content    string
	Kind       events.Kind
	Timestamp  time.Time
	Direction  Direction
}

func viewFromIncoming(in events.Incoming, now time.Time) MessageView {
	kind := in.Type
	if kind == "" {
		kind = events.KindText
	}
	ts, ok := events.ParseTime(in.Timestamp)
	if !ok {
		ts = now
	}
	return MessageView{
		ID:         Confirmed(in.ID.String()),
		SenderID:   in.SenderID.String(),
		SenderName: in.SenderName,
		Content:    in.Content,
		Kind:       kind,
		Timestamp:  ts,
		Direction:  Received,
	}
}
