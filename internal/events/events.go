package events

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Outbound event names.
const (
	PrivateMessage = "private_message"
	GroupMessage   = "group_message"
	Typing         = "typing"
)

// Inbound event names.
const (
	NewMessage      = "new_message"
	MessageSent     = "message_sent"
	NewGroupMessage = "new_group_message"
	UserTyping      = "user_typing"
	GroupTyping     = "group_typing"
	UserStatus      = "user_status"
)

// Envelope is one socket frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ID is a wire identifier. The backend sends user ids as numbers and group
// ids as strings; both decode to the same textual form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

type Kind string

const (
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindDocument Kind = "document"
)

// Outgoing is the payload of private_message and group_message.
type Outgoing struct {
	ReceiverID ID     `json:"receiver_id,omitempty"`
	GroupID    ID     `json:"group_id,omitempty"`
	Message    string `json:"message"`
	Type       Kind   `json:"type"`
	TempID     string `json:"temp_id,omitempty"`
}

// TypingState is the payload of the outbound typing event.
type TypingState struct {
	ReceiverID ID   `json:"receiver_id,omitempty"`
	GroupID    ID   `json:"group_id,omitempty"`
	Typing     bool `json:"typing"`
}

// Incoming is the payload of new_message and new_group_message.
type Incoming struct {
	ID         ID     `json:"id"`
	GroupID    ID     `json:"group_id,omitempty"`
	SenderID   ID     `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
	Type       Kind   `json:"type"`
}

// Ack is the payload of message_sent. TempID is only present when the
// backend echoes it back.
type Ack struct {
	ID        ID     `json:"id"`
	Timestamp string `json:"timestamp"`
	TempID    string `json:"temp_id,omitempty"`
}

// RemoteTyping is the payload of user_typing and group_typing.
type RemoteTyping struct {
	GroupID  ID     `json:"group_id,omitempty"`
	UserID   ID     `json:"user_id"`
	UserName string `json:"user_name"`
	Typing   bool   `json:"typing"`
}

// Status is the payload of user_status.
type Status struct {
	UserID ID     `json:"user_id"`
	Status string `json:"status"`
}

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// ParseTime reads the ISO timestamps the backend emits. Naive timestamps are
// taken as UTC. ok is false when nothing matched.
func ParseTime(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// FormatTime is the inverse of ParseTime for emitting timestamps.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
