package chat

import (
	"sync"
	"time"
)

// MessageList is the rendered message stream of the active conversation.
// Implementations own a single typing indicator element.
type MessageList interface {
	Clear()
	Append(m MessageView)
	// Confirm swaps a pending id for the server's and updates the shown
	// time. It reports false when the message is no longer rendered.
	Confirm(pending, confirmed MessageID, at time.Time) bool
	ShowTyping(userName string)
	HideTyping()
}

// PresenceView shows online state next to contacts.
type PresenceView interface {
	SetStatus(userID string, online bool)
}

// MemoryList is a MessageList kept in memory. OnChange, when set, runs after
// every mutation without the list lock held.
type MemoryList struct {
	mu       sync.Mutex
	messages []MessageView
	typing   string
	shown    bool

	OnChange func()
}

func (l *MemoryList) Clear() {
	l.mu.Lock()
	l.messages = nil
	l.typing, l.shown = "", false
	l.mu.Unlock()
	l.changed()
}

func (l *MemoryList) Append(m MessageView) {
	l.mu.Lock()
	l.messages = append(l.messages, m)
	l.mu.Unlock()
	l.changed()
}

func (l *MemoryList) Confirm(pending, confirmed MessageID, at time.Time) bool {
	l.mu.Lock()
	found := false
	for i := range l.messages {
		if l.messages[i].ID == pending {
			l.messages[i].ID = confirmed
			l.messages[i].Timestamp = at
			found = true
			break
		}
	}
	l.mu.Unlock()
	if found {
		l.changed()
	}
	return found
}

func (l *MemoryList) ShowTyping(userName string) {
	l.mu.Lock()
	if l.shown {
		l.mu.Unlock()
		return
	}
	l.typing, l.shown = userName, true
	l.mu.Unlock()
	l.changed()
}

func (l *MemoryList) HideTyping() {
	l.mu.Lock()
	if !l.shown {
		l.mu.Unlock()
		return
	}
	l.typing, l.shown = "", false
	l.mu.Unlock()
	l.changed()
}

// Messages returns a snapshot of the rendered messages.
func (l *MemoryList) Messages() []MessageView {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]MessageView, len(l.messages))
	copy(out, l.messages)
	return out
}

// Typing returns who the indicator names and whether it is shown.
func (l *MemoryList) Typing() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.typing, l.shown
}

func (l *MemoryList) changed() {
	if l.OnChange != nil {
		l.OnChange()
	}
}
