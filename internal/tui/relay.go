package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/pelusa-v/mailgram/internal/appctx"
	"github.com/pelusa-v/mailgram/internal/chat"
)

type sender interface {
	Send(msg tea.Msg)
}

var _ chat.PresenceView = (*Relay)(nil)

// Relay forwards notifications, presence and list changes into a running
// program in the order they were sent. It exists before the program does,
// so the app context and message list can be wired first; anything sent
// before Attach is queued.
type Relay struct {
	mu    sync.Mutex
	queue []tea.Msg
	wake  chan struct{}
	done  chan struct{}
}

// Send never blocks: callers hold the controller lock while the program's
// update loop may be waiting on that same lock.
func (r *Relay) Send(msg tea.Msg) {
	r.mu.Lock()
	r.queue = append(r.queue, msg)
	wake := r.wake
	r.mu.Unlock()
	if wake != nil {
		signal(wake)
	}
}

// Attach starts the single goroutine that drains the queue into p. Only the
// first call has an effect.
func (r *Relay) Attach(p sender) {
	r.mu.Lock()
	if r.wake != nil {
		r.mu.Unlock()
		return
	}
	r.wake = make(chan struct{}, 1)
	r.done = make(chan struct{})
	wake, done := r.wake, r.done
	r.mu.Unlock()

	go r.forward(p, wake, done)
	signal(wake)
}

// Stop ends forwarding. Messages sent afterwards stay queued.
func (r *Relay) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		select {
		case <-r.done:
		default:
			close(r.done)
		}
	}
}

func (r *Relay) forward(p sender, wake, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-wake:
		}
		for {
			r.mu.Lock()
			select {
			case <-done:
				r.mu.Unlock()
				return
			default:
			}
			batch := r.queue
			r.queue = nil
			r.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, msg := range batch {
				p.Send(msg)
			}
		}
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (r *Relay) Notify(level appctx.Level, text string) {
	r.Send(NoticeMsg{Level: level, Text: text})
}

func (r *Relay) Refresh() {
	r.Send(RefreshMsg{})
}

// SetStatus forwards a user's online state to the view.
func (r *Relay) SetStatus(userID string, online bool) {
	r.Send(PresenceMsg{UserID: userID, Online: online})
}

// Run shows the chat view until the user quits or ctx ends. The list's
// OnChange should already call relay.Refresh.
func Run(ctx context.Context, ctl Chat, list *chat.MemoryList, user appctx.User, relay *Relay) error {
	p := tea.NewProgram(New(ctl, list, user), tea.WithContext(ctx), tea.WithAltScreen())
	relay.Attach(p)
	defer relay.Stop()
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
