package chat

import "github.com/pelusa-v/mailgram/internal/events"

// HandleTyping runs on every input keystroke. The first keystroke emits
// typing=true; each one restarts the silence timer, and typing=false is
// emitted once the timer elapses.
func (c *Controller) HandleTyping() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target.IsNone() {
		return
	}
	if !c.typing {
		c.typing = true
		c.typingTarget = c.target
		c.emitTypingLocked(c.target, true)
	}
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	c.typingGen++
	gen := c.typingGen
	c.typingTimer = c.clock.AfterFunc(c.typingTimeout, func() { c.typingElapsed(gen) })
}

// Typing reports whether a local typing=true is outstanding.
func (c *Controller) Typing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typing
}

func (c *Controller) typingElapsed(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// A keystroke or stop since this timer was armed supersedes it.
	if gen != c.typingGen {
		return
	}
	c.stopTypingLocked()
}

func (c *Controller) stopTypingLocked() {
	if c.typingTimer != nil {
		c.typingTimer.Stop()
		c.typingTimer = nil
	}
	c.typingGen++
	if !c.typing {
		return
	}
	c.typing = false
	c.emitTypingLocked(c.typingTarget, false)
	c.typingTarget = None
}

func (c *Controller) emitTypingLocked(t Target, typing bool) {
	payload := events.TypingState{Typing: typing}
	if t.IsGroup() {
		payload.GroupID = events.ID(t.ID())
	} else {
		payload.ReceiverID = events.ID(t.ID())
	}
	if err := c.out.Emit(events.Typing, payload); err != nil {
		c.logger.Debug().Err(err).Bool("typing", typing).Msg("emit typing failed")
	}
}
