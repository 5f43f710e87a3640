package notify

import (
	"sync"
	"time"
)

// Kind classifies a message for display.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
)

// DefaultTTL is how long a message stays visible with no follow-up.
const DefaultTTL = 2800 * time.Millisecond

// Message is one transient user-facing notice.
type Message struct {
	Text string
	Kind Kind
}

// Center is a single-slot message queue. Show replaces whatever is
// visible and restarts the expiry; nothing is queued behind it, and a
// message clears only by timeout or by the next Show.
type Center struct {
	mu      sync.Mutex
	ttl     time.Duration
	current *Message
	seq     int
}

func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{ttl: ttl}
}

// Show displays a message, pre-empting the current one.
func (c *Center) Show(text string, kind Kind) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.current = &Message{Text: text, Kind: kind}
	c.mu.Unlock()

	time.AfterFunc(c.ttl, func() {
		c.mu.Lock()
		// A later Show already replaced this message; leave it alone.
		if c.seq == seq {
			c.current = nil
		}
		c.mu.Unlock()
	})
}

// Current reports the visible message, if any.
func (c *Center) Current() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Message{}, false
	}
	return *c.current, true
}
