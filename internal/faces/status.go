package faces

import (
	"sync"
	"time"
)

// statusBoard holds the last operation message until it expires.
type statusBoard struct {
	mu      sync.Mutex
	message string
	until   time.Time
	ttl     time.Duration
	now     func() time.Time
}

func (b *statusBoard) show(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.message = message
	b.until = b.now().Add(b.ttl)
}

// current returns the message while it is fresh, otherwise "".
func (b *statusBoard) current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.now().Before(b.until) {
		return ""
	}
	return b.message
}
