package overlay

import (
	"sync"
	"time"

	"github.com/ayusman/nritya/internal/geom"
	"github.com/ayusman/nritya/internal/pose"
)

// Snapshot is the data published alongside each rendered frame.
type Snapshot struct {
	Pose      *pose.Pose `json:"pose,omitempty"`
	Cursor    geom.Point `json:"cursor"`
	State     string     `json:"state"`
	Status    string     `json:"status,omitempty"`
	Timestamp int64      `json:"timestamp"`
}

// Update is one published frame.
type Update struct {
	JPEG     []byte
	Snapshot Snapshot
}

// Hub keeps the latest rendered frame and fans updates out to subscribers.
// Slow subscribers miss frames rather than block the publisher.
type Hub struct {
	mu     sync.RWMutex
	latest Update
	subs   map[chan Update]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Update]struct{})}
}

// Publish stores u as the latest frame and offers it to every subscriber.
func (h *Hub) Publish(u Update) {
	if u.Snapshot.Timestamp == 0 {
		u.Snapshot.Timestamp = time.Now().UnixMilli()
	}

	h.mu.Lock()
	h.latest = u
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// Latest returns the most recent update.
func (h *Hub) Latest() Update {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Subscribe registers a buffered channel of updates. The returned function
// unsubscribes and closes the channel.
func (h *Hub) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 1)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
