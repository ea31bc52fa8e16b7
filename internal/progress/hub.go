package progress

import (
	"sync"
	"sync/atomic"

	"mediastudio/internal/infra"
)

const DefaultBuffer = 32

// Hub fans messages out to every listener subscribed under an owner key.
// It keeps no backlog: late subscribers miss earlier messages.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*Subscription]struct{}
	buffer  int
	dropped atomic.Int64
	logger  infra.Logger
}

func NewHub(logger infra.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscription is one listener's view of an owner's stream.
type Subscription struct {
	hub   *Hub
	owner string
	ch    chan Message
	once  sync.Once
}

// C yields published messages. It is closed after Close.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Close unsubscribes. Calling it more than once is safe.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

func (h *Hub) Subscribe(owner string) *Subscription {
	sub := &Subscription{hub: h, owner: owner, ch: make(chan Message, h.buffer)}
	h.mu.Lock()
	if h.subs[owner] == nil {
		h.subs[owner] = make(map[*Subscription]struct{})
	}
	h.subs[owner][sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[sub.owner]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.owner)
	}
	close(sub.ch)
}

// Publish delivers msg to the owner's current listeners without blocking.
// A listener with a full buffer misses the message.
func (h *Hub) Publish(owner string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[owner] {
		select {
		case sub.ch <- msg:
		default:
			h.dropped.Add(1)
			h.logger.Warn().
				Str("owner", owner).
				Str("stage", msg.Stage).
				Str("job_id", msg.JobID()).
				Msg("progress listener too slow, message dropped")
		}
	}
}

func (h *Hub) Listeners(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[owner])
}

// Dropped counts messages lost to full listener buffers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
