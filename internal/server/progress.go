package server

import "sync"

// progressBuffer bounds the per-subscriber event channel. Slow readers drop
// events rather than blocking the pipeline.
const progressBuffer = 16

// Hub fans analysis progress events out to websocket subscribers keyed by
// session ID. Safe for concurrent use.
type Hub struct {
	mu   sync.Mutex
	subs map[string][]chan string
}

// NewHub creates an empty progress hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string][]chan string)}
}

// Publish delivers a stage name to every subscriber of sessionID.
// Subscribers that cannot keep up miss the event.
func (h *Hub) Publish(sessionID, stage string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[sessionID] {
		select {
		case ch <- stage:
		default:
		}
	}
}

// Subscribe registers for progress events of sessionID. The returned cancel
// function removes the subscription and closes the channel; it is safe to
// call more than once.
func (h *Hub) Subscribe(sessionID string) (<-chan string, func()) {
	ch := make(chan string, progressBuffer)

	h.mu.Lock()
	h.subs[sessionID] = append(h.subs[sessionID], ch)
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			subs := h.subs[sessionID]
			for i, c := range subs {
				if c == ch {
					h.subs[sessionID] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(h.subs[sessionID]) == 0 {
				delete(h.subs, sessionID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
