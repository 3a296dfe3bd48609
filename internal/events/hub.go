package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event types published while a document is analyzed.
const (
	TypeSnapshot          = "analysis.snapshot"
	TypeAnalysisStarted   = "analysis.started"
	TypeStageCompleted    = "stage.completed"
	TypeStageFailed       = "stage.failed"
	TypeAnalysisCompleted = "analysis.completed"
	TypeAnalysisPartial   = "analysis.partial"
	TypeAnalysisFailed    = "analysis.failed"
)

// Event is a change notification for one document.
type Event struct {
	Type       string    `json:"type"`
	DocumentID string    `json:"documentId"`
	Stage      string    `json:"stage,omitempty"`
	Payload    any       `json:"payload,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher accepts change notifications.
type Publisher interface {
	Publish(ev Event)
}

// Hub fans events out to per-document subscribers. Publishing never blocks;
// a subscriber whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*Subscription]struct{}
	buffer  int
	dropped atomic.Uint64
}

// NewHub returns a Hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[string]map[*Subscription]struct{}), buffer: buffer}
}

// Subscription receives events for a single document until closed.
type Subscription struct {
	hub        *Hub
	documentID string
	ch         chan Event
	once       sync.Once
}

// Subscribe registers interest in documentID.
func (h *Hub) Subscribe(documentID string) *Subscription {
	sub := &Subscription{hub: h, documentID: documentID, ch: make(chan Event, h.buffer)}
	h.mu.Lock()
	set, ok := h.subs[documentID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[documentID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Events is closed once the subscription is closed.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		if set, ok := h.subs[s.documentID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.documentID)
			}
		}
		close(s.ch)
		h.mu.Unlock()
	})
}

// Publish delivers ev to every current subscriber of ev.DocumentID.
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[ev.DocumentID] {
		select {
		case sub.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers reports how many subscriptions documentID has.
func (h *Hub) Subscribers(documentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[documentID])
}

// Dropped reports events discarded because a subscriber was too slow.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Discard is a Publisher that drops everything.
type Discard struct{}

func (Discard) Publish(Event) {}
