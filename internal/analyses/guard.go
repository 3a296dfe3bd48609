package analyses

import "sync"

// inFlight tracks documents with a running analysis so a double submission
// does not start a second run. It also remembers documents handed to the job
// queue by this process until a worker result shows up.
type inFlight struct {
	mu     sync.Mutex
	docs   map[string]struct{}
	queued map[string]struct{}
}

func newInFlight() *inFlight {
	return &inFlight{docs: make(map[string]struct{}), queued: make(map[string]struct{})}
}

// acquire reports false when documentID is already running.
func (g *inFlight) acquire(documentID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.docs[documentID]; busy {
		return false
	}
	g.docs[documentID] = struct{}{}
	delete(g.queued, documentID)
	return true
}

func (g *inFlight) release(documentID string) {
	g.mu.Lock()
	delete(g.docs, documentID)
	g.mu.Unlock()
}

func (g *inFlight) running(documentID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.docs[documentID]
	return busy
}

func (g *inFlight) markQueued(documentID string) {
	g.mu.Lock()
	g.queued[documentID] = struct{}{}
	g.mu.Unlock()
}

func (g *inFlight) clearQueued(documentID string) {
	g.mu.Lock()
	delete(g.queued, documentID)
	g.mu.Unlock()
}

func (g *inFlight) isQueued(documentID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.queued[documentID]
	return ok
}
