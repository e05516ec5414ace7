// internal/engine/coordinator/registry.go
package coordinator

import (
	"sync"

	"candidate-risk-engine/internal/models"
)

// Registry is the in-memory authority for candidate state and activity
// windows. Reads take the shared lock; every mutation for a candidate id goes
// through that candidate's own mutex, so concurrent updates to different
// candidates never contend while updates to the same candidate serialize.
type Registry struct {
	mu         sync.RWMutex
	candidates map[string]*models.Candidate
	history    map[string][]models.Message
	seen       map[string]map[string]struct{}
	locks      map[string]*sync.Mutex

	// maxHistory bounds the per-candidate message window kept in memory.
	maxHistory int
}

func NewRegistry(maxHistory int) *Registry {
	if maxHistory <= 0 {
		maxHistory = 200
	}
	return &Registry{
		candidates: make(map[string]*models.Candidate),
		history:    make(map[string][]models.Message),
		seen:       make(map[string]map[string]struct{}),
		locks:      make(map[string]*sync.Mutex),
		maxHistory: maxHistory,
	}
}

// lockFor returns the per-candidate mutex, creating it on first use.
func (r *Registry) lockFor(candidateID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[candidateID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[candidateID] = l
	}
	return l
}

// Put inserts or replaces a candidate record.
func (r *Registry) Put(c *models.Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates[c.ID] = c
}

// Get returns a deep copy of the candidate, or false if unknown.
func (r *Registry) Get(candidateID string) (*models.Candidate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.candidates[candidateID]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// update applies fn to the live candidate record under the shared lock.
// Caller must hold the candidate's per-id mutex.
func (r *Registry) update(candidateID string, fn func(c *models.Candidate)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.candidates[candidateID]
	if !ok {
		return false
	}
	fn(c)
	return true
}

// Snapshot returns deep copies of every active candidate. Candidates added
// after the snapshot is taken are picked up on the next tick.
func (r *Registry) Snapshot() ([]*models.Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Candidate, 0, len(r.candidates))
	for _, c := range r.candidates {
		if c.Active() {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// markSeen records a message id for dedup. Returns false if the id was
// already recorded for the candidate.
func (r *Registry) markSeen(candidateID, messageID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids, ok := r.seen[candidateID]
	if !ok {
		ids = make(map[string]struct{})
		r.seen[candidateID] = ids
	}
	if _, dup := ids[messageID]; dup {
		return false
	}
	ids[messageID] = struct{}{}
	return true
}

// appendMessage adds a message to the candidate's bounded window.
func (r *Registry) appendMessage(m models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	window := append(r.history[m.CandidateID], m)
	if len(window) > r.maxHistory {
		window = window[len(window)-r.maxHistory:]
	}
	r.history[m.CandidateID] = window
}

// History returns a copy of the candidate's activity window.
func (r *Registry) History(candidateID string) []models.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.history[candidateID]
	out := make([]models.Message, len(src))
	copy(out, src)
	return out
}

// Count returns the number of registered candidates, terminal ones included.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.candidates)
}
