package journey

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/fyrsmithlabs/journeyd/internal/touchpoint"
)

// ErrNotFound is returned when a journey id is unknown to the store.
var ErrNotFound = errors.New("journey not found")

// Store is the authoritative home of touchpoints-per-identity and
// journeys-by-id. All journey mutation passes through it; analyzer jobs read
// it through Snapshot so a journey is never observed half-updated.
//
// Implementations must be safe for concurrent use. The in-memory
// implementation below is the reference; persistence backends plug in behind
// this interface.
type Store interface {
	// AppendTouchpoint records a touchpoint against an identity.
	AppendTouchpoint(identity string, tp touchpoint.Touchpoint)

	// Touchpoints returns the touchpoints recorded for an identity, in
	// arrival order.
	Touchpoints(identity string) []touchpoint.Touchpoint

	// TouchpointCount returns the total number of touchpoints tracked.
	TouchpointCount() int

	// ActiveJourney returns the identity's journey with the latest end time,
	// if it is still inside the stitching window at now.
	ActiveJourney(identity string, now time.Time, window time.Duration) (*Journey, bool)

	// PutJourney stores a journey, replacing any prior version with the same
	// id. Stored journeys are treated as immutable: callers must not mutate a
	// journey after handing it to the store.
	PutJourney(j *Journey)

	// Journey returns the journey with the given id.
	Journey(id string) (*Journey, error)

	// JourneysForIdentity returns all journeys, open or closed, owned by an
	// identity.
	JourneysForIdentity(identity string) []*Journey

	// Snapshot returns a consistent point-in-time view of all journeys.
	Snapshot() []*Journey

	// JourneyCount returns the number of journeys tracked.
	JourneyCount() int
}

// MemoryStore is the in-memory Store implementation. A single RWMutex guards
// all maps; journeys are stored by pointer but never mutated in place, so a
// snapshot's pointers stay internally consistent after the lock is released.
type MemoryStore struct {
	mu          sync.RWMutex
	touchpoints map[string][]touchpoint.Touchpoint
	journeys    map[string]*Journey
	byIdentity  map[string][]string // identity -> journey ids, creation order
	tpCount     int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		touchpoints: make(map[string][]touchpoint.Touchpoint),
		journeys:    make(map[string]*Journey),
		byIdentity:  make(map[string][]string),
	}
}

// AppendTouchpoint records a touchpoint against an identity.
func (s *MemoryStore) AppendTouchpoint(identity string, tp touchpoint.Touchpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchpoints[identity] = append(s.touchpoints[identity], tp)
	s.tpCount++
}

// Touchpoints returns a copy of the identity's touchpoint list.
func (s *MemoryStore) Touchpoints(identity string) []touchpoint.Touchpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]touchpoint.Touchpoint(nil), s.touchpoints[identity]...)
}

// TouchpointCount returns the total number of touchpoints tracked.
func (s *MemoryStore) TouchpointCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tpCount
}

// ActiveJourney picks the identity's journey with the latest end time and
// returns it only while it is inside the stitching window.
func (s *MemoryStore) ActiveJourney(identity string, now time.Time, window time.Duration) (*Journey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *Journey
	for _, id := range s.byIdentity[identity] {
		j := s.journeys[id]
		if latest == nil || j.EndedAt.After(latest.EndedAt) {
			latest = j
		}
	}
	if latest == nil || !latest.ActiveAt(now, window) {
		return nil, false
	}
	return latest, true
}

// PutJourney stores a journey, replacing any prior version with the same id.
func (s *MemoryStore) PutJourney(j *Journey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.journeys[j.ID]; !exists {
		s.byIdentity[j.IdentityID] = append(s.byIdentity[j.IdentityID], j.ID)
	}
	s.journeys[j.ID] = j
}

// Journey returns the journey with the given id.
func (s *MemoryStore) Journey(id string) (*Journey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.journeys[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

// JourneysForIdentity returns all journeys owned by an identity in creation
// order.
func (s *MemoryStore) JourneysForIdentity(identity string) []*Journey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byIdentity[identity]
	out := make([]*Journey, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.journeys[id])
	}
	return out
}

// Snapshot returns all journeys ordered by start time. The returned slice is
// owned by the caller; the journeys themselves are immutable once stored.
func (s *MemoryStore) Snapshot() []*Journey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Journey, 0, len(s.journeys))
	for _, j := range s.journeys {
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].StartedAt.Before(out[b].StartedAt)
	})
	return out
}

// JourneyCount returns the number of journeys tracked.
func (s *MemoryStore) JourneyCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.journeys)
}
