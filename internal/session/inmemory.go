package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"draftqa/internal/agent/core"
)

// userSet is one user's object set with its own lock, so operations on
// different users never contend.
type userSet struct {
	mu  sync.RWMutex
	set core.SessionObjectSet
}

// InMemoryStore keeps object sets in process memory. The default backend;
// fits the ephemeral contract exactly. The outer lock only guards bucket
// creation, per-user access goes through the bucket's own lock.
type InMemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]*userSet
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{buckets: make(map[string]*userSet)}
}

func (s *InMemoryStore) bucket(user string, create bool) *userSet {
	s.mu.RLock()
	b, ok := s.buckets[user]
	s.mu.RUnlock()
	if ok || !create {
		return b
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.buckets[user]; ok {
		return b
	}
	b = &userSet{set: core.SessionObjectSet{}}
	s.buckets[user] = b
	return b
}

// GetObjects returns a copy of the user's current set. A user with no set
// gets an empty one, never an error.
func (s *InMemoryStore) GetObjects(_ context.Context, user string) (core.SessionObjectSet, error) {
	b := s.bucket(user, false)
	if b == nil {
		return core.SessionObjectSet{}, nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(core.SessionObjectSet, len(b.set))
	for id, rec := range b.set {
		out[id] = rec
	}
	return out, nil
}

// PutObjects replaces the user's whole set.
func (s *InMemoryStore) PutObjects(_ context.Context, user string, objects []core.ObjectRecord) (int, error) {
	set := buildSet(objects)
	b := s.bucket(user, true)
	b.mu.Lock()
	b.set = set
	b.mu.Unlock()
	return len(set), nil
}

// ClearObjects drops the user's set.
func (s *InMemoryStore) ClearObjects(_ context.Context, user string) error {
	b := s.bucket(user, false)
	if b == nil {
		return nil
	}
	b.mu.Lock()
	b.set = core.SessionObjectSet{}
	b.mu.Unlock()
	return nil
}

// buildSet keys records by id, assigning ids to records that lack one. A
// repeated id within one payload keeps the last record, matching replacement
// semantics at the record level.
func buildSet(objects []core.ObjectRecord) core.SessionObjectSet {
	set := make(core.SessionObjectSet, len(objects))
	for _, rec := range objects {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		set[rec.ID] = rec
	}
	return set
}
