// Package store holds generated artifacts. The in-memory Store is the
// authoritative repository for the running session; the SQLite Archive
// is an optional durable layer fed from snapshots.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liuwen/promptreel/internal/gateway"
	"github.com/liuwen/promptreel/internal/model"
)

// Store is the in-memory artifact repository. It exclusively owns all
// Artifact instances: every accessor returns deep copies, and mutation
// happens only through ApplyMutation.
type Store struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*model.Artifact
}

// New creates an empty Store.
func New() *Store {
	return &Store{byID: make(map[string]*model.Artifact)}
}

// Create adds one artifact per raw backend payload, in payload order.
// Defaulting happens here, once: a missing id gets a generated one and
// missing text fields stay empty strings. History is seeded with the
// prompt as its sole entry.
func (s *Store) Create(raws []gateway.RawResult) []*model.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Artifact, 0, len(raws))
	for _, raw := range raws {
		id := raw.ID
		if id == "" {
			id = uuid.New().String()
		}
		a := model.NewArtifact(id, "", raw.FinalPrompt)
		a.Audit = string(raw.Audit)
		a.Tradeoff = raw.Tradeoff
		a.AVPlan = raw.AVPlan
		if len(raw.Tags) > 0 {
			a.Tags = append([]string(nil), raw.Tags...)
		}
		s.insert(a)
		out = append(out, a.Clone())
	}
	return out
}

// CreateStub deterministically synthesizes count placeholder artifacts
// from the fixed template, parameterized only by the product name. The
// artifacts may share identical content; they are placeholders, not
// production output.
func (s *Store) CreateStub(productName string, count int) []*model.Artifact {
	if count < 1 {
		count = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prompt := model.StubPrompt(productName)
	out := make([]*model.Artifact, 0, count)
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("stub-%d", len(s.order)+1)
		a := model.NewArtifact(id, productName, prompt)
		a.Tradeoff = "Placeholder trade-off (backend unavailable)"
		a.AVPlan = "Placeholder AV plan"
		a.Tags = []string{"demo", "sample"}
		s.insert(a)
		out = append(out, a.Clone())
	}
	return out
}

// ApplyMutation replaces the artifact's current prompt: the prior value
// is appended to history first, then newPrompt becomes current. History
// therefore grows by exactly one entry per successful mutation and its
// last element is always the previous state.
func (s *Store) ApplyMutation(id, newPrompt string) (*model.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, &model.NotFoundError{ID: id}
	}
	a.History = append(a.History, a.CurrentPrompt)
	a.CurrentPrompt = newPrompt
	a.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return a.Clone(), nil
}

// Get returns a copy of the artifact with the given id.
func (s *Store) Get(id string) (*model.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, &model.NotFoundError{ID: id}
	}
	return a.Clone(), nil
}

// List returns copies of all artifacts in insertion order.
func (s *Store) List() []*model.Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Artifact, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].Clone())
	}
	return out
}

// Snapshot is List under another name, for the archiver.
func (s *Store) Snapshot() []*model.Artifact {
	return s.List()
}

// Load seeds the store from previously archived artifacts, preserving
// their order. Artifacts whose id is already present are skipped.
func (s *Store) Load(arts []*model.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range arts {
		if a == nil || a.ID == "" {
			continue
		}
		if _, ok := s.byID[a.ID]; ok {
			continue
		}
		s.insert(a.Clone())
	}
}

// insert assumes s.mu is held for writing.
func (s *Store) insert(a *model.Artifact) {
	s.byID[a.ID] = a
	s.order = append(s.order, a.ID)
}
