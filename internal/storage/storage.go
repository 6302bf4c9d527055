// Package storage keeps the batches of the web service in memory.
package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/filestructor/structor/internal/batch"
	"github.com/filestructor/structor/internal/oracle"
	"github.com/filestructor/structor/internal/preview"
)

// Batch is one uploaded batch and what it runs with.
type Batch struct {
	ID           string
	Orchestrator *batch.Orchestrator
	Oracle       *oracle.Service
	Previews     *preview.Store
	CreatedAt    time.Time
}

// BatchStore is a concurrency-safe map of batches keyed by ID.
type BatchStore struct {
	batches map[string]*Batch
	mu      sync.RWMutex
}

func New() *BatchStore {
	return &BatchStore{
		batches: make(map[string]*Batch),
	}
}

// Add stores b under a new ID and returns it.
func (s *BatchStore) Add(b *Batch) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = uuid.NewString()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	s.batches[b.ID] = b
	return b.ID
}

func (s *BatchStore) Get(id string) (*Batch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, exists := s.batches[id]
	return b, exists
}

// List returns all batches, oldest first.
func (s *BatchStore) List() []*Batch {
	s.mu.RLock()
	result := make([]*Batch, 0, len(s.batches))
	for _, b := range s.batches {
		result = append(result, b)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Delete removes a batch, stopping and clearing it first.
func (s *BatchStore) Delete(id string) bool {
	s.mu.Lock()
	b, exists := s.batches[id]
	delete(s.batches, id)
	s.mu.Unlock()

	if exists {
		b.Orchestrator.Stop()
		b.Orchestrator.Clear()
	}
	return exists
}
