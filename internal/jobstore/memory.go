package jobstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pablopedrosap/medical-ai-template/internal/domain"
)

// MemoryStore is a process-local Store. It keeps only the newest snapshot
// per job and is safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[uuid.UUID]domain.ProgressSnapshot
}

// compile-time interface check
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[uuid.UUID]domain.ProgressSnapshot)}
}

// Save records the snapshot, replacing any previous one for the job.
func (s *MemoryStore) Save(_ context.Context, snapshot domain.ProgressSnapshot) error {
	if snapshot.JobID == uuid.Nil {
		return fmt.Errorf("save snapshot: missing job id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.JobID] = snapshot
	return nil
}

// Get returns the latest snapshot for the job.
func (s *MemoryStore) Get(_ context.Context, jobID uuid.UUID) (domain.ProgressSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[jobID]
	if !ok {
		return domain.ProgressSnapshot{}, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	return snapshot, nil
}

// List returns the latest snapshot of every known job.
func (s *MemoryStore) List(_ context.Context) ([]domain.ProgressSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ProgressSnapshot, 0, len(s.snapshots))
	for _, snapshot := range s.snapshots {
		out = append(out, snapshot)
	}
	return out, nil
}
