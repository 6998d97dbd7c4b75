// Package jobstore persists job progress snapshots so progress survives
// outside the workflow's query handler. Durable persistence is an external
// concern; callers depend on the Store interface only.
package jobstore

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pablopedrosap/medical-ai-template/internal/domain"
)

// ErrJobNotFound is returned when no snapshot exists for a job.
var ErrJobNotFound = errors.New("job not found")

// Store persists the latest progress snapshot per job.
type Store interface {
	// Save records the snapshot, replacing any previous one for the job.
	Save(ctx context.Context, snapshot domain.ProgressSnapshot) error

	// Get returns the latest snapshot for the job, or ErrJobNotFound.
	Get(ctx context.Context, jobID uuid.UUID) (domain.ProgressSnapshot, error)

	// List returns the latest snapshot of every known job, in no
	// particular order.
	List(ctx context.Context) ([]domain.ProgressSnapshot, error)
}
