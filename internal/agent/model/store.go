package model

import (
	"context"
)

// StateStore persists WorkflowState keyed by run id. Implementations must
// support concurrent runs under distinct keys.
type StateStore interface {
	// Load returns the persisted state or errx.ErrRunNotFound.
	Load(ctx context.Context, runID string) (*WorkflowState, error)

	// Save writes state if the persisted version equals state.Version (0 means
	// the run must not exist yet), then increments state.Version. A mismatch
	// returns errx.ErrVersionConflict and leaves state untouched.
	Save(ctx context.Context, state *WorkflowState) error

	// Delete discards a run. Deleting an unknown run is not an error.
	Delete(ctx context.Context, runID string) error
}
