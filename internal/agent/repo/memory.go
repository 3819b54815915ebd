package repo

import (
	"context"
	"fmt"
	"sync"

	"github.com/blogflow/server/internal/agent/model"
	errx "github.com/blogflow/server/internal/core/error"
)

// MemoryStateStore keeps runs in process memory. Used for tests and the
// single-process CLI.
type MemoryStateStore struct {
	mu   sync.Mutex
	runs map[string]*model.WorkflowState
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{runs: map[string]*model.WorkflowState{}}
}

func (m *MemoryStateStore) Load(_ context.Context, runID string) (*model.WorkflowState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.runs[runID]
	if !ok {
		return nil, errx.NotFound(fmt.Errorf("%w: %s", errx.ErrRunNotFound, runID))
	}
	return s.Clone(), nil
}

func (m *MemoryStateStore) Save(_ context.Context, state *model.WorkflowState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current int64
	if s, ok := m.runs[state.RunID]; ok {
		current = s.Version
	}
	if current != state.Version {
		return errx.Conflict(errx.ErrVersionConflict)
	}
	stored := state.Clone()
	stored.Version++
	m.runs[state.RunID] = stored
	state.Version = stored.Version
	return nil
}

func (m *MemoryStateStore) Delete(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, runID)
	return nil
}

var _ model.StateStore = (*MemoryStateStore)(nil)
