package memory

import (
	"context"
	"sync"

	"github.com/dogmatiq/eventhub/checkpoint"
)

// Store is an in-memory implementation of checkpoint.Store.
type Store struct {
	m           sync.RWMutex
	checkpoints map[checkpoint.Key]checkpoint.Checkpoint
}

// Load returns the checkpoint for k.
func (s *Store) Load(
	ctx context.Context,
	k checkpoint.Key,
) (checkpoint.Checkpoint, bool, error) {
	if ctx.Err() != nil {
		return checkpoint.Checkpoint{}, false, ctx.Err()
	}

	s.m.RLock()
	defer s.m.RUnlock()

	cp, ok := s.checkpoints[k]
	return cp, ok, nil
}

// Save persists the checkpoint for k.
func (s *Store) Save(
	ctx context.Context,
	k checkpoint.Key,
	cp checkpoint.Checkpoint,
) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.m.Lock()
	defer s.m.Unlock()

	if s.checkpoints == nil {
		s.checkpoints = map[checkpoint.Key]checkpoint.Checkpoint{}
	}

	s.checkpoints[k] = cp

	return nil
}
