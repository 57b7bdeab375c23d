package fixtures

import (
	"context"

	"github.com/dogmatiq/eventhub/checkpoint"
)

// CheckpointStoreStub is a test implementation of the checkpoint.Store
// interface.
type CheckpointStoreStub struct {
	checkpoint.Store

	LoadFunc func(context.Context, checkpoint.Key) (checkpoint.Checkpoint, bool, error)
	SaveFunc func(context.Context, checkpoint.Key, checkpoint.Checkpoint) error
}

// Load returns the checkpoint for k.
//
// If s.LoadFunc is non-nil, it returns s.LoadFunc(ctx, k), otherwise it
// dispatches to the embedded store.
func (s *CheckpointStoreStub) Load(
	ctx context.Context,
	k checkpoint.Key,
) (checkpoint.Checkpoint, bool, error) {
	if s.LoadFunc != nil {
		return s.LoadFunc(ctx, k)
	}

	return s.Store.Load(ctx, k)
}

// Save persists the checkpoint for k.
//
// If s.SaveFunc is non-nil, it returns s.SaveFunc(ctx, k, cp), otherwise it
// dispatches to the embedded store.
func (s *CheckpointStoreStub) Save(
	ctx context.Context,
	k checkpoint.Key,
	cp checkpoint.Checkpoint,
) error {
	if s.SaveFunc != nil {
		return s.SaveFunc(ctx, k, cp)
	}

	return s.Store.Save(ctx, k, cp)
}
