// Package batch orchestrates chunked multi-document writes. The backend
// rejects oversized batches, and very large collections (15k+ gear items)
// have broken single-shot writes in the field, so every bulk mutation goes
// through here.
package batch

import (
	"context"
	"fmt"

	"github.com/crewdeck-app/crewdeck-backend/pkg/docstore"
	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
)

// DefaultChunkSize stays well under the backend's per-batch ceiling.
const DefaultChunkSize = 250

// Op is a single set or delete within a bulk mutation.
type Op struct {
	Collection string
	ID         string
	Data       any
	Delete     bool
}

// SetOp builds a set operation.
func SetOp(collection, id string, data any) Op {
	return Op{Collection: collection, ID: id, Data: data}
}

// DeleteOp builds a delete operation.
func DeleteOp(collection, id string) Op {
	return Op{Collection: collection, ID: id, Delete: true}
}

// ChunkError reports a partial bulk failure. Chunks 0..Committed-1 are
// durable; the failing chunk and everything after it were not applied. There
// is no rollback across chunks; that weak-consistency trade is deliberate.
type ChunkError struct {
	Committed int
	Err       error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("bulk write aborted after %d committed chunk(s): %v", e.Committed, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Mutator commits operation lists in fixed-size chunks, strictly one chunk
// at a time.
type Mutator struct {
	store     docstore.Store
	chunkSize int
	logg      *logger.Logger
}

// NewMutator builds a chunked mutator. A non-positive chunkSize selects the
// default.
func NewMutator(store docstore.Store, chunkSize int, logg *logger.Logger) (*Mutator, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document store required")
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkSize > docstore.MaxBatchOps {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("chunk size %d exceeds backend ceiling %d", chunkSize, docstore.MaxBatchOps))
	}
	return &Mutator{store: store, chunkSize: chunkSize, logg: logg}, nil
}

// ChunkSize returns the configured chunk size.
func (m *Mutator) ChunkSize() int {
	return m.chunkSize
}

// Commit applies ops in order, chunk by chunk. Each chunk starts only after
// the previous chunk's commit acknowledgement. On failure it returns the
// number of chunks already committed wrapped in a ChunkError; committed
// chunks stay committed.
func (m *Mutator) Commit(ctx context.Context, ops []Op) (int, error) {
	if len(ops) == 0 {
		return 0, nil
	}

	committed := 0
	for start := 0; start < len(ops); start += m.chunkSize {
		end := start + m.chunkSize
		if end > len(ops) {
			end = len(ops)
		}

		wb := m.store.Batch()
		for _, op := range ops[start:end] {
			if op.Delete {
				wb.Delete(op.Collection, op.ID)
			} else {
				wb.Set(op.Collection, op.ID, op.Data)
			}
		}
		if err := wb.Commit(ctx); err != nil {
			if m.logg != nil {
				m.logg.Error(ctx, fmt.Sprintf("bulk chunk %d failed, aborting remainder", committed), err)
			}
			return committed, &ChunkError{Committed: committed, Err: err}
		}
		committed++
	}
	return committed, nil
}
