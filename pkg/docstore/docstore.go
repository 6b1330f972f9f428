// Package docstore abstracts the hosted document database: equality-filtered
// queries, live snapshot listeners and bounded batched writes. The client
// never assumes more than at-least-eventual listener delivery and atomic
// single-batch commits.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned by Get when no document exists under the id.
var ErrNotFound = errors.New("docstore: document not found")

// MaxBatchOps is the backend's per-batch operation ceiling. Callers chunk
// below this; see internal/batch.
const MaxBatchOps = 500

// Document is a raw stored document. The payload always embeds its own "id"
// field, so ID is a convenience duplicate.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Filter is an equality constraint on a top-level field. Every query this
// core issues is an equality match (almost always on teamCode).
type Filter struct {
	Field string
	Value any
}

// Handler receives the full filtered result set on registration and after
// every subsequent change.
type Handler func(docs []Document)

// Registration is a live listener handle.
type Registration interface {
	Unsubscribe()
}

// WriteBatch accumulates set/delete operations for a single atomic commit.
type WriteBatch interface {
	Set(collection, id string, data any)
	Delete(collection, id string)
	Len() int
	Commit(ctx context.Context) error
}

// Store is the minimal contract this core requires of the remote document
// database.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, data any, merge bool) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, filter Filter) ([]Document, error)
	Listen(ctx context.Context, collection string, filter Filter, h Handler) (Registration, error)
	Batch() WriteBatch
}

// Decode unmarshals a single document into T.
func Decode[T any](doc Document) (T, error) {
	var v T
	err := json.Unmarshal(doc.Data, &v)
	return v, err
}

// DecodeAll decodes every document it can and silently drops the rest. A
// malformed legacy document must never poison its siblings.
func DecodeAll[T any](docs []Document) []T {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := Decode[T](doc)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
