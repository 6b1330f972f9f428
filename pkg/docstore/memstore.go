package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemStore is a mutex-guarded in-memory Store with synchronous snapshot
// listeners. It backs the test suites and local development; the Firestore
// adapter is the production implementation.
type MemStore struct {
	mu          sync.Mutex
	collections map[string]map[string]json.RawMessage
	listeners   map[int]*memListener
	nextID      int

	commits     int
	failAfter   int
	failErr     error
	batchFailed bool
}

type memListener struct {
	collection string
	filter     Filter
	handler    Handler
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		collections: map[string]map[string]json.RawMessage{},
		listeners:   map[int]*memListener{},
		failAfter:   -1,
	}
}

// FailCommitsAfter arranges for batch commits to fail once n commits have
// succeeded. Pass a negative n to clear the hook.
func (m *MemStore) FailCommitsAfter(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits = 0
	m.failAfter = n
	m.failErr = err
}

func (m *MemStore) Get(ctx context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Data: append(json.RawMessage(nil), data...)}, nil
}

func (m *MemStore) Set(ctx context.Context, collection, id string, data any, merge bool) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding document %s/%s: %w", collection, id, err)
	}
	m.mu.Lock()
	if err := m.setLocked(collection, id, raw, merge); err != nil {
		m.mu.Unlock()
		return err
	}
	pending := m.snapshotListenersLocked(collection)
	m.mu.Unlock()
	deliver(pending)
	return nil
}

func (m *MemStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	delete(m.collections[collection], id)
	pending := m.snapshotListenersLocked(collection)
	m.mu.Unlock()
	deliver(pending)
	return nil
}

func (m *MemStore) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryLocked(collection, filter), nil
}

func (m *MemStore) Listen(ctx context.Context, collection string, filter Filter, h Handler) (Registration, error) {
	if h == nil {
		return nil, fmt.Errorf("listener handler is required")
	}
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = &memListener{collection: collection, filter: filter, handler: h}
	initial := m.queryLocked(collection, filter)
	m.mu.Unlock()

	h(initial)
	return &memRegistration{store: m, id: id}, nil
}

func (m *MemStore) Batch() WriteBatch {
	return &memBatch{store: m}
}

type memRegistration struct {
	store *MemStore
	id    int
}

func (r *memRegistration) Unsubscribe() {
	r.store.mu.Lock()
	delete(r.store.listeners, r.id)
	r.store.mu.Unlock()
}

type memOp struct {
	collection string
	id         string
	data       json.RawMessage
	delete     bool
	encodeErr  error
}

type memBatch struct {
	store *MemStore
	ops   []memOp
}

func (b *memBatch) Set(collection, id string, data any) {
	raw, err := json.Marshal(data)
	b.ops = append(b.ops, memOp{collection: collection, id: id, data: raw, encodeErr: err})
}

func (b *memBatch) Delete(collection, id string) {
	b.ops = append(b.ops, memOp{collection: collection, id: id, delete: true})
}

func (b *memBatch) Len() int {
	return len(b.ops)
}

func (b *memBatch) Commit(ctx context.Context) error {
	if len(b.ops) > MaxBatchOps {
		return fmt.Errorf("batch of %d ops exceeds ceiling of %d", len(b.ops), MaxBatchOps)
	}
	m := b.store
	m.mu.Lock()
	if m.failAfter >= 0 && m.commits >= m.failAfter {
		err := m.failErr
		m.mu.Unlock()
		if err == nil {
			err = fmt.Errorf("simulated commit failure")
		}
		return err
	}
	touched := map[string]bool{}
	for _, op := range b.ops {
		if op.encodeErr != nil {
			m.mu.Unlock()
			return fmt.Errorf("encoding document %s/%s: %w", op.collection, op.id, op.encodeErr)
		}
		if op.delete {
			delete(m.collections[op.collection], op.id)
		} else {
			if err := m.setLocked(op.collection, op.id, op.data, false); err != nil {
				m.mu.Unlock()
				return err
			}
		}
		touched[op.collection] = true
	}
	m.commits++
	var pending []pendingDelivery
	for collection := range touched {
		pending = append(pending, m.snapshotListenersLocked(collection)...)
	}
	m.mu.Unlock()
	deliver(pending)
	return nil
}

func (m *MemStore) setLocked(collection, id string, raw json.RawMessage, merge bool) error {
	docs, ok := m.collections[collection]
	if !ok {
		docs = map[string]json.RawMessage{}
		m.collections[collection] = docs
	}
	if merge {
		if existing, ok := docs[id]; ok {
			merged, err := mergeJSON(existing, raw)
			if err != nil {
				return err
			}
			raw = merged
		}
	}
	docs[id] = raw
	return nil
}

func (m *MemStore) queryLocked(collection string, filter Filter) []Document {
	var out []Document
	for id, raw := range m.collections[collection] {
		if !matches(raw, filter) {
			continue
		}
		out = append(out, Document{ID: id, Data: append(json.RawMessage(nil), raw...)})
	}
	return out
}

type pendingDelivery struct {
	handler Handler
	docs    []Document
}

func (m *MemStore) snapshotListenersLocked(collection string) []pendingDelivery {
	var pending []pendingDelivery
	for _, l := range m.listeners {
		if l.collection != collection {
			continue
		}
		pending = append(pending, pendingDelivery{handler: l.handler, docs: m.queryLocked(collection, l.filter)})
	}
	return pending
}

// deliver runs outside the store lock so handlers may call back into the
// store without deadlocking.
func deliver(pending []pendingDelivery) {
	for _, p := range pending {
		p.handler(p.docs)
	}
}

func matches(raw json.RawMessage, filter Filter) bool {
	if filter.Field == "" {
		return true
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	got, ok := fields[filter.Field]
	if !ok {
		return false
	}
	want, err := json.Marshal(filter.Value)
	if err != nil {
		return false
	}
	return bytes.Equal(bytes.TrimSpace(got), bytes.TrimSpace(want))
}

func mergeJSON(existing, update json.RawMessage) (json.RawMessage, error) {
	var base map[string]json.RawMessage
	if err := json.Unmarshal(existing, &base); err != nil {
		return nil, err
	}
	var overlay map[string]json.RawMessage
	if err := json.Unmarshal(update, &overlay); err != nil {
		return nil, err
	}
	for k, v := range overlay {
		base[k] = v
	}
	return json.Marshal(base)
}
