package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Call records one remote call made against a Memory store.
type Call struct {
	Op         string
	Collection string
	ID         string
	Fields     Fields
}

const (
	OpGet    = "get"
	OpList   = "list"
	OpQuery  = "query"
	OpCreate = "create"
	OpSet    = "set"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Memory is an in-process Store. It keeps insertion order and logs every call,
// which makes it the backend for tests and for STORE_DRIVER=memory.
type Memory struct {
	mu    sync.Mutex
	data  map[string]map[string]Fields
	order map[string][]string
	calls []Call

	// Fail, when set, is consulted before every call; a non-nil error aborts it.
	Fail func(op, collection, id string) error
}

func NewMemory() *Memory {
	return &Memory{
		data:  map[string]map[string]Fields{},
		order: map[string][]string{},
	}
}

// Seed writes a document without logging a call.
func (m *Memory) Seed(collection, id string, fields Fields) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(collection, id, fields.Clone())
}

// Calls returns a copy of the call log.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Writes returns the logged create/set/update/delete calls.
func (m *Memory) Writes() []Call {
	var out []Call
	for _, c := range m.Calls() {
		switch c.Op {
		case OpCreate, OpSet, OpUpdate, OpDelete:
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the call log.
func (m *Memory) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *Memory) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpGet, collection, id, nil); err != nil {
		return Document{}, err
	}
	f, ok := m.data[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Fields: f.Clone()}, nil
}

func (m *Memory) ListCollection(ctx context.Context, collection string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpList, collection, "", nil); err != nil {
		return nil, err
	}
	return m.all(collection), nil
}

func (m *Memory) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpQuery, collection, "", Fields{q.Field: q.Equals}); err != nil {
		return nil, err
	}
	var out []Document
	for _, d := range m.all(collection) {
		if q.Field == "" || matches(d, q.Field, q.Equals) {
			out = append(out, d)
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := fmt.Sprint(out[i].Fields[q.OrderBy]), fmt.Sprint(out[j].Fields[q.OrderBy])
			if q.Descending {
				return a > b
			}
			return a < b
		})
	}
	return out, nil
}

func (m *Memory) CreateDocument(ctx context.Context, collection, id string, fields Fields) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		id = NewID()
	}
	if err := m.begin(ctx, OpCreate, collection, id, fields); err != nil {
		return "", err
	}
	if _, ok := m.data[collection][id]; ok {
		return "", ErrExists
	}
	m.put(collection, id, fields.Clone())
	return id, nil
}

func (m *Memory) SetDocument(ctx context.Context, collection, id string, fields Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpSet, collection, id, fields); err != nil {
		return err
	}
	m.put(collection, id, fields.Clone())
	return nil
}

func (m *Memory) UpdateDocument(ctx context.Context, collection, id string, patch Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpUpdate, collection, id, patch); err != nil {
		return err
	}
	f, ok := m.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	merged := f.Clone()
	for k, v := range patch {
		merged[k] = v
	}
	m.data[collection][id] = merged
	return nil
}

func (m *Memory) DeleteDocument(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpDelete, collection, id, nil); err != nil {
		return err
	}
	if _, ok := m.data[collection][id]; !ok {
		return nil
	}
	delete(m.data[collection], id)
	ids := m.order[collection]
	for i, v := range ids {
		if v == id {
			m.order[collection] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) begin(ctx context.Context, op, collection, id string, fields Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var logged Fields
	if fields != nil {
		logged = fields.Clone()
	}
	m.calls = append(m.calls, Call{Op: op, Collection: collection, ID: id, Fields: logged})
	if m.Fail != nil {
		if err := m.Fail(op, collection, id); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) put(collection, id string, fields Fields) {
	if m.data[collection] == nil {
		m.data[collection] = map[string]Fields{}
	}
	if _, ok := m.data[collection][id]; !ok {
		m.order[collection] = append(m.order[collection], id)
	}
	delete(fields, IDField)
	m.data[collection][id] = fields
}

func (m *Memory) all(collection string) []Document {
	out := make([]Document, 0, len(m.order[collection]))
	for _, id := range m.order[collection] {
		out = append(out, Document{ID: id, Fields: m.data[collection][id].Clone()})
	}
	return out
}

func matches(d Document, field string, want any) bool {
	if field == IDField {
		return d.ID == fmt.Sprint(want)
	}
	got, ok := d.Fields[field]
	if !ok {
		return false
	}
	return reflect.DeepEqual(got, want)
}
