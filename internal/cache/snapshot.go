package cache

import (
	"sync"
	"time"

	"github.com/harentsoaR/clinic-portal/internal/store"
)

// Snapshot is the loaded state of one dashboard session. It is safe for
// concurrent use; readers get slices that later patches never mutate.
type Snapshot struct {
	mu          sync.RWMutex
	collections map[string][]store.Document
}

func NewSnapshot(collections map[string][]store.Document) *Snapshot {
	if collections == nil {
		collections = map[string][]store.Document{}
	}
	return &Snapshot{collections: collections}
}

func (s *Snapshot) Collection(name string) []store.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collections[name]
}

// Has reports whether the collection was part of the load.
func (s *Snapshot) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok
}

func (s *Snapshot) Find(collection, id string) (store.Document, bool) {
	for _, d := range s.Collection(collection) {
		if d.ID == id {
			return d, true
		}
	}
	return store.Document{}, false
}

func (s *Snapshot) apply(collection string, fn func([]store.Document) []store.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection]; !ok {
		return
	}
	s.collections[collection] = fn(s.collections[collection])
}

// Patch applies Update to a loaded collection. Collections not part of the
// load are left alone.
func (s *Snapshot) Patch(collection, id string, patch store.Fields) {
	s.apply(collection, func(d []store.Document) []store.Document { return Update(d, id, patch) })
}

func (s *Snapshot) PatchWhere(collection, field string, value any, patch store.Fields) {
	s.apply(collection, func(d []store.Document) []store.Document { return UpdateWhere(d, field, value, patch) })
}

func (s *Snapshot) Delete(collection, id string) {
	s.apply(collection, func(d []store.Document) []store.Document { return Remove(d, id) })
}

func (s *Snapshot) Add(collection string, doc store.Document) {
	s.apply(collection, func(d []store.Document) []store.Document { return Append(d, doc) })
}

func (s *Snapshot) Insert(collection string, doc store.Document, before func(a, b store.Document) bool) {
	s.apply(collection, func(d []store.Document) []store.Document { return Insert(d, doc, before) })
}

// Registry keeps one snapshot per session and dashboard surface. A session's
// snapshots expire ttl after its last Put; zero ttl keeps them until Drop.
type Registry struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]*entry
}

type entry struct {
	surfaces map[string]*Snapshot
	expires  time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{ttl: ttl, now: time.Now, items: map[string]*entry{}}
}

func (r *Registry) expired(e *entry) bool {
	return r.ttl > 0 && !r.now().Before(e.expires)
}

func (r *Registry) Get(sessionID, surface string) (*Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[sessionID]
	if !ok {
		return nil, false
	}
	if r.expired(e) {
		delete(r.items, sessionID)
		return nil, false
	}
	s, ok := e.surfaces[surface]
	return s, ok
}

func (r *Registry) Put(sessionID, surface string, s *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[sessionID]
	if !ok || r.expired(e) {
		e = &entry{surfaces: map[string]*Snapshot{}}
		r.items[sessionID] = e
	}
	e.surfaces[surface] = s
	e.expires = r.now().Add(r.ttl)
}

// Drop forgets every snapshot of the session.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, sessionID)
}

// Evict drops every expired session and returns how many were dropped.
func (r *Registry) Evict() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.items {
		if r.expired(e) {
			delete(r.items, id)
			n++
		}
	}
	return n
}

// Len is the number of sessions holding snapshots.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
