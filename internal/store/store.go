// Package store is the document-store boundary: collections of documents
// addressed by id, read whole or by a single-field equality query.
package store

import (
	"context"
	"errors"
)

// Collection names of the persisted layout.
const (
	Users        = "users"
	Patients     = "patients"
	Staffs       = "staffs"
	Services     = "services"
	Appointments = "appointment"
	Identities   = "identities"
	Operations   = "operations"
)

// IDField addresses the document id in a Query.
const IDField = "_id"

var (
	ErrNotFound = errors.New("store: document not found")
	ErrExists   = errors.New("store: document already exists")
)

// Fields is a flat or nested set of stored fields, keyed by stored name.
type Fields map[string]any

// Clone returns a shallow copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

type Document struct {
	ID     string `json:"id"`
	Fields Fields `json:"fields"`
}

// Query selects documents whose Field equals Equals, optionally ordered.
type Query struct {
	Field      string
	Equals     any
	OrderBy    string
	Descending bool
}

// Store is implemented by the MongoDB and in-memory backends. Every call is
// fallible; none of them spans more than one document.
type Store interface {
	// GetDocument returns ErrNotFound when the document is absent.
	GetDocument(ctx context.Context, collection, id string) (Document, error)
	ListCollection(ctx context.Context, collection string) ([]Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	// CreateDocument generates an id when id is empty and returns ErrExists
	// when the id is taken.
	CreateDocument(ctx context.Context, collection, id string, fields Fields) (string, error)
	// SetDocument upserts with full replacement.
	SetDocument(ctx context.Context, collection, id string, fields Fields) error
	// UpdateDocument merges patch into an existing document; ErrNotFound when absent.
	UpdateDocument(ctx context.Context, collection, id string, patch Fields) error
	// DeleteDocument succeeds when the document is already gone.
	DeleteDocument(ctx context.Context, collection, id string) error
}
