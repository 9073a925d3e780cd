// Package cache holds the per-session snapshot of the collections a dashboard
// reads, loaded in one batch and patched locally after every write.
package cache

import (
	"reflect"

	"github.com/harentsoaR/clinic-portal/internal/store"
)

// Update returns docs with the entry whose id matches shallow-merged with
// patch. Every other entry is returned as the same value.
func Update(docs []store.Document, id string, patch store.Fields) []store.Document {
	out := make([]store.Document, len(docs))
	for i, d := range docs {
		if d.ID == id {
			d = merge(d, patch)
		}
		out[i] = d
	}
	return out
}

// UpdateWhere patches every entry whose field equals value.
func UpdateWhere(docs []store.Document, field string, value any, patch store.Fields) []store.Document {
	out := make([]store.Document, len(docs))
	for i, d := range docs {
		if v, ok := d.Fields[field]; ok && reflect.DeepEqual(v, value) {
			d = merge(d, patch)
		}
		out[i] = d
	}
	return out
}

// Remove filters out the entry with id.
func Remove(docs []store.Document, id string) []store.Document {
	out := make([]store.Document, 0, len(docs))
	for _, d := range docs {
		if d.ID != id {
			out = append(out, d)
		}
	}
	return out
}

// Append adds doc, replacing an entry with the same id in place.
func Append(docs []store.Document, doc store.Document) []store.Document {
	out := make([]store.Document, 0, len(docs)+1)
	replaced := false
	for _, d := range docs {
		if d.ID == doc.ID {
			d, replaced = doc, true
		}
		out = append(out, d)
	}
	if !replaced {
		out = append(out, doc)
	}
	return out
}

// Insert places doc ahead of the first entry it sorts before, keeping an
// ordered slice ordered. An entry with the same id is dropped first.
func Insert(docs []store.Document, doc store.Document, before func(a, b store.Document) bool) []store.Document {
	docs = Remove(docs, doc.ID)
	out := make([]store.Document, 0, len(docs)+1)
	placed := false
	for _, d := range docs {
		if !placed && before(doc, d) {
			out = append(out, doc)
			placed = true
		}
		out = append(out, d)
	}
	if !placed {
		out = append(out, doc)
	}
	return out
}

func merge(d store.Document, patch store.Fields) store.Document {
	f := d.Fields.Clone()
	for k, v := range patch {
		f[k] = v
	}
	return store.Document{ID: d.ID, Fields: f}
}
