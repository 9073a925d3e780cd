package store

import (
	"context"
	"time"
)

// Observer receives one observation per remote call.
type Observer interface {
	ObserveStoreCall(op, collection string, err error, elapsed time.Duration)
}

type instrumented struct {
	next Store
	obs  Observer
}

// Instrument wraps s so every call is reported to obs. A nil obs returns s.
func Instrument(s Store, obs Observer) Store {
	if obs == nil {
		return s
	}
	return &instrumented{next: s, obs: obs}
}

func (i *instrumented) observe(op, collection string, start time.Time, err error) {
	i.obs.ObserveStoreCall(op, collection, err, time.Since(start))
}

func (i *instrumented) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	start := time.Now()
	doc, err := i.next.GetDocument(ctx, collection, id)
	if err == ErrNotFound {
		i.observe(OpGet, collection, start, nil)
	} else {
		i.observe(OpGet, collection, start, err)
	}
	return doc, err
}

func (i *instrumented) ListCollection(ctx context.Context, collection string) ([]Document, error) {
	start := time.Now()
	docs, err := i.next.ListCollection(ctx, collection)
	i.observe(OpList, collection, start, err)
	return docs, err
}

func (i *instrumented) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	start := time.Now()
	docs, err := i.next.Query(ctx, collection, q)
	i.observe(OpQuery, collection, start, err)
	return docs, err
}

func (i *instrumented) CreateDocument(ctx context.Context, collection, id string, fields Fields) (string, error) {
	start := time.Now()
	id, err := i.next.CreateDocument(ctx, collection, id, fields)
	i.observe(OpCreate, collection, start, err)
	return id, err
}

func (i *instrumented) SetDocument(ctx context.Context, collection, id string, fields Fields) error {
	start := time.Now()
	err := i.next.SetDocument(ctx, collection, id, fields)
	i.observe(OpSet, collection, start, err)
	return err
}

func (i *instrumented) UpdateDocument(ctx context.Context, collection, id string, patch Fields) error {
	start := time.Now()
	err := i.next.UpdateDocument(ctx, collection, id, patch)
	i.observe(OpUpdate, collection, start, err)
	return err
}

func (i *instrumented) DeleteDocument(ctx context.Context, collection, id string) error {
	start := time.Now()
	err := i.next.DeleteDocument(ctx, collection, id)
	i.observe(OpDelete, collection, start, err)
	return err
}
