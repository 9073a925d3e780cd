package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harentsoaR/clinic-portal/internal/models"
	"github.com/harentsoaR/clinic-portal/internal/store"
)

type OpKind string

const (
	OpRegister OpKind = "register"
	OpPromote  OpKind = "promote"
	OpDelete   OpKind = "delete_account"
)

const (
	opPending  = "pending"
	opComplete = "complete"
)

// Operation is a multi-document write recorded before its first sub-write
// and completed after its last one.
type Operation struct {
	ID        string     `bson:"_id,omitempty"`
	Kind      OpKind     `bson:"kind"`
	SubjectID string     `bson:"subjectId"`
	Status    string     `bson:"status"`
	Payload   *opPayload `bson:"payload,omitempty"`
	Attempts  int        `bson:"attempts"`
	LastError string     `bson:"lastError,omitempty"`
	CreatedAt time.Time  `bson:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt"`
}

// opPayload carries what a replay cannot read back from the store.
type opPayload struct {
	User    *models.User    `bson:"user,omitempty"`
	Patient *models.Patient `bson:"patient,omitempty"`
}

// Journal persists operations in the operations collection.
type Journal struct {
	store store.Store
	now   func() time.Time
}

func NewJournal(s store.Store) *Journal {
	return &Journal{store: s, now: time.Now}
}

func (j *Journal) Begin(ctx context.Context, kind OpKind, subjectID string, payload *opPayload) (string, error) {
	now := j.now().UTC()
	op := Operation{
		ID:        uuid.NewString(),
		Kind:      kind,
		SubjectID: subjectID,
		Status:    opPending,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	fields, err := store.Encode(op)
	if err != nil {
		return "", err
	}
	if _, err := j.store.CreateDocument(ctx, store.Operations, op.ID, fields); err != nil {
		return "", fmt.Errorf("journal: begin %s %s: %w", kind, subjectID, err)
	}
	return op.ID, nil
}

func (j *Journal) Complete(ctx context.Context, opID string) error {
	err := j.store.UpdateDocument(ctx, store.Operations, opID, store.Fields{
		"status":    opComplete,
		"updatedAt": j.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("journal: complete %s: %w", opID, err)
	}
	return nil
}

// Failed records a failed attempt; the operation stays pending.
func (j *Journal) Failed(ctx context.Context, op Operation, cause error) error {
	return j.store.UpdateDocument(ctx, store.Operations, op.ID, store.Fields{
		"attempts":  op.Attempts + 1,
		"lastError": cause.Error(),
		"updatedAt": j.now().UTC(),
	})
}

// Pending returns pending operations created before cutoff.
func (j *Journal) Pending(ctx context.Context, cutoff time.Time) ([]Operation, error) {
	docs, err := j.store.Query(ctx, store.Operations, store.Query{Field: "status", Equals: opPending, OrderBy: "createdAt"})
	if err != nil {
		return nil, fmt.Errorf("journal: list pending: %w", err)
	}
	ops, err := store.DecodeAll[Operation](docs)
	if err != nil {
		return nil, err
	}
	out := ops[:0]
	for _, op := range ops {
		if op.CreatedAt.Before(cutoff) {
			out = append(out, op)
		}
	}
	return out, nil
}
