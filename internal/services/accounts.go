// Package services holds the multi-document account sequences, appointment
// booking and outbound notifications.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harentsoaR/clinic-portal/internal/apperr"
	"github.com/harentsoaR/clinic-portal/internal/events"
	"github.com/harentsoaR/clinic-portal/internal/identity"
	"github.com/harentsoaR/clinic-portal/internal/metrics"
	"github.com/harentsoaR/clinic-portal/internal/models"
	"github.com/harentsoaR/clinic-portal/internal/store"
)

// IdentityAdmin is the part of the identity provider account sequences use.
type IdentityAdmin interface {
	CreateIdentity(ctx context.Context, email, password string) (*identity.Identity, error)
	DeleteIdentity(ctx context.Context, identityID string) error
}

// Profile is the registration form.
type Profile struct {
	FirstName    string `json:"firstName" binding:"required"`
	MiddleName   string `json:"middleName"`
	LastName     string `json:"lastName" binding:"required"`
	Address      string `json:"address" binding:"required"`
	MobileNumber string `json:"mobileNumber" binding:"required"`
	DateOfBirth  string `json:"dateOfBirth" binding:"required"`
	Gender       string `json:"gender" binding:"required"`
}

type Accounts struct {
	store   store.Store
	ids     IdentityAdmin
	journal *Journal
	events  *events.Publisher
	metrics *metrics.PortalMetrics
	log     *zap.Logger
}

func NewAccounts(s store.Store, ids IdentityAdmin, pub *events.Publisher, m *metrics.PortalMetrics, log *zap.Logger) *Accounts {
	return &Accounts{store: s, ids: ids, journal: NewJournal(s), events: pub, metrics: m, log: log}
}

// RegisterWithPassword creates the identity and its profile documents.
func (a *Accounts) RegisterWithPassword(ctx context.Context, email, password string, p Profile) (*identity.Identity, error) {
	id, err := a.ids.CreateIdentity(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := a.Register(ctx, id.ID, id.Email, p); err != nil {
		return nil, err
	}
	return id, nil
}

// Register writes the users document with role Patient and the patients
// document, both keyed by identityID.
func (a *Accounts) Register(ctx context.Context, identityID, email string, p Profile) (err error) {
	defer func() { a.metrics.ObserveAccountOp(string(OpRegister), err) }()

	payload := &opPayload{
		User: &models.User{
			Role:         string(models.RolePatient),
			FirstName:    p.FirstName,
			MiddleName:   p.MiddleName,
			LastName:     p.LastName,
			Address:      p.Address,
			MobileNumber: p.MobileNumber,
			Email:        email,
		},
		Patient: &models.Patient{DateOfBirth: p.DateOfBirth, Gender: p.Gender},
	}
	opID, err := a.journal.Begin(ctx, OpRegister, identityID, payload)
	if err != nil {
		return err
	}
	if err := a.register(ctx, identityID, payload); err != nil {
		a.log.Error("registration left pending", zap.String("identity_id", identityID), zap.Error(err))
		return err
	}
	a.complete(ctx, opID)
	a.events.Emit(ctx, events.AccountRegistered, identityID, nil)
	a.log.Info("account registered", zap.String("identity_id", identityID))
	return nil
}

func (a *Accounts) register(ctx context.Context, identityID string, payload *opPayload) error {
	if payload == nil || payload.User == nil || payload.Patient == nil {
		return fmt.Errorf("accounts: register %s: missing payload", identityID)
	}
	userFields, err := store.Encode(payload.User)
	if err != nil {
		return err
	}
	patientFields, err := store.Encode(payload.Patient)
	if err != nil {
		return err
	}
	if err := a.store.SetDocument(ctx, store.Users, identityID, userFields); err != nil {
		return fmt.Errorf("accounts: write user %s: %w", identityID, err)
	}
	if err := a.store.SetDocument(ctx, store.Patients, identityID, patientFields); err != nil {
		return fmt.Errorf("accounts: write patient %s: %w", identityID, err)
	}
	return nil
}

// Promote turns a patient into staff: role first, then the staff record,
// then the patient record is removed. It returns the staff record.
func (a *Accounts) Promote(ctx context.Context, userID string) (staff store.Document, err error) {
	defer func() { a.metrics.ObserveAccountOp(string(OpPromote), err) }()

	doc, err := a.store.GetDocument(ctx, store.Users, userID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Document{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("accounts: read user %s: %w", userID, err)
	}
	var u models.User
	if err := store.Decode(doc, &u); err != nil {
		return store.Document{}, err
	}
	if models.ParseRole(u.Role) != models.RolePatient {
		return store.Document{}, apperr.Conflict("Only patients can be added as staff")
	}

	opID, err := a.journal.Begin(ctx, OpPromote, userID, nil)
	if err != nil {
		return store.Document{}, err
	}
	staff, err = a.promote(ctx, userID)
	if err != nil {
		a.log.Error("promotion left pending", zap.String("user_id", userID), zap.Error(err))
		return store.Document{}, err
	}
	a.complete(ctx, opID)
	a.events.Emit(ctx, events.AccountPromoted, userID, nil)
	a.log.Info("patient promoted to staff", zap.String("user_id", userID))
	return staff, nil
}

func (a *Accounts) promote(ctx context.Context, userID string) (store.Document, error) {
	var staffFields store.Fields
	moved := false
	pdoc, err := a.store.GetDocument(ctx, store.Patients, userID)
	switch {
	case err == nil:
		var p models.Patient
		if err := store.Decode(pdoc, &p); err != nil {
			return store.Document{}, err
		}
		if staffFields, err = store.Encode(models.Staff{DateOfBirth: p.DateOfBirth, Gender: p.Gender}); err != nil {
			return store.Document{}, err
		}
	case errors.Is(err, store.ErrNotFound):
		// Patient record already moved; the staff record must exist.
		sdoc, err := a.store.GetDocument(ctx, store.Staffs, userID)
		if err != nil {
			return store.Document{}, fmt.Errorf("accounts: promote %s: no patient or staff record: %w", userID, err)
		}
		staffFields, moved = sdoc.Fields, true
	default:
		return store.Document{}, fmt.Errorf("accounts: read patient %s: %w", userID, err)
	}

	if err := a.store.UpdateDocument(ctx, store.Users, userID, store.Fields{models.FieldUserRole: string(models.RoleStaff)}); err != nil {
		return store.Document{}, fmt.Errorf("accounts: set role %s: %w", userID, err)
	}
	if !moved {
		if _, err := a.store.CreateDocument(ctx, store.Staffs, userID, staffFields); err != nil && !errors.Is(err, store.ErrExists) {
			return store.Document{}, fmt.Errorf("accounts: create staff %s: %w", userID, err)
		}
	}
	if err := a.store.DeleteDocument(ctx, store.Patients, userID); err != nil {
		return store.Document{}, fmt.Errorf("accounts: delete patient %s: %w", userID, err)
	}
	return store.Document{ID: userID, Fields: staffFields}, nil
}

// DeleteAccount removes the user's appointments, then the patient or staff
// record, then the users document and finally the identity.
func (a *Accounts) DeleteAccount(ctx context.Context, identityID string) (err error) {
	defer func() { a.metrics.ObserveAccountOp(string(OpDelete), err) }()

	opID, err := a.journal.Begin(ctx, OpDelete, identityID, nil)
	if err != nil {
		return err
	}
	if err := a.deleteAccount(ctx, identityID); err != nil {
		a.log.Error("account deletion left pending", zap.String("identity_id", identityID), zap.Error(err))
		return err
	}
	a.complete(ctx, opID)
	a.events.Emit(ctx, events.AccountDeleted, identityID, nil)
	a.log.Info("account deleted", zap.String("identity_id", identityID))
	return nil
}

func (a *Accounts) deleteAccount(ctx context.Context, identityID string) error {
	record := store.Patients
	doc, err := a.store.GetDocument(ctx, store.Users, identityID)
	switch {
	case err == nil:
		if models.ParseRole(fmt.Sprint(doc.Fields[models.FieldUserRole])).IsStaff() {
			record = store.Staffs
		}
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("accounts: read user %s: %w", identityID, err)
	}

	appts, err := a.store.Query(ctx, store.Appointments, store.Query{Field: models.FieldAppointmentPatientID, Equals: identityID})
	if err != nil {
		return fmt.Errorf("accounts: list appointments of %s: %w", identityID, err)
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, appt := range appts {
		g.Go(func() error {
			return a.store.DeleteDocument(gctx, store.Appointments, appt.ID)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("accounts: delete appointments of %s: %w", identityID, err)
	}

	if err := a.store.DeleteDocument(ctx, record, identityID); err != nil {
		return fmt.Errorf("accounts: delete %s %s: %w", record, identityID, err)
	}
	if err := a.store.DeleteDocument(ctx, store.Users, identityID); err != nil {
		return fmt.Errorf("accounts: delete user %s: %w", identityID, err)
	}
	if err := a.ids.DeleteIdentity(ctx, identityID); err != nil {
		return fmt.Errorf("accounts: delete identity %s: %w", identityID, err)
	}
	return nil
}

func (a *Accounts) complete(ctx context.Context, opID string) {
	if err := a.journal.Complete(ctx, opID); err != nil {
		a.log.Warn("operation not marked complete", zap.String("op_id", opID), zap.Error(err))
	}
}

// Sweep replays pending operations older than grace. Every step of every
// sequence is idempotent, so a replay finishes what a failed run started.
func (a *Accounts) Sweep(ctx context.Context, grace time.Duration) (int, error) {
	ops, err := a.journal.Pending(ctx, a.journal.now().Add(-grace))
	if err != nil {
		return 0, err
	}
	done := 0
	for _, op := range ops {
		var err error
		switch op.Kind {
		case OpRegister:
			err = a.register(ctx, op.SubjectID, op.Payload)
		case OpPromote:
			_, err = a.promote(ctx, op.SubjectID)
		case OpDelete:
			err = a.deleteAccount(ctx, op.SubjectID)
		default:
			err = fmt.Errorf("unknown operation kind %q", op.Kind)
		}
		if err != nil {
			a.log.Warn("pending operation replay failed", zap.String("op_id", op.ID), zap.String("kind", string(op.Kind)), zap.Error(err))
			if jerr := a.journal.Failed(ctx, op, err); jerr != nil {
				a.log.Warn("operation attempt not recorded", zap.String("op_id", op.ID), zap.Error(jerr))
			}
			continue
		}
		a.complete(ctx, op.ID)
		done++
	}
	if done > 0 {
		a.log.Info("pending operations replayed", zap.Int("count", done))
	}
	return done, nil
}
