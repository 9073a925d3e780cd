package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/harentsoaR/clinic-portal/internal/apperr"
	"github.com/harentsoaR/clinic-portal/internal/cache"
	"github.com/harentsoaR/clinic-portal/internal/events"
	"github.com/harentsoaR/clinic-portal/internal/forms"
	"github.com/harentsoaR/clinic-portal/internal/models"
	"github.com/harentsoaR/clinic-portal/internal/store"
)

type Booking struct {
	ServiceID string `json:"serviceId" binding:"required"`
	Date      string `json:"date" binding:"required,datetime=2006-01-02"`
	Time      string `json:"time" binding:"required,datetime=15:04"`
	Comment   string `json:"comment"`
}

type AppointmentUpdate struct {
	DoctorID string `json:"doctorId"`
	Date     string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Time     string `json:"time" binding:"omitempty,datetime=15:04"`
	Status   string `json:"status" binding:"omitempty,oneof=Pending Scheduled Completed Cancelled"`
}

type Appointments struct {
	store  store.Store
	notify *NotificationService
	events *events.Publisher
	log    *zap.Logger
}

func NewAppointments(s store.Store, notify *NotificationService, pub *events.Publisher, log *zap.Logger) *Appointments {
	return &Appointments{store: s, notify: notify, events: pub, log: log}
}

func (a *Appointments) get(ctx context.Context, collection, id, what string) (store.Document, error) {
	doc, err := a.store.GetDocument(ctx, collection, id)
	if errors.Is(err, store.ErrNotFound) {
		return doc, apperr.NotFound(what + " not found")
	}
	return doc, err
}

// newerVisit orders appointments by date then time, latest first, matching
// the order snapshots are loaded in.
func newerVisit(a, b store.Document) bool {
	ad, _ := a.Fields[models.FieldAppointmentDate].(string)
	bd, _ := b.Fields[models.FieldAppointmentDate].(string)
	if ad != bd {
		return ad > bd
	}
	at, _ := a.Fields[models.FieldAppointmentTime].(string)
	bt, _ := b.Fields[models.FieldAppointmentTime].(string)
	return at > bt
}

// Book creates a pending appointment for patientID.
func (a *Appointments) Book(ctx context.Context, snap *cache.Snapshot, patientID string, b Booking) (models.Appointment, error) {
	svcDoc, err := a.get(ctx, store.Services, b.ServiceID, "Service")
	if err != nil {
		return models.Appointment{}, err
	}
	apt := models.Appointment{
		PatientID: patientID,
		ServiceID: b.ServiceID,
		Date:      b.Date,
		Time:      b.Time,
		Comment:   b.Comment,
		Status:    models.StatusPending,
	}
	fields, err := store.Encode(apt)
	if err != nil {
		return models.Appointment{}, err
	}
	apt.ID, err = a.store.CreateDocument(ctx, store.Appointments, "", fields)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("appointments: book for %s: %w", patientID, err)
	}
	if snap != nil {
		snap.Insert(store.Appointments, store.Document{ID: apt.ID, Fields: fields}, newerVisit)
	}

	a.log.Info("appointment booked", zap.String("appointment_id", apt.ID), zap.String("patient_id", patientID))
	a.events.Emit(ctx, events.AppointmentBooked, apt.ID, apt)
	if patient, ok := a.patient(ctx, patientID); ok {
		var svc models.Service
		if err := store.Decode(svcDoc, &svc); err == nil {
			a.notify.SendAppointmentConfirmationSMS(patient, svc, apt)
		}
	}
	return apt, nil
}

// Update applies a staff edit. Assigning a doctor to a pending appointment
// schedules it unless a status is given explicitly.
func (a *Appointments) Update(ctx context.Context, snap *cache.Snapshot, id string, u AppointmentUpdate) (models.Appointment, error) {
	doc, err := a.get(ctx, store.Appointments, id, "Appointment")
	if err != nil {
		return models.Appointment{}, err
	}
	var current models.Appointment
	if err := store.Decode(doc, &current); err != nil {
		return models.Appointment{}, err
	}

	draft := store.Fields{}
	if u.DoctorID != "" {
		dd, err := a.get(ctx, store.Users, u.DoctorID, "Doctor")
		if err != nil {
			return models.Appointment{}, err
		}
		if !models.ParseRole(fmt.Sprint(dd.Fields[models.FieldUserRole])).IsStaff() {
			return models.Appointment{}, apperr.Validation("The assigned doctor must be a staff member")
		}
		draft[models.FieldAppointmentDoctorID] = u.DoctorID
		if u.Status == "" && current.Status == models.StatusPending {
			draft[models.FieldAppointmentStatus] = models.StatusScheduled
		}
	}
	if u.Date != "" {
		draft[models.FieldAppointmentDate] = u.Date
	}
	if u.Time != "" {
		draft[models.FieldAppointmentTime] = u.Time
	}
	if u.Status != "" {
		if !models.ValidStatus(u.Status) {
			return models.Appointment{}, apperr.Validation("Unknown appointment status")
		}
		draft[models.FieldAppointmentStatus] = u.Status
	}

	patch := forms.Diff(doc.Fields, draft)
	if len(patch) == 0 {
		return current, nil
	}
	if err := a.store.UpdateDocument(ctx, store.Appointments, id, patch); err != nil {
		return models.Appointment{}, fmt.Errorf("appointments: update %s: %w", id, err)
	}
	merged := doc.Fields.Clone()
	for k, v := range patch {
		merged[k] = v
	}
	if snap != nil {
		snap.Patch(store.Appointments, id, patch)
		_, moved := patch[models.FieldAppointmentDate]
		if _, ok := patch[models.FieldAppointmentTime]; ok {
			moved = true
		}
		if cached, ok := snap.Find(store.Appointments, id); ok && moved {
			snap.Insert(store.Appointments, cached, newerVisit)
		}
	}
	var updated models.Appointment
	if err := store.Decode(store.Document{ID: id, Fields: merged}, &updated); err != nil {
		return models.Appointment{}, err
	}
	a.events.Emit(ctx, events.AppointmentUpdated, id, updated)
	return updated, nil
}

// Cancel marks an appointment cancelled and notifies the patient.
func (a *Appointments) Cancel(ctx context.Context, snap *cache.Snapshot, id string) (models.Appointment, error) {
	doc, err := a.get(ctx, store.Appointments, id, "Appointment")
	if err != nil {
		return models.Appointment{}, err
	}
	var apt models.Appointment
	if err := store.Decode(doc, &apt); err != nil {
		return models.Appointment{}, err
	}
	if apt.Status == models.StatusCancelled {
		return apt, nil
	}
	patch := store.Fields{models.FieldAppointmentStatus: models.StatusCancelled}
	if err := a.store.UpdateDocument(ctx, store.Appointments, id, patch); err != nil {
		return models.Appointment{}, fmt.Errorf("appointments: cancel %s: %w", id, err)
	}
	if snap != nil {
		snap.Patch(store.Appointments, id, patch)
	}
	apt.Status = models.StatusCancelled

	a.log.Info("appointment cancelled", zap.String("appointment_id", id))
	a.events.Emit(ctx, events.AppointmentCancelled, id, apt)
	if patient, ok := a.patient(ctx, apt.PatientID); ok {
		var svc models.Service
		if sd, err := a.store.GetDocument(ctx, store.Services, apt.ServiceID); err == nil {
			_ = store.Decode(sd, &svc)
		}
		a.notify.SendAppointmentCancelledSMS(patient, svc, apt)
	}
	return apt, nil
}

// patient reads the patient's user document for notifications. Failures are
// logged only.
func (a *Appointments) patient(ctx context.Context, id string) (models.User, bool) {
	doc, err := a.store.GetDocument(ctx, store.Users, id)
	if err != nil {
		a.log.Warn("patient lookup for notification failed", zap.String("patient_id", id), zap.Error(err))
		return models.User{}, false
	}
	var u models.User
	if err := store.Decode(doc, &u); err != nil {
		a.log.Warn("patient decode for notification failed", zap.String("patient_id", id), zap.Error(err))
		return models.User{}, false
	}
	return u, true
}
