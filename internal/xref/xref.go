// Package xref joins cached appointments to the users and services they
// reference, and filters cached records for the dashboard search boxes.
package xref

import (
	"github.com/harentsoaR/clinic-portal/internal/cache"
	"github.com/harentsoaR/clinic-portal/internal/models"
	"github.com/harentsoaR/clinic-portal/internal/store"
)

// UnknownDoctor is shown when an appointment's doctor is not in the snapshot.
const UnknownDoctor = "Unknown Doctor"

// History is a patient's appointments with the doctors and services they reference.
type History struct {
	Appointments []models.Appointment `json:"appointments"`
	Doctors      []models.User        `json:"doctors"`
	Services     []models.Service     `json:"services"`
}

// Visit is one appointment with its references resolved. Doctor and Service
// stay nil when the referenced id is absent.
type Visit struct {
	Appointment models.Appointment `json:"appointment"`
	Doctor      *models.User       `json:"doctor,omitempty"`
	Service     *models.Service    `json:"service,omitempty"`
	DoctorName  string             `json:"doctorName"`
}

func decode[T any](snap *cache.Snapshot, collection string) ([]T, error) {
	return store.DecodeAll[T](snap.Collection(collection))
}

// HistoryOf collects the appointments of patientID and every doctor and
// service they reference. Missing references yield no match.
func HistoryOf(snap *cache.Snapshot, patientID string) (History, error) {
	appts, err := decode[models.Appointment](snap, store.Appointments)
	if err != nil {
		return History{}, err
	}
	h := History{Appointments: []models.Appointment{}, Doctors: []models.User{}, Services: []models.Service{}}
	doctorIDs := map[string]bool{}
	serviceIDs := map[string]bool{}
	for _, a := range appts {
		if a.PatientID != patientID {
			continue
		}
		h.Appointments = append(h.Appointments, a)
		if a.DoctorID != "" {
			doctorIDs[a.DoctorID] = true
		}
		serviceIDs[a.ServiceID] = true
	}

	users, err := decode[models.User](snap, store.Users)
	if err != nil {
		return History{}, err
	}
	for _, u := range users {
		if doctorIDs[u.ID] {
			h.Doctors = append(h.Doctors, u)
		}
	}
	services, err := decode[models.Service](snap, store.Services)
	if err != nil {
		return History{}, err
	}
	for _, s := range services {
		if serviceIDs[s.ID] {
			h.Services = append(h.Services, s)
		}
	}
	return h, nil
}

// Visits resolves every appointment of patientID.
func Visits(snap *cache.Snapshot, patientID string) ([]Visit, error) {
	h, err := HistoryOf(snap, patientID)
	if err != nil {
		return nil, err
	}
	out := make([]Visit, 0, len(h.Appointments))
	for _, a := range h.Appointments {
		out = append(out, join(a, h.Doctors, h.Services))
	}
	return out, nil
}

// Resolve joins a single appointment against the snapshot.
func Resolve(snap *cache.Snapshot, a models.Appointment) (Visit, error) {
	users, err := decode[models.User](snap, store.Users)
	if err != nil {
		return Visit{}, err
	}
	services, err := decode[models.Service](snap, store.Services)
	if err != nil {
		return Visit{}, err
	}
	return join(a, users, services), nil
}

func join(a models.Appointment, users []models.User, services []models.Service) Visit {
	v := Visit{Appointment: a, DoctorName: UnknownDoctor}
	for i := range users {
		if a.DoctorID != "" && users[i].ID == a.DoctorID {
			v.Doctor = &users[i]
			v.DoctorName = users[i].FullName()
			break
		}
	}
	for i := range services {
		if services[i].ID == a.ServiceID {
			v.Service = &services[i]
			break
		}
	}
	return v
}
