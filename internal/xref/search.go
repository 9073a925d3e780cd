package xref

import (
	"strings"

	"github.com/harentsoaR/clinic-portal/internal/cache"
	"github.com/harentsoaR/clinic-portal/internal/models"
	"github.com/harentsoaR/clinic-portal/internal/store"
)

// PatientRow is a patient user with its patient record, when loaded.
type PatientRow struct {
	User    models.User     `json:"user"`
	Patient *models.Patient `json:"patient,omitempty"`
}

type StaffRow struct {
	User  models.User   `json:"user"`
	Staff *models.Staff `json:"staff,omitempty"`
}

func contains(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(strings.Join(fields, " ")), q)
}

// SearchPatients matches patient users by full name.
func SearchPatients(snap *cache.Snapshot, query string) ([]PatientRow, error) {
	users, err := decode[models.User](snap, store.Users)
	if err != nil {
		return nil, err
	}
	patients, err := decode[models.Patient](snap, store.Patients)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Patient, len(patients))
	for i := range patients {
		byID[patients[i].ID] = &patients[i]
	}
	out := []PatientRow{}
	for _, u := range users {
		if models.ParseRole(u.Role) != models.RolePatient || !contains(query, u.FullName()) {
			continue
		}
		out = append(out, PatientRow{User: u, Patient: byID[u.ID]})
	}
	return out, nil
}

// SearchStaff matches staff users by full name and email.
func SearchStaff(snap *cache.Snapshot, query string) ([]StaffRow, error) {
	users, err := decode[models.User](snap, store.Users)
	if err != nil {
		return nil, err
	}
	staffs, err := decode[models.Staff](snap, store.Staffs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Staff, len(staffs))
	for i := range staffs {
		byID[staffs[i].ID] = &staffs[i]
	}
	out := []StaffRow{}
	for _, u := range users {
		if !models.ParseRole(u.Role).IsStaff() || !contains(query, u.FullName(), u.Email) {
			continue
		}
		out = append(out, StaffRow{User: u, Staff: byID[u.ID]})
	}
	return out, nil
}

// SearchServices matches services by name, category and price.
func SearchServices(snap *cache.Snapshot, query string) ([]models.Service, error) {
	services, err := decode[models.Service](snap, store.Services)
	if err != nil {
		return nil, err
	}
	out := []models.Service{}
	for _, s := range services {
		if contains(query, s.Name, s.Category, s.Price) {
			out = append(out, s)
		}
	}
	return out, nil
}
