package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/clinic-portal/internal/apperr"
	"github.com/harentsoaR/clinic-portal/internal/models"
	"github.com/harentsoaR/clinic-portal/internal/store"
	"github.com/harentsoaR/clinic-portal/internal/xref"
)

// PatientDashboard reloads the patient's snapshot and returns the profile,
// resolved appointment history and bookable services.
func (h *Handler) PatientDashboard(c *gin.Context) {
	snap, err := h.reload(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	id := identityID(c)

	var user models.User
	if d, ok := snap.Find(store.Users, id); ok {
		if err := store.Decode(d, &user); err != nil {
			h.fail(c, err)
			return
		}
	}
	var patient *models.Patient
	if d, ok := snap.Find(store.Patients, id); ok {
		patient = &models.Patient{}
		if err := store.Decode(d, patient); err != nil {
			h.fail(c, err)
			return
		}
	}
	visits, err := xref.Visits(snap, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	services, err := xref.SearchServices(snap, "")
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"patient":      patient,
		"appointments": visits,
		"services":     services,
	})
}

// StaffDashboard reloads every collection and returns the tables the staff
// dashboard shows.
func (h *Handler) StaffDashboard(c *gin.Context) {
	snap, err := h.reload(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	patients, err := xref.SearchPatients(snap, "")
	if err != nil {
		h.fail(c, err)
		return
	}
	staff, err := xref.SearchStaff(snap, "")
	if err != nil {
		h.fail(c, err)
		return
	}
	services, err := xref.SearchServices(snap, "")
	if err != nil {
		h.fail(c, err)
		return
	}
	appts, err := store.DecodeAll[models.Appointment](snap.Collection(store.Appointments))
	if err != nil {
		h.fail(c, err)
		return
	}
	visits := make([]xref.Visit, 0, len(appts))
	for _, a := range appts {
		v, err := xref.Resolve(snap, a)
		if err != nil {
			h.fail(c, err)
			return
		}
		visits = append(visits, v)
	}
	c.JSON(http.StatusOK, gin.H{
		"patients":     patients,
		"staff":        staff,
		"services":     services,
		"appointments": visits,
	})
}

func (h *Handler) SearchPatients(c *gin.Context) {
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	rows, err := xref.SearchPatients(snap, c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) SearchStaff(c *gin.Context) {
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	rows, err := xref.SearchStaff(snap, c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// PatientHistory returns a patient's appointments with the doctors and
// services they reference.
func (h *Handler) PatientHistory(c *gin.Context) {
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	id := c.Param("id")
	if _, ok := snap.Find(store.Users, id); !ok {
		h.fail(c, apperr.NotFound("Patient not found"))
		return
	}
	history, err := xref.HistoryOf(snap, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	visits, err := xref.Visits(snap, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history, "visits": visits})
}

// MyAppointments lists the patient's own appointments, newest first.
func (h *Handler) MyAppointments(c *gin.Context) {
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	visits, err := xref.Visits(snap, identityID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, visits)
}
