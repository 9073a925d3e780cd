package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/clinic-portal/internal/services"
	"github.com/harentsoaR/clinic-portal/internal/xref"
)

// CreateAppointment books a pending appointment for the calling patient.
func (h *Handler) CreateAppointment(c *gin.Context) {
	var req services.Booking
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	apt, err := h.Appointments.Book(c.Request.Context(), snap, identityID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	visit, err := xref.Resolve(snap, apt)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, visit)
}

// UpdateAppointment assigns a doctor, reschedules or changes the status (staff only).
func (h *Handler) UpdateAppointment(c *gin.Context) {
	var req services.AppointmentUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	apt, err := h.Appointments.Update(c.Request.Context(), snap, c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment updated successfully", "appointment": apt})
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	apt, err := h.Appointments.Cancel(c.Request.Context(), snap, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment cancelled successfully", "appointment": apt})
}
