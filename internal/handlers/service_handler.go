package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/clinic-portal/internal/forms"
	"github.com/harentsoaR/clinic-portal/internal/xref"
)

func (h *Handler) GetServices(c *gin.Context) {
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	services, err := xref.SearchServices(snap, c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, services)
}

func (h *Handler) GetService(c *gin.Context) {
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	draft, err := forms.OpenService(snap, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handler) CreateService(c *gin.Context) {
	var draft forms.ServiceForm
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.badRequest(c)
		return
	}
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondOutcome(c, h.Forms.AddService(c.Request.Context(), snap, draft))
}

func (h *Handler) UpdateService(c *gin.Context) {
	var draft forms.ServiceForm
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.badRequest(c)
		return
	}
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondOutcome(c, h.Forms.UpdateService(c.Request.Context(), snap, c.Param("id"), draft))
}

func (h *Handler) DeleteService(c *gin.Context) {
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondOutcome(c, h.Forms.DeleteService(c.Request.Context(), snap, c.Param("id")))
}
