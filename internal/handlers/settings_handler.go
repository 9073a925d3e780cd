package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harentsoaR/clinic-portal/internal/forms"
	"github.com/harentsoaR/clinic-portal/internal/models"
	"github.com/harentsoaR/clinic-portal/internal/store"
)

// target is the user a settings form edits: the :id path parameter on the
// staff patient routes, the caller otherwise.
func target(c *gin.Context) string {
	if id := c.Param("id"); id != "" {
		return id
	}
	return identityID(c)
}

func (h *Handler) GetPersonalInfo(c *gin.Context) {
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	draft, err := forms.OpenPersonal(snap, target(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handler) UpdatePersonalInfo(c *gin.Context) {
	var draft forms.PersonalInfo
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.badRequest(c)
		return
	}
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondOutcome(c, h.Forms.SubmitPersonal(c.Request.Context(), snap, target(c), draft))
}

func (h *Handler) GetContactInfo(c *gin.Context) {
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	draft, err := forms.OpenContact(snap, target(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handler) UpdateContactInfo(c *gin.Context) {
	var draft forms.ContactInfo
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.badRequest(c)
		return
	}
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondOutcome(c, h.Forms.SubmitContact(c.Request.Context(), snap, identityID(c), target(c), draft))
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var draft forms.PasswordChange
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.badRequest(c)
		return
	}
	h.respondOutcome(c, h.Forms.SubmitPassword(c.Request.Context(), identityID(c), draft))
}

func (h *Handler) RequestAccountDeletion(c *gin.Context) {
	var draft forms.DeletionRequest
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.badRequest(c)
		return
	}
	h.respondOutcome(c, h.Forms.RequestDeletion(c.Request.Context(), identityID(c), draft))
}

// ConfirmAccountDeletion runs the cascade and ends the session once it succeeded.
func (h *Handler) ConfirmAccountDeletion(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	out := h.Forms.ConfirmDeletion(c.Request.Context(), identityID(c), req.Token)
	if out.Status == forms.StatusSuccess {
		if err := h.Provider.SignOut(c.Request.Context(), identityID(c), sessionID(c)); err != nil {
			h.Log.Warn("sign-out after deletion failed", zap.String("identity_id", identityID(c)), zap.Error(err))
		}
	}
	h.respondOutcome(c, out)
}

// PromotePatient turns a patient into staff and applies the same change to
// the staff snapshot.
func (h *Handler) PromotePatient(c *gin.Context) {
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	id := c.Param("id")
	staff, err := h.Accounts.Promote(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	snap.Patch(store.Users, id, store.Fields{models.FieldUserRole: string(models.RoleStaff)})
	snap.Add(store.Staffs, staff)
	snap.Delete(store.Patients, id)
	c.JSON(http.StatusOK, gin.H{"message": "Patient promoted to staff", "staff": staff.Fields})
}

func (h *Handler) UpdateSchedule(c *gin.Context) {
	var draft forms.ScheduleForm
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.badRequest(c)
		return
	}
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondOutcome(c, h.Forms.SubmitSchedule(c.Request.Context(), snap, c.Param("id"), draft))
}
