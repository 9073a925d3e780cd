package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harentsoaR/clinic-portal/internal/apperr"
	"github.com/harentsoaR/clinic-portal/internal/identity"
	"github.com/harentsoaR/clinic-portal/internal/routing"
	"github.com/harentsoaR/clinic-portal/internal/services"
	"github.com/harentsoaR/clinic-portal/internal/session"
	"github.com/harentsoaR/clinic-portal/internal/store"
)

type RegisterUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	services.Profile
}

// RegisterUser creates the identity and its profile, then signs it in.
func (h *Handler) RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Validation("Please fill in all required fields."))
		return
	}

	id, err := h.Accounts.RegisterWithPassword(c.Request.Context(), req.Email, req.Password, req.Profile)
	if err != nil {
		h.fail(c, err)
		return
	}
	sess, err := h.Provider.SignIn(c.Request.Context(), *id, true)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": sess, "view": routing.ViewPatient.Path()})
}

func (h *Handler) Login(c *gin.Context) {
	var loginReq struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&loginReq); err != nil {
		h.badRequest(c)
		return
	}

	sess, err := h.Provider.Authenticate(c.Request.Context(), loginReq.Email, loginReq.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondSession(c, sess)
}

// LoginFederated signs in with a Google ID token. A first sign-in has no
// profile yet and is sent to POST /api/profile.
func (h *Handler) LoginFederated(c *gin.Context) {
	var req struct {
		IDToken string `json:"idToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}

	sess, err := h.Provider.AuthenticateFederated(c.Request.Context(), req.IDToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondSession(c, sess)
}

func (h *Handler) respondSession(c *gin.Context, sess *identity.Session) {
	role, err := h.Sessions.ResolveRole(c.Request.Context(), sess.Identity.ID)
	if err != nil && !errors.Is(err, session.ErrNoProfile) {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":         sess,
		"profileComplete": err == nil,
		"view":            routing.Route(true, role, role.IsStaff()).Path(),
	})
}

func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	if err := h.Provider.SendPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the email is registered, a reset link has been sent."})
}

func (h *Handler) ConfirmPasswordReset(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	if err := h.Provider.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// GetSession reports the session flags, the role read from the store and the
// view the client should show.
func (h *Handler) GetSession(c *gin.Context) {
	st, err := h.Sessions.State(c.Request.Context(), sessionID(c))
	if err != nil {
		h.fail(c, apperr.Wrap(apperr.KindTransient, "Session storage is unavailable. Please try again.", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session": st,
		"view":    routing.Route(st.LoggedIn, st.Role, st.Admin).Path(),
	})
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.Provider.SignOut(c.Request.Context(), identityID(c), sessionID(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out", "view": routing.ViewLanding.Path()})
}

// CompleteProfile writes the users and patients documents of a federated
// identity that signed in for the first time.
func (h *Handler) CompleteProfile(c *gin.Context) {
	var p services.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		h.fail(c, apperr.Validation("Please fill in all required fields."))
		return
	}

	ctx := c.Request.Context()
	id := identityID(c)
	_, err := h.Sessions.ResolveRole(ctx, id)
	switch {
	case err == nil:
		h.fail(c, apperr.Conflict("Profile already completed"))
		return
	case !errors.Is(err, session.ErrNoProfile):
		h.fail(c, err)
		return
	}

	doc, err := h.Store.GetDocument(ctx, store.Identities, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	email, _ := doc.Fields["email"].(string)
	if err := h.Accounts.Register(ctx, id, email, p); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Sessions.Refresh(ctx, sessionID(c), id); err != nil {
		h.Log.Warn("session not refreshed after profile completion", zap.String("identity_id", id), zap.Error(err))
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Profile created", "view": routing.ViewPatient.Path()})
}
