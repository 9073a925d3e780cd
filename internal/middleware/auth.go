package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harentsoaR/clinic-portal/internal/apperr"
	"github.com/harentsoaR/clinic-portal/internal/models"
	"github.com/harentsoaR/clinic-portal/internal/routing"
	"github.com/harentsoaR/clinic-portal/internal/session"
	"github.com/harentsoaR/clinic-portal/internal/utils"
)

// Context keys set for downstream handlers.
const (
	IdentityIDKey = "identityID"
	SessionIDKey  = "sessionID"
	RoleKey       = "role"
)

// RoleResolver reads the current role of an identity from the store.
type RoleResolver interface {
	ResolveRole(ctx context.Context, identityID string) (models.Role, error)
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.Status(apperr.Classify(err)), gin.H{
		"error":  apperr.Message(err),
		"notice": apperr.NoticeFor(err),
	})
}

// AuthMiddleware validates the bearer token and requires the session to be
// live in the flag store, so signed-out tokens stop working immediately.
func AuthMiddleware(signer *utils.TokenSigner, flags session.FlagStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, apperr.Unauthorized("Authorization header required"))
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := signer.ValidateJWT(tokenString)
		if err != nil {
			abort(c, apperr.Unauthorized("Invalid token"))
			return
		}

		f, err := flags.Get(c.Request.Context(), claims.SessionID())
		if err != nil {
			abort(c, apperr.Wrap(apperr.KindTransient, "Session storage is unavailable. Please try again.", err))
			return
		}
		if !f.LoggedIn || f.UserID != claims.IdentityID {
			abort(c, apperr.Unauthorized("Session has ended"))
			return
		}

		c.Set(IdentityIDKey, claims.IdentityID)
		c.Set(SessionIDKey, claims.SessionID())
		c.Next()
	}
}

// RequireSurface re-reads the caller's role from the store and stops the
// request with a redirect to the landing view when the role may not open
// surface. It runs before any handler loads data.
func RequireSurface(roles RoleResolver, surface routing.Surface, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identityID := c.GetString(IdentityIDKey)
		role, err := roles.ResolveRole(c.Request.Context(), identityID)
		if err != nil && !errors.Is(err, session.ErrNoProfile) {
			log.Warn("role check failed", zap.String("identity_id", identityID), zap.Error(err))
			abort(c, apperr.Wrap(apperr.KindTransient, "Could not verify your access. Please try again.", err))
			return
		}
		if view := routing.Gate(true, role, surface); view != surface.View() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":    "Access denied",
				"redirect": view.Path(),
			})
			return
		}
		c.Set(RoleKey, role)
		c.Next()
	}
}
