package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harentsoaR/clinic-portal/internal/apperr"
	"github.com/harentsoaR/clinic-portal/internal/cache"
	"github.com/harentsoaR/clinic-portal/internal/forms"
	"github.com/harentsoaR/clinic-portal/internal/identity"
	"github.com/harentsoaR/clinic-portal/internal/metrics"
	"github.com/harentsoaR/clinic-portal/internal/middleware"
	"github.com/harentsoaR/clinic-portal/internal/routing"
	"github.com/harentsoaR/clinic-portal/internal/services"
	"github.com/harentsoaR/clinic-portal/internal/session"
	"github.com/harentsoaR/clinic-portal/internal/store"
)

const surfaceKey = "surface"

// Provider is the part of the identity provider the auth routes use.
type Provider interface {
	Authenticate(ctx context.Context, email, password string) (*identity.Session, error)
	AuthenticateFederated(ctx context.Context, token string) (*identity.Session, error)
	SignIn(ctx context.Context, id identity.Identity, newIdentity bool) (*identity.Session, error)
	SignOut(ctx context.Context, identityID, sessionID string) error
	SendPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Subscribe(l identity.Listener) func()
}

type Handler struct {
	Store        store.Store
	Provider     Provider
	Sessions     *session.Resolver
	Caches       *cache.Registry
	Forms        *forms.Controller
	Accounts     *services.Accounts
	Appointments *services.Appointments
	Metrics      *metrics.PortalMetrics
	Log          *zap.Logger
}

// NewHandler wires the handler and drops a session's snapshots when it signs out.
func NewHandler(st store.Store, provider Provider, sessions *session.Resolver, caches *cache.Registry, f *forms.Controller,
	accounts *services.Accounts, appointments *services.Appointments, m *metrics.PortalMetrics, log *zap.Logger) *Handler {
	h := &Handler{
		Store:        st,
		Provider:     provider,
		Sessions:     sessions,
		Caches:       caches,
		Forms:        f,
		Accounts:     accounts,
		Appointments: appointments,
		Metrics:      m,
		Log:          log,
	}
	provider.Subscribe(func(ctx context.Context, ch identity.Change) {
		if ch.Kind == identity.SignedOut {
			h.Caches.Drop(ch.SessionID)
		}
	})
	return h
}

func (h *Handler) fail(c *gin.Context, err error) {
	kind := apperr.Classify(err)
	if kind == apperr.KindTransient || kind == apperr.KindPermanent {
		h.Log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(apperr.Status(kind), gin.H{"error": apperr.Message(err), "notice": apperr.NoticeFor(err)})
}

func (h *Handler) badRequest(c *gin.Context) {
	h.fail(c, apperr.Validation("Invalid request body"))
}

func (h *Handler) respondOutcome(c *gin.Context, out forms.Outcome) {
	status := http.StatusOK
	switch out.Status {
	case forms.StatusInvalid:
		status = http.StatusBadRequest
	case forms.StatusFailed:
		status = apperr.Status(apperr.Classify(out.Err))
	case forms.StatusSuccess:
		if out.ID != "" {
			status = http.StatusCreated
		}
	}
	c.JSON(status, out)
}

func identityID(c *gin.Context) string {
	return c.GetString(middleware.IdentityIDKey)
}

func sessionID(c *gin.Context) string {
	return c.GetString(middleware.SessionIDKey)
}

func withSurface(s routing.Surface) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(surfaceKey, s)
		c.Next()
	}
}

func surfaceOf(c *gin.Context) routing.Surface {
	s, _ := c.Get(surfaceKey)
	surface, _ := s.(routing.Surface)
	return surface
}

// snapshot returns the session's snapshot for the current surface, loading
// it on first use.
func (h *Handler) snapshot(c *gin.Context) (*cache.Snapshot, error) {
	if snap, ok := h.Caches.Get(sessionID(c), string(surfaceOf(c))); ok {
		return snap, nil
	}
	return h.reload(c)
}

// reload reads the surface's collections again and replaces the session's snapshot.
func (h *Handler) reload(c *gin.Context) (*cache.Snapshot, error) {
	surface := surfaceOf(c)
	sources := cache.StaffSources()
	if surface == routing.SurfacePatient {
		sources = cache.PatientSources(identityID(c))
	}
	snap, err := cache.Load(c.Request.Context(), h.Store, sources...)
	h.Metrics.ObserveCacheLoad(string(surface), err)
	if err != nil {
		h.Log.Warn("dashboard load failed", zap.String("surface", string(surface)), zap.Error(err))
		return nil, apperr.Wrap(apperr.KindTransient, "Could not load your dashboard. Please try again.", err)
	}
	h.Caches.Put(sessionID(c), string(surface), snap)
	return snap, nil
}
