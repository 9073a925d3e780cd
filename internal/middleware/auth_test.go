package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harentsoaR/clinic-portal/internal/models"
	"github.com/harentsoaR/clinic-portal/internal/routing"
	"github.com/harentsoaR/clinic-portal/internal/session"
	"github.com/harentsoaR/clinic-portal/internal/utils"
)

type roleFunc func(ctx context.Context, id string) (models.Role, error)

func (f roleFunc) ResolveRole(ctx context.Context, id string) (models.Role, error) { return f(ctx, id) }

func newFlags(t *testing.T) *session.RedisFlags {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return session.NewRedisFlags(client)
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	signer := utils.NewTokenSigner("secret", time.Hour)
	flags := newFlags(t)
	token, sid, err := signer.GenerateJWT("u1")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/x", AuthMiddleware(signer, flags), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(IdentityIDKey)+"/"+c.GetString(SessionIDKey))
	})
	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, call("").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Bearer garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+token).Code, "no live session flags")

	require.NoError(t, flags.Set(context.Background(), sid, session.Flags{UserID: "u1", LoggedIn: true}, time.Hour))
	w := call("Bearer " + token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1/"+sid, w.Body.String())

	require.NoError(t, flags.Remove(context.Background(), sid))
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+token).Code)
}

func TestRequireSurfaceBlocksBeforeHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name    string
		role    models.Role
		err     error
		surface routing.Surface
		want    int
	}{
		{"patient on staff surface", models.RolePatient, nil, routing.SurfaceStaff, http.StatusForbidden},
		{"staff on patient surface", models.RoleStaff, nil, routing.SurfacePatient, http.StatusForbidden},
		{"no profile", models.RoleUnknown, session.ErrNoProfile, routing.SurfacePatient, http.StatusForbidden},
		{"store down", models.RoleUnknown, errors.New("timeout"), routing.SurfaceStaff, http.StatusServiceUnavailable},
		{"patient on patient surface", models.RolePatient, nil, routing.SurfacePatient, http.StatusOK},
		{"admin on staff surface", models.RoleAdmin, nil, routing.SurfaceStaff, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loaded := false
			roles := roleFunc(func(ctx context.Context, id string) (models.Role, error) {
				assert.Equal(t, "u1", id)
				return tt.role, tt.err
			})
			r := gin.New()
			r.GET("/x",
				func(c *gin.Context) { c.Set(IdentityIDKey, "u1") },
				RequireSurface(roles, tt.surface, zap.NewNop()),
				func(c *gin.Context) { loaded = true; c.Status(http.StatusOK) },
			)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.want == http.StatusOK, loaded)
			if tt.want == http.StatusForbidden {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, "/", body["redirect"])
			}
		})
	}
}
