// Package routing decides which dashboard a session lands on and which
// surfaces a role may open.
package routing

import "github.com/harentsoaR/clinic-portal/internal/models"

type View string

const (
	ViewLanding View = "landing"
	ViewPatient View = "patient-dashboard"
	ViewStaff   View = "staff-dashboard"
)

// Path is the client route for a view.
func (v View) Path() string {
	switch v {
	case ViewPatient:
		return "/user-dashboard"
	case ViewStaff:
		return "/admin-dashboard"
	}
	return "/"
}

// Surface is a gated dashboard area.
type Surface string

const (
	SurfacePatient Surface = "patient"
	SurfaceStaff   Surface = "staff"
)

func (s Surface) View() View {
	if s == SurfaceStaff {
		return ViewStaff
	}
	return ViewPatient
}

// grants is the authoritative role → surface table.
var grants = map[models.Role][]Surface{
	models.RolePatient: {SurfacePatient},
	models.RoleStaff:   {SurfaceStaff},
	models.RoleAdmin:   {SurfaceStaff},
}

// Allow reports whether role may open surface. RoleUnknown opens nothing.
func Allow(surface Surface, role models.Role) bool {
	for _, s := range grants[role] {
		if s == surface {
			return true
		}
	}
	return false
}

// Route picks the landing view for a session. A resolved role wins; the
// isAdmin flag only steers sessions whose role is not resolved yet, and the
// surface gate still re-checks the role before any data is loaded.
func Route(present bool, role models.Role, isAdmin bool) View {
	if !present {
		return ViewLanding
	}
	switch {
	case Allow(SurfaceStaff, role):
		return ViewStaff
	case Allow(SurfacePatient, role):
		return ViewPatient
	case isAdmin:
		return ViewStaff
	}
	return ViewPatient
}

// Gate returns the surface's view when role may open it and the landing view otherwise.
func Gate(present bool, role models.Role, surface Surface) View {
	if present && Allow(surface, role) {
		return surface.View()
	}
	return ViewLanding
}
