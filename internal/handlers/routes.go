package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/clinic-portal/internal/middleware"
	"github.com/harentsoaR/clinic-portal/internal/routing"
	"github.com/harentsoaR/clinic-portal/internal/session"
	"github.com/harentsoaR/clinic-portal/internal/utils"
)

// Routes mounts the auth, session and dashboard routes on r.
func (h *Handler) Routes(r *gin.Engine, signer *utils.TokenSigner, flags session.FlagStore) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", h.RegisterUser)
		authRoutes.POST("/login", h.Login)
		authRoutes.POST("/federated", h.LoginFederated)
		authRoutes.POST("/password-reset", h.RequestPasswordReset)
		authRoutes.POST("/password-reset/confirm", h.ConfirmPasswordReset)
	}

	apiRoutes := r.Group("/api")
	apiRoutes.Use(middleware.AuthMiddleware(signer, flags))
	{
		apiRoutes.GET("/session", h.GetSession)
		apiRoutes.POST("/session/logout", h.Logout)
		apiRoutes.POST("/profile", h.CompleteProfile)
	}

	patient := apiRoutes.Group("/patient",
		middleware.RequireSurface(h.Sessions, routing.SurfacePatient, h.Log),
		withSurface(routing.SurfacePatient))
	{
		patient.GET("/dashboard", h.PatientDashboard)
		patient.GET("/appointments", h.MyAppointments)
		patient.POST("/appointments", h.CreateAppointment)
		patient.GET("/services", h.GetServices)
		h.settingsRoutes(patient)
	}

	staff := apiRoutes.Group("/staff",
		middleware.RequireSurface(h.Sessions, routing.SurfaceStaff, h.Log),
		withSurface(routing.SurfaceStaff))
	{
		staff.GET("/dashboard", h.StaffDashboard)

		staff.GET("/patients", h.SearchPatients)
		staff.GET("/patients/:id/history", h.PatientHistory)
		staff.GET("/patients/:id/personal", h.GetPersonalInfo)
		staff.PUT("/patients/:id/personal", h.UpdatePersonalInfo)
		staff.GET("/patients/:id/contact", h.GetContactInfo)
		staff.PUT("/patients/:id/contact", h.UpdateContactInfo)
		staff.POST("/patients/:id/promote", h.PromotePatient)

		staff.GET("/staffs", h.SearchStaff)
		staff.PUT("/staffs/:id/schedule", h.UpdateSchedule)

		staff.GET("/services", h.GetServices)
		staff.POST("/services", h.CreateService)
		staff.GET("/services/:id", h.GetService)
		staff.PUT("/services/:id", h.UpdateService)
		staff.DELETE("/services/:id", h.DeleteService)

		staff.PUT("/appointments/:id", h.UpdateAppointment)
		staff.PATCH("/appointments/:id/cancel", h.CancelAppointment)

		h.settingsRoutes(staff)
	}
}

// settingsRoutes are the caller's own settings, shared by both surfaces.
func (h *Handler) settingsRoutes(g *gin.RouterGroup) {
	g.GET("/settings/personal", h.GetPersonalInfo)
	g.PUT("/settings/personal", h.UpdatePersonalInfo)
	g.GET("/settings/contact", h.GetContactInfo)
	g.PUT("/settings/contact", h.UpdateContactInfo)
	g.PUT("/settings/password", h.ChangePassword)
	g.POST("/account/delete", h.RequestAccountDeletion)
	g.POST("/account/delete/confirm", h.ConfirmAccountDeletion)
}
