package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-appointment-api/internal/middleware"
	"github.com/noah-isme/sma-appointment-api/internal/models"
)

// Handlers groups the API handlers mounted under the API prefix.
type Handlers struct {
	Appointments *AppointmentHandler
	Queries      *QueryHandler
	Users        *UserHandler
	Departments  *DepartmentHandler
}

// RegisterRoutes mounts the authenticated API on group. auth must populate middleware.ContextUserKey.
func RegisterRoutes(group *gin.RouterGroup, h Handlers, auth gin.HandlerFunc) {
	api := group.Group("", auth)

	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)

	users := api.Group("/users")
	users.GET("", admin, h.Users.List)
	users.GET("/role/:role", h.Users.ByRole)
	users.GET("/:email", h.Users.Get)

	departments := api.Group("/departments")
	departments.GET("", h.Departments.List)
	departments.GET("/:slug/heads", h.Departments.Heads)

	api.POST("/appointment-book", middleware.RequireRoles(models.RoleStudent), h.Appointments.Book)

	appointment := api.Group("/appointment/:id")
	appointment.GET("", h.Appointments.Get)
	appointment.PATCH("", h.Appointments.UpdateStatus)
	appointment.POST("/toggle", staff, h.Appointments.Toggle)
	appointment.POST("/cancel", h.Appointments.Cancel)
	appointment.GET("/history", h.Appointments.History)

	api.GET("/teacher-appointments/:email", staff, h.Queries.Teacher)
	api.GET("/student-appointments/:email", h.Queries.Student)

	appointments := api.Group("/appointments", admin)
	appointments.GET("", h.Queries.Admin)
	appointments.GET("/department/:slug", h.Queries.Department)
	appointments.GET("/export", h.Queries.Export)
}

// RegisterOps mounts the unauthenticated operational endpoints.
func RegisterOps(r gin.IRoutes, m *MetricsHandler) {
	r.GET("/health", m.Health)
	r.GET("/ready", m.Ready)
	r.GET("/metrics", m.Prometheus)
	r.GET("/metrics/summary", m.Summary)
}
