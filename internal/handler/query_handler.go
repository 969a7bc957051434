package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-appointment-api/internal/dto"
	"github.com/noah-isme/sma-appointment-api/internal/models"
	"github.com/noah-isme/sma-appointment-api/internal/service"
	appErrors "github.com/noah-isme/sma-appointment-api/pkg/errors"
	"github.com/noah-isme/sma-appointment-api/pkg/export"
	"github.com/noah-isme/sma-appointment-api/pkg/response"
)

type appointmentQuery interface {
	AdminFilter(q dto.AdminAppointmentsQuery) (service.AdminFilter, error)
	TeacherStatus(q dto.TeacherAppointmentsQuery) (*models.AppointmentStatus, error)
	ForStudent(ctx context.Context, actor models.Actor, studentEmail string) (service.AppointmentView, error)
	ForTeacher(ctx context.Context, actor models.Actor, teacherEmail string, status *models.AppointmentStatus) (service.AppointmentView, error)
	ForDepartment(ctx context.Context, actor models.Actor, slug string) (service.AppointmentView, error)
	ForAdmin(ctx context.Context, actor models.Actor, filter service.AdminFilter) (service.AppointmentView, error)
}

type appointmentExporter interface {
	Request(q dto.ExportQuery) (service.AdminFilter, export.Format, error)
	Export(ctx context.Context, actor models.Actor, filter service.AdminFilter, format export.Format) (*service.ExportFile, error)
}

// QueryHandler serves the role scoped appointment listings.
type QueryHandler struct {
	query    appointmentQuery
	exporter appointmentExporter
}

// NewQueryHandler constructs a QueryHandler.
func NewQueryHandler(query appointmentQuery, exporter appointmentExporter) *QueryHandler {
	return &QueryHandler{query: query, exporter: exporter}
}

// Teacher godoc
// @Summary Teacher appointments
// @Description Appointments addressed to a teacher. Counts cover every status regardless of the filter.
// @Tags Queries
// @Produce json
// @Param email path string true "Teacher email"
// @Param status query string false "all, pending, approved or cancelled"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teacher-appointments/{email} [get]
func (h *QueryHandler) Teacher(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var q dto.TeacherAppointmentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	status, err := h.query.TeacherStatus(q)
	if err != nil {
		response.Error(c, err)
		return
	}

	view, err := h.query.ForTeacher(c.Request.Context(), actor, c.Param("email"), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view.Items, countsMeta(view.Counts))
}

// Student godoc
// @Summary Student appointments
// @Tags Queries
// @Produce json
// @Param email path string true "Student email"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /student-appointments/{email} [get]
func (h *QueryHandler) Student(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	view, err := h.query.ForStudent(c.Request.Context(), actor, c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view.Items, countsMeta(view.Counts))
}

// Admin godoc
// @Summary All appointments
// @Description Filters combine with AND. Empty values and "all" match everything.
// @Tags Queries
// @Produce json
// @Param status query string false "Status filter"
// @Param date query string false "Day, YYYY-MM-DD"
// @Param search query string false "Case-insensitive match on usernames or emails"
// @Param department query string false "Department slug"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /appointments [get]
func (h *QueryHandler) Admin(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var q dto.AdminAppointmentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	filter, err := h.query.AdminFilter(q)
	if err != nil {
		response.Error(c, err)
		return
	}

	view, err := h.query.ForAdmin(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view.Items, countsMeta(view.Counts))
}

// Department godoc
// @Summary Department appointments
// @Tags Queries
// @Produce json
// @Param slug path string true "Department slug"
// @Success 200 {object} response.Envelope
// @Router /appointments/department/{slug} [get]
func (h *QueryHandler) Department(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	view, err := h.query.ForDepartment(c.Request.Context(), actor, c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view.Items, countsMeta(view.Counts))
}

// Export godoc
// @Summary Export appointments
// @Description Renders the filtered admin view as a CSV or PDF download.
// @Tags Queries
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Param status query string false "Status filter"
// @Param date query string false "Day, YYYY-MM-DD"
// @Param search query string false "Search term"
// @Param department query string false "Department slug"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /appointments/export [get]
func (h *QueryHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	filter, format, err := h.exporter.Request(q)
	if err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.exporter.Export(c.Request.Context(), actor, filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
