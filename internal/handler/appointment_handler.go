package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-appointment-api/internal/dto"
	"github.com/noah-isme/sma-appointment-api/internal/models"
	appErrors "github.com/noah-isme/sma-appointment-api/pkg/errors"
	"github.com/noah-isme/sma-appointment-api/pkg/response"
)

type bookingService interface {
	Book(ctx context.Context, actor models.Actor, req dto.BookAppointmentRequest) (*models.Appointment, error)
}

type approvalService interface {
	UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest, actor models.Actor) (*models.Appointment, error)
	ToggleApproval(ctx context.Context, id string, actor models.Actor) (*models.Appointment, error)
	Cancel(ctx context.Context, id string, actor models.Actor) (*models.Appointment, error)
}

type appointmentViewer interface {
	Get(ctx context.Context, actor models.Actor, id string) (*models.Appointment, error)
}

type auditHistory interface {
	History(ctx context.Context, appointmentID string) ([]models.AuditLog, error)
}

// AppointmentHandler exposes booking and status change endpoints.
type AppointmentHandler struct {
	booking  bookingService
	approval approvalService
	query    appointmentViewer
	audit    auditHistory
}

// NewAppointmentHandler constructs an AppointmentHandler.
func NewAppointmentHandler(booking bookingService, approval approvalService, query appointmentViewer, audit auditHistory) *AppointmentHandler {
	return &AppointmentHandler{booking: booking, approval: approval, query: query, audit: audit}
}

// Book godoc
// @Summary Book appointment
// @Description Student requests a slot with a teacher. The appointment starts pending.
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body dto.BookAppointmentRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /appointment-book [post]
func (h *AppointmentHandler) Book(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	appt, err := h.booking.Book(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}

// Get godoc
// @Summary Get appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /appointment/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	appt, err := h.query.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt)
}

// UpdateStatus godoc
// @Summary Set appointment status
// @Description Teachers and admins may set any reachable status. Students may only cancel.
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body dto.UpdateStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /appointment/{id} [patch]
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	appt, err := h.approval.UpdateStatus(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt)
}

// Toggle godoc
// @Summary Toggle approval
// @Description Flips pending and approved.
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /appointment/{id}/toggle [post]
func (h *AppointmentHandler) Toggle(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	appt, err := h.approval.ToggleApproval(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt)
}

// Cancel godoc
// @Summary Cancel appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /appointment/{id}/cancel [post]
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	appt, err := h.approval.Cancel(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt)
}

// History godoc
// @Summary Appointment audit trail
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /appointment/{id}/history [get]
func (h *AppointmentHandler) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	appt, err := h.query.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.audit.History(c.Request.Context(), appt.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}
