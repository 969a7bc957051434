package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-appointment-api/internal/dto"
	"github.com/noah-isme/sma-appointment-api/internal/models"
	appErrors "github.com/noah-isme/sma-appointment-api/pkg/errors"
)

type appointmentTransitioner interface {
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	Transition(ctx context.Context, current *models.Appointment, status models.AppointmentStatus) (*models.Appointment, error)
}

// ApprovalService changes appointment status on behalf of an authorised actor.
type ApprovalService struct {
	store     appointmentTransitioner
	validator *validator.Validate
	audit     auditRecorder
	cache     viewInvalidator
	logger    *zap.Logger
}

// NewApprovalService constructs an ApprovalService.
func NewApprovalService(store appointmentTransitioner, validate *validator.Validate, audit auditRecorder, cache viewInvalidator, logger *zap.Logger) *ApprovalService {
	if validate == nil {
		validate = validator.New()
	}
	if audit == nil {
		audit = noopAudit{}
	}
	if cache == nil {
		cache = noopInvalidator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{store: store, validator: validate, audit: audit, cache: cache, logger: logger}
}

// UpdateStatus validates a status change payload and applies it through SetStatus.
func (s *ApprovalService) UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest, actor models.Actor) (*models.Appointment, error) {
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "status must be one of pending, approved, cancelled")
	}
	return s.SetStatus(ctx, id, models.AppointmentStatus(req.Status), actor)
}

// SetStatus moves the appointment to requested. The owning teacher or an admin may
// approve or revoke; a cancellation request follows the Cancel rules.
func (s *ApprovalService) SetStatus(ctx context.Context, id string, requested models.AppointmentStatus, actor models.Actor) (*models.Appointment, error) {
	if !requested.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of pending, approved, cancelled")
	}
	if requested == models.StatusCancelled {
		return s.Cancel(ctx, id, actor)
	}
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canApprove(*current, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned teacher or an admin can change this appointment")
	}
	return s.apply(ctx, current, requested, actor)
}

// ToggleApproval flips approved to pending and anything else to approved.
func (s *ApprovalService) ToggleApproval(ctx context.Context, id string, actor models.Actor) (*models.Appointment, error) {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canApprove(*current, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned teacher or an admin can change this appointment")
	}
	target := models.StatusApproved
	if current.Status == models.StatusApproved {
		target = models.StatusPending
	}
	return s.apply(ctx, current, target, actor)
}

// Cancel moves the appointment to the terminal state. The owning student, the owning
// teacher or an admin may cancel.
func (s *ApprovalService) Cancel(ctx context.Context, id string, actor models.Actor) (*models.Appointment, error) {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canCancel(*current, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you cannot cancel this appointment")
	}
	return s.apply(ctx, current, models.StatusCancelled, actor)
}

func (s *ApprovalService) apply(ctx context.Context, current *models.Appointment, target models.AppointmentStatus, actor models.Actor) (*models.Appointment, error) {
	previous := current.Status
	updated, err := s.store.Transition(ctx, current, target)
	if err != nil {
		return nil, err
	}

	action := models.AuditActionStatusChanged
	if target == models.StatusCancelled {
		action = models.AuditActionCancelled
	}
	s.audit.Record(ctx, models.AuditLog{
		AppointmentID: updated.ID,
		Action:        action,
		ActorEmail:    actor.Email,
		ActorRole:     actor.Role,
		OldStatus:     statusPtr(previous),
		NewStatus:     statusPtr(updated.Status),
	})
	s.cache.Invalidate(ctx, viewCachePattern)
	s.logger.Info("appointment status changed",
		zap.String("appointment_id", updated.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(updated.Status)),
		zap.String("actor", actor.Email))
	return updated, nil
}

func canApprove(appt models.Appointment, actor models.Actor) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return appt.InvolvesTeacher(actor.Email)
	}
	return false
}

func canCancel(appt models.Appointment, actor models.Actor) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return appt.InvolvesTeacher(actor.Email)
	case models.RoleStudent:
		return appt.InvolvesStudent(actor.Email)
	}
	return false
}

// canView reports whether actor may read appt.
func canView(appt models.Appointment, actor models.Actor) bool {
	return actor.Role == models.RoleAdmin ||
		(actor.Role == models.RoleTeacher && appt.InvolvesTeacher(actor.Email)) ||
		(actor.Role == models.RoleStudent && appt.InvolvesStudent(actor.Email))
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
