package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-appointment-api/internal/models"
	appErrors "github.com/noah-isme/sma-appointment-api/pkg/errors"
)

type appointmentRepository interface {
	Create(ctx context.Context, appt *models.Appointment) error
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, id string, expectedVersion int, status models.AppointmentStatus, at time.Time) (*models.Appointment, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
}

type userResolver interface {
	Resolve(ctx context.Context, email string, role models.UserRole) (*models.User, error)
}

// AppointmentStore is the single writer of appointment state. Status writes are
// guarded by the row version: a write based on a stale read fails with a conflict.
type AppointmentStore struct {
	repo    appointmentRepository
	users   userResolver
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewAppointmentStore constructs the store.
func NewAppointmentStore(repo appointmentRepository, users userResolver, metrics *MetricsService, logger *zap.Logger) *AppointmentStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentStore{repo: repo, users: users, metrics: metrics, logger: logger, now: time.Now}
}

// Create assigns an id, forces the pending status and persists the draft.
func (s *AppointmentStore) Create(ctx context.Context, draft models.Appointment) (*models.Appointment, error) {
	draft.TeacherEmail = strings.ToLower(strings.TrimSpace(draft.TeacherEmail))
	draft.StudentEmail = strings.ToLower(strings.TrimSpace(draft.StudentEmail))
	draft.Subject = strings.TrimSpace(draft.Subject)

	switch {
	case draft.TeacherEmail == "":
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacherEmail is required")
	case draft.StudentEmail == "":
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentEmail is required")
	case draft.StudentUsername == "":
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentUsername is required")
	case draft.Subject == "":
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject is required")
	case draft.Date.IsZero():
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is required")
	case !draft.Slot.Valid():
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot is not one of the bookable slots")
	}

	teacher, err := s.resolve(ctx, draft.TeacherEmail, models.RoleTeacher)
	if err != nil {
		return nil, err
	}
	if _, err := s.resolve(ctx, draft.StudentEmail, models.RoleStudent); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	draft.ID = uuid.NewString()
	draft.Status = models.StatusPending
	draft.Version = 1
	draft.CreatedAt = now
	draft.UpdatedAt = now
	username := teacher.Username
	draft.TeacherUsername = &username

	if err := s.repo.Create(ctx, &draft); err != nil {
		return nil, appErrors.Internal(err, "failed to store appointment")
	}
	return &draft, nil
}

// resolve maps a missing foreign key to a validation failure, as the store sees it.
func (s *AppointmentStore) resolve(ctx context.Context, email string, role models.UserRole) (*models.User, error) {
	user, err := s.users.Resolve(ctx, email, role)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrValidation, string(role)+" "+email+" does not exist")
		}
		return nil, err
	}
	return user, nil
}

// GetByID returns the appointment or a NotFound error.
func (s *AppointmentStore) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
	}
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Internal(err, "failed to fetch appointment")
	}
	return appt, nil
}

// UpdateStatus reads the current record and moves it to status.
func (s *AppointmentStore) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) (*models.Appointment, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Transition(ctx, current, status)
}

// Transition moves current to status if the lifecycle allows it. The write only applies
// when the stored version still equals current.Version.
func (s *AppointmentStore) Transition(ctx context.Context, current *models.Appointment, status models.AppointmentStatus) (*models.Appointment, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status "+string(status))
	}
	if !models.CanTransition(current.Status, status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			"cannot change status from "+string(current.Status)+" to "+string(status))
	}

	updated, err := s.repo.UpdateStatus(ctx, current.ID, current.Version, status, s.now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordConflict()
			s.logger.Warn("stale appointment write rejected",
				zap.String("appointment_id", current.ID), zap.Int("version", current.Version))
			return nil, appErrors.Clone(appErrors.ErrConflict, "appointment was modified concurrently, reload and retry")
		}
		return nil, appErrors.Internal(err, "failed to update appointment")
	}
	s.metrics.RecordTransition(current.Status, status)
	return updated, nil
}

// List enumerates appointments matching filter in storage order.
func (s *AppointmentStore) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list appointments")
	}
	return items, nil
}

// ListAll enumerates every appointment in storage order.
func (s *AppointmentStore) ListAll(ctx context.Context) ([]models.Appointment, error) {
	return s.List(ctx, models.AppointmentFilter{})
}
