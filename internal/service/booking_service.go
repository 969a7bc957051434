package service

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-appointment-api/internal/dto"
	"github.com/noah-isme/sma-appointment-api/internal/models"
	appErrors "github.com/noah-isme/sma-appointment-api/pkg/errors"
)

// BookingConfig bounds the booking window.
type BookingConfig struct {
	WindowMonths  int
	Location      *time.Location
	MaxMessageLen int
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

type appointmentCreator interface {
	Create(ctx context.Context, draft models.Appointment) (*models.Appointment, error)
}

type auditRecorder interface {
	Record(ctx context.Context, entry models.AuditLog)
}

type viewInvalidator interface {
	Invalidate(ctx context.Context, pattern string)
}

// BookingService admits new appointment requests from students.
type BookingService struct {
	store     appointmentCreator
	users     userResolver
	validator *validator.Validate
	audit     auditRecorder
	cache     viewInvalidator
	metrics   *MetricsService
	logger    *zap.Logger
	config    BookingConfig
}

// NewBookingService constructs a BookingService.
func NewBookingService(store appointmentCreator, users userResolver, validate *validator.Validate, audit auditRecorder, cache viewInvalidator, metrics *MetricsService, logger *zap.Logger, config BookingConfig) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.WindowMonths <= 0 {
		config.WindowMonths = 3
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.MaxMessageLen <= 0 {
		config.MaxMessageLen = 2000
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if audit == nil {
		audit = noopAudit{}
	}
	if cache == nil {
		cache = noopInvalidator{}
	}
	return &BookingService{
		store:     store,
		users:     users,
		validator: validate,
		audit:     audit,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		config:    config,
	}
}

// Window returns the inclusive range of bookable dates as of now.
func (s *BookingService) Window() (models.Date, models.Date) {
	today := models.NewDate(s.config.Now().In(s.config.Location))
	return today, today.AddMonths(s.config.WindowMonths)
}

// Book creates a pending appointment for actor.
func (s *BookingService) Book(ctx context.Context, actor models.Actor, req dto.BookAppointmentRequest) (*models.Appointment, error) {
	appt, err := s.book(ctx, actor, req)
	s.metrics.RecordBooking(err == nil)
	return appt, err
}

func (s *BookingService) book(ctx context.Context, actor models.Actor, req dto.BookAppointmentRequest) (*models.Appointment, error) {
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can book appointments")
	}
	req.StudentEmail = strings.TrimSpace(req.StudentEmail)
	if req.StudentEmail == "" {
		req.StudentEmail = actor.Email
	}
	if !strings.EqualFold(req.StudentEmail, actor.Email) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students can only book for themselves")
	}

	req.TeacherEmail = strings.TrimSpace(req.TeacherEmail)
	req.Subject = strings.TrimSpace(req.Subject)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if n := utf8.RuneCountInString(req.Message); n > s.config.MaxMessageLen {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message must be at most "+strconv.Itoa(s.config.MaxMessageLen)+" characters")
	}

	slot := models.Slot(strings.TrimSpace(req.Slot))
	if !slot.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot must be one of 09:00, 10:00, 11:00, 14:00, 15:00")
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be formatted YYYY-MM-DD")
	}
	first, last := s.Window()
	if date.Before(first) || date.After(last) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be between "+first.String()+" and "+last.String())
	}

	student, err := s.users.Resolve(ctx, req.StudentEmail, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.Resolve(ctx, req.TeacherEmail, models.RoleTeacher); err != nil {
		return nil, err
	}

	appt, err := s.store.Create(ctx, models.Appointment{
		TeacherEmail:    req.TeacherEmail,
		StudentEmail:    student.Email,
		StudentUsername: student.Username,
		Subject:         req.Subject,
		Message:         req.Message,
		Date:            date,
		Slot:            slot,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, models.AuditLog{
		AppointmentID: appt.ID,
		Action:        models.AuditActionBooked,
		ActorEmail:    actor.Email,
		ActorRole:     actor.Role,
		NewStatus:     statusPtr(appt.Status),
	})
	s.cache.Invalidate(ctx, viewCachePattern)
	s.logger.Info("appointment booked",
		zap.String("appointment_id", appt.ID),
		zap.String("teacher_email", appt.TeacherEmail),
		zap.String("date", appt.Date.String()),
		zap.String("slot", string(appt.Slot)))
	return appt, nil
}
