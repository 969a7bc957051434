package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-appointment-api/internal/models"
	"github.com/noah-isme/sma-appointment-api/pkg/jobs"
	"github.com/noah-isme/sma-appointment-api/pkg/middleware/requestid"
)

const auditJobType = "appointment_audit"

type auditRepository interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
	ListByAppointment(ctx context.Context, appointmentID string) ([]models.AuditLog, error)
}

// AuditService persists the appointment trail off the request path through a job queue.
type AuditService struct {
	repo    auditRepository
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewAuditService wires the dispatcher. Call Start before recording.
func NewAuditService(repo auditRepository, cfg jobs.QueueConfig, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, metrics: metrics, logger: logger, now: time.Now}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s.queue = jobs.NewQueue("appointment-audit", s.handle, cfg)
	return s
}

// Start launches the workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Shutdown drains queued entries.
func (s *AuditService) Shutdown(ctx context.Context) error {
	return s.queue.Shutdown(ctx)
}

// Record stamps entry with an id, time and the request id found in ctx, then queues
// it. A full or closed queue drops the entry with a warning.
func (s *AuditService) Record(ctx context.Context, entry models.AuditLog) {
	if s == nil {
		return
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = s.now().UTC()
	if reqID := requestid.FromContext(ctx); reqID != "" {
		entry.RequestID = &reqID
	}

	if err := s.queue.Enqueue(jobs.Job{ID: entry.ID, Type: auditJobType, Payload: entry}); err != nil {
		s.metrics.RecordAuditDropped()
		s.logger.Warn("audit entry dropped",
			zap.String("appointment_id", entry.AppointmentID),
			zap.String("action", entry.Action),
			zap.Error(err))
	}
}

// History returns the trail of an appointment oldest first.
func (s *AuditService) History(ctx context.Context, appointmentID string) ([]models.AuditLog, error) {
	return s.repo.ListByAppointment(ctx, appointmentID)
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.AuditLog)
	if !ok {
		s.logger.Error("unexpected audit payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	return s.repo.Insert(ctx, &entry)
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, models.AuditLog) {}

func statusPtr(s models.AppointmentStatus) *models.AppointmentStatus {
	return &s
}
