package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-appointment-api/internal/models"
)

// AuditRepository appends and reads appointment audit entries.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends an entry.
func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	const query = `INSERT INTO appointment_audit_logs (id, appointment_id, action, actor_email, actor_role, old_status, new_status, request_id, created_at)
VALUES (:id, :appointment_id, :action, :actor_email, :actor_role, :old_status, :new_status, :request_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListByAppointment returns the trail of one appointment, oldest first.
func (r *AuditRepository) ListByAppointment(ctx context.Context, appointmentID string) ([]models.AuditLog, error) {
	const query = `SELECT id, appointment_id, action, actor_email, actor_role, old_status, new_status, request_id, created_at
FROM appointment_audit_logs WHERE appointment_id = $1 ORDER BY created_at ASC, id ASC`
	entries := []models.AuditLog{}
	if err := r.db.SelectContext(ctx, &entries, query, appointmentID); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return entries, nil
}
