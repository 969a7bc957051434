package models

import "time"

// Audit actions recorded for appointment changes.
const (
	AuditActionBooked        = "APPOINTMENT_BOOKED"
	AuditActionStatusChanged = "APPOINTMENT_STATUS_CHANGED"
	AuditActionCancelled     = "APPOINTMENT_CANCELLED"
)

// AuditLog is an append-only trail entry for an appointment.
type AuditLog struct {
	ID            string             `db:"id" json:"id"`
	AppointmentID string             `db:"appointment_id" json:"appointmentId"`
	Action        string             `db:"action" json:"action"`
	ActorEmail    string             `db:"actor_email" json:"actorEmail"`
	ActorRole     UserRole           `db:"actor_role" json:"actorRole"`
	OldStatus     *AppointmentStatus `db:"old_status" json:"oldStatus,omitempty"`
	NewStatus     *AppointmentStatus `db:"new_status" json:"newStatus,omitempty"`
	RequestID     *string            `db:"request_id" json:"requestId,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"createdAt"`
}
