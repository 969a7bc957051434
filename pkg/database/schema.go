package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// The users table is owned by the identity service; it is only created here so a
// fresh database can boot for local development.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		email TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('student', 'teacher', 'admin')),
		department TEXT,
		designation TEXT,
		gender TEXT,
		image_ref TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS departments (
		slug TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		display_color TEXT NOT NULL DEFAULT '',
		image_ref TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id UUID PRIMARY KEY,
		teacher_email TEXT NOT NULL REFERENCES users(email),
		student_email TEXT NOT NULL REFERENCES users(email),
		student_username TEXT NOT NULL,
		subject TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		date DATE NOT NULL,
		slot TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'cancelled')),
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_teacher ON appointments (teacher_email)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_student ON appointments (student_email)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_status_date ON appointments (status, date)`,
	`CREATE TABLE IF NOT EXISTS appointment_audit_logs (
		id UUID PRIMARY KEY,
		appointment_id UUID NOT NULL,
		action TEXT NOT NULL,
		actor_email TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		old_status TEXT,
		new_status TEXT,
		request_id TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_appointment_audit_logs_appointment ON appointment_audit_logs (appointment_id)`,
}

// Migrate ensures every table the service relies on exists. Statements are idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
