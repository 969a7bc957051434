package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-appointment-api/internal/models"
)

const appointmentColumns = `a.id, a.teacher_email, a.student_email, a.student_username, t.username AS teacher_username,
	a.subject, a.message, a.date, a.slot, a.status, a.version, a.created_at, a.updated_at`

const appointmentFrom = ` FROM appointments a LEFT JOIN users t ON t.email = a.teacher_email`

// AppointmentRepository persists appointment rows.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs the repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create inserts a new appointment. The caller assigns id, status and version.
func (r *AppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	const query = `INSERT INTO appointments (id, teacher_email, student_email, student_username, subject, message, date, slot, status, version, created_at, updated_at)
VALUES (:id, :teacher_email, :student_email, :student_username, :subject, :message, :date, :slot, :status, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, appt); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// FindByID returns the appointment or sql.ErrNoRows.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + appointmentFrom + ` WHERE a.id = $1`
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return &appt, nil
}

// UpdateStatus writes status only if the stored version still equals expectedVersion
// and bumps the version. It returns sql.ErrNoRows when the guard does not match.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, expectedVersion int, status models.AppointmentStatus, at time.Time) (*models.Appointment, error) {
	const query = `UPDATE appointments SET status = $3, version = version + 1, updated_at = $4 WHERE id = $1 AND version = $2`
	res, err := r.db.ExecContext(ctx, query, id, expectedVersion, status, at)
	if err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update appointment status rows: %w", err)
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}
	return r.FindByID(ctx, id)
}

// List returns appointments matching the filter in storage order. Ordering for
// presentation is applied by the query service.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	var conditions []string
	var args []interface{}

	if filter.TeacherEmails != nil {
		if len(filter.TeacherEmails) == 0 {
			return []models.Appointment{}, nil
		}
		lowered := make([]string, len(filter.TeacherEmails))
		for i, email := range filter.TeacherEmails {
			lowered[i] = strings.ToLower(email)
		}
		args = append(args, pq.Array(lowered))
		conditions = append(conditions, fmt.Sprintf("LOWER(a.teacher_email) = ANY($%d)", len(args)))
	}
	if filter.StudentEmail != "" {
		args = append(args, filter.StudentEmail)
		conditions = append(conditions, fmt.Sprintf("LOWER(a.student_email) = LOWER($%d)", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		conditions = append(conditions, fmt.Sprintf("a.date = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, containsPattern(search))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			`(LOWER(a.teacher_email) LIKE $%[1]d ESCAPE '\' OR LOWER(COALESCE(t.username, '')) LIKE $%[1]d ESCAPE '\' `+
				`OR LOWER(a.student_email) LIKE $%[1]d ESCAPE '\' OR LOWER(a.student_username) LIKE $%[1]d ESCAPE '\')`,
			n))
	}

	query := `SELECT ` + appointmentColumns + appointmentFrom
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	items := []models.Appointment{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return items, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE ... ESCAPE '\' pattern matching term literally as a
// lower-cased substring.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}
