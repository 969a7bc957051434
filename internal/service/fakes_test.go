package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-appointment-api/internal/models"
)

func strPtr(s string) *string { return &s }

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]models.User)}
	for _, u := range users {
		repo.users[strings.ToLower(u.Email)] = u
	}
	return repo
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (r *fakeUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.User{}
	for _, u := range r.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Search != "" && !containsFold(u.Email, filter.Search) && !containsFold(u.Username, filter.Search) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUserRepo) rename(email, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[email]
	u.Username = username
	r.users[email] = u
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

type fakeAppointmentRepo struct {
	mu      sync.Mutex
	users   *fakeUserRepo
	items   map[string]models.Appointment
	writes  int
	listErr error
}

func newFakeAppointmentRepo(users *fakeUserRepo) *fakeAppointmentRepo {
	return &fakeAppointmentRepo{users: users, items: make(map[string]models.Appointment)}
}

func (r *fakeAppointmentRepo) Create(ctx context.Context, appt *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *appt
	stored.TeacherUsername = nil
	r.items[appt.ID] = stored
	return nil
}

func (r *fakeAppointmentRepo) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return r.withTeacher(a), nil
}

func (r *fakeAppointmentRepo) UpdateStatus(ctx context.Context, id string, expectedVersion int, status models.AppointmentStatus, at time.Time) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.Version != expectedVersion {
		return nil, sql.ErrNoRows
	}
	a.Status = status
	a.Version++
	a.UpdatedAt = at
	r.items[id] = a
	r.writes++
	return r.withTeacher(a), nil
}

func (r *fakeAppointmentRepo) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Appointment{}
	for _, stored := range r.items {
		a := *r.withTeacher(stored)
		if filter.TeacherEmails != nil && !containsEmail(filter.TeacherEmails, a.TeacherEmail) {
			continue
		}
		if filter.StudentEmail != "" && !strings.EqualFold(filter.StudentEmail, a.StudentEmail) {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.Date != nil && !a.Date.Equal(*filter.Date) {
			continue
		}
		if filter.Search != "" {
			teacherName := ""
			if a.TeacherUsername != nil {
				teacherName = *a.TeacherUsername
			}
			if !containsFold(a.TeacherEmail, filter.Search) && !containsFold(teacherName, filter.Search) &&
				!containsFold(a.StudentEmail, filter.Search) && !containsFold(a.StudentUsername, filter.Search) {
				continue
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeAppointmentRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *fakeAppointmentRepo) withTeacher(a models.Appointment) *models.Appointment {
	if u, err := r.users.FindByEmail(context.Background(), a.TeacherEmail); err == nil {
		a.TeacherUsername = strPtr(u.Username)
	}
	return &a
}

func containsEmail(list []string, email string) bool {
	for _, e := range list {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

type recordedAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (r *recordedAudit) Record(ctx context.Context, entry models.AuditLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordedAudit) all() []models.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditLog(nil), r.entries...)
}

type countingInvalidator struct {
	mu       sync.Mutex
	patterns []string
}

func (c *countingInvalidator) Invalidate(ctx context.Context, pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = append(c.patterns, pattern)
}

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	studentSam   = models.Actor{Email: "s@x.edu", Role: models.RoleStudent, Username: "Sam Taylor"}
	studentJo    = models.Actor{Email: "jo@x.edu", Role: models.RoleStudent, Username: "Jo Smith"}
	teacherSmith = models.Actor{Email: "t@x.edu", Role: models.RoleTeacher, Username: "Dr. Smith"}
	teacherAda   = models.Actor{Email: "ada@x.edu", Role: models.RoleTeacher, Username: "Ada Lovelace"}
	teacherAlan  = models.Actor{Email: "alan@x.edu", Role: models.RoleTeacher, Username: "Alan Turing"}
	admin        = models.Actor{Email: "admin@x.edu", Role: models.RoleAdmin, Username: "Admin"}
)

func directoryUsers() []models.User {
	return []models.User{
		{Email: "s@x.edu", Username: "Sam Taylor", Role: models.RoleStudent, Department: strPtr("Data Science")},
		{Email: "jo@x.edu", Username: "Jo Smith", Role: models.RoleStudent, Department: strPtr("Cyber Security")},
		{Email: "t@x.edu", Username: "Dr. Smith", Role: models.RoleTeacher, Department: strPtr("Data Science"), Designation: strPtr("Professor")},
		{Email: "alan@x.edu", Username: "Alan Turing", Role: models.RoleTeacher, Department: strPtr("Data  Science"), Designation: strPtr("HOD")},
		{Email: "ada@x.edu", Username: "Ada Lovelace", Role: models.RoleTeacher, Department: strPtr("Cyber Security"), Designation: strPtr("HOD")},
		{Email: "admin@x.edu", Username: "Admin", Role: models.RoleAdmin},
	}
}

type fixture struct {
	clock     *clock
	users     *fakeUserRepo
	repo      *fakeAppointmentRepo
	audit     *recordedAudit
	cache     *countingInvalidator
	metrics   *MetricsService
	directory *DirectoryService
	store     *AppointmentStore
	booking   *BookingService
	approval  *ApprovalService
	query     *QueryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:   &clock{now: time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)},
		users:   newFakeUserRepo(directoryUsers()...),
		audit:   &recordedAudit{},
		cache:   &countingInvalidator{},
		metrics: NewMetricsService(),
	}
	f.repo = newFakeAppointmentRepo(f.users)
	f.directory = NewDirectoryService(f.users, zap.NewNop())
	f.store = NewAppointmentStore(f.repo, f.directory, f.metrics, zap.NewNop())
	f.store.now = f.clock.Now
	f.booking = NewBookingService(f.store, f.directory, validator.New(), f.audit, f.cache, f.metrics, zap.NewNop(), BookingConfig{
		WindowMonths:  3,
		Location:      time.UTC,
		MaxMessageLen: 2000,
		Now:           f.clock.Now,
	})
	f.approval = NewApprovalService(f.store, nil, f.audit, f.cache, zap.NewNop())
	f.query = NewQueryService(f.store, f.directory, nil, nil, zap.NewNop())
	return f
}

// date returns today plus days as YYYY-MM-DD on the fixture clock.
func (f *fixture) date(days int) string {
	return models.NewDate(f.clock.Now()).AddDays(days).String()
}
