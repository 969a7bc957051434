package service

import (
	"context"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-appointment-api/internal/dto"
	"github.com/noah-isme/sma-appointment-api/internal/models"
	appErrors "github.com/noah-isme/sma-appointment-api/pkg/errors"
)

const viewCachePattern = "view:*"

func departmentCacheKey(slug string) string {
	return "view:department:" + slug
}

type appointmentReader interface {
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
}

type departmentDirectory interface {
	TeachersInDepartment(ctx context.Context, slug string) ([]models.User, error)
}

type viewCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Generation() uint64
	SetIfGeneration(ctx context.Context, key string, value interface{}, generation uint64) bool
}

// AppointmentView is a sorted result set with its per-status tally.
type AppointmentView struct {
	Items  []models.Appointment `json:"items"`
	Counts models.StatusCounts  `json:"counts"`
}

// AdminFilter is the parsed form of the admin query string. Nil and empty fields match all.
type AdminFilter struct {
	Status     *models.AppointmentStatus
	Date       *models.Date
	Search     string
	Department string
}

// normalizeAdminQuery trims and lower-cases the enumerated parameters before validation.
func normalizeAdminQuery(q *dto.AdminAppointmentsQuery) {
	q.Status = strings.ToLower(strings.TrimSpace(q.Status))
	q.Date = strings.TrimSpace(q.Date)
	q.Search = strings.TrimSpace(q.Search)
	q.Department = strings.ToLower(strings.TrimSpace(q.Department))
}

func invalidQuery(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters")
}

// parseAdminFilter converts a normalized, validated query into a filter.
func parseAdminFilter(q dto.AdminAppointmentsQuery) (AdminFilter, error) {
	var f AdminFilter
	f.Status = parseStatusFilter(q.Status)
	if q.Date != "" {
		d, err := models.ParseDate(q.Date)
		if err != nil {
			return f, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be formatted YYYY-MM-DD")
		}
		f.Date = &d
	}
	f.Search = q.Search
	if q.Department != "all" {
		f.Department = q.Department
	}
	return f, nil
}

// parseStatusFilter maps "" and "all" to nil. raw must already be validated.
func parseStatusFilter(raw string) *models.AppointmentStatus {
	if raw == "" || raw == "all" {
		return nil
	}
	status := models.AppointmentStatus(raw)
	return &status
}

// QueryService produces actor-scoped, sorted read views. It never writes.
type QueryService struct {
	store     appointmentReader
	directory departmentDirectory
	cache     viewCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewQueryService constructs a QueryService. cache may be nil.
func NewQueryService(store appointmentReader, directory departmentDirectory, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *QueryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &QueryService{store: store, directory: directory, validator: validate, logger: logger}
	if cache.Enabled() {
		s.cache = cache
	}
	return s
}

// AdminFilter validates the admin query string and converts it into a filter.
func (s *QueryService) AdminFilter(q dto.AdminAppointmentsQuery) (AdminFilter, error) {
	normalizeAdminQuery(&q)
	if err := s.validator.Struct(q); err != nil {
		return AdminFilter{}, invalidQuery(err)
	}
	return parseAdminFilter(q)
}

// TeacherStatus validates the teacher view query and returns its status filter.
func (s *QueryService) TeacherStatus(q dto.TeacherAppointmentsQuery) (*models.AppointmentStatus, error) {
	q.Status = strings.ToLower(strings.TrimSpace(q.Status))
	if err := s.validator.Struct(q); err != nil {
		return nil, invalidQuery(err)
	}
	return parseStatusFilter(q.Status), nil
}

// Get returns one appointment if actor may see it.
func (s *QueryService) Get(ctx context.Context, actor models.Actor, id string) (*models.Appointment, error) {
	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(*appt, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you cannot view this appointment")
	}
	return appt, nil
}

// ForStudent returns the appointments booked by studentEmail.
func (s *QueryService) ForStudent(ctx context.Context, actor models.Actor, studentEmail string) (AppointmentView, error) {
	if !actor.IsAdmin() && !(actor.Role == models.RoleStudent && sameEmail(actor.Email, studentEmail)) {
		return AppointmentView{}, appErrors.Clone(appErrors.ErrForbidden, "students can only view their own appointments")
	}
	items, err := s.store.List(ctx, models.AppointmentFilter{StudentEmail: strings.TrimSpace(studentEmail)})
	if err != nil {
		return AppointmentView{}, err
	}
	return newView(items), nil
}

// ForTeacher returns the appointments addressed to teacherEmail, optionally narrowed to
// one status. Counts always cover every status so dashboards can render their tabs.
func (s *QueryService) ForTeacher(ctx context.Context, actor models.Actor, teacherEmail string, status *models.AppointmentStatus) (AppointmentView, error) {
	if !actor.IsAdmin() && !(actor.Role == models.RoleTeacher && sameEmail(actor.Email, teacherEmail)) {
		return AppointmentView{}, appErrors.Clone(appErrors.ErrForbidden, "teachers can only view their own appointments")
	}
	items, err := s.store.List(ctx, models.AppointmentFilter{TeacherEmails: []string{strings.TrimSpace(teacherEmail)}})
	if err != nil {
		return AppointmentView{}, err
	}
	if items == nil {
		items = []models.Appointment{}
	}
	counts := models.CountStatuses(items)
	if status != nil {
		items = filterStatus(items, *status)
	}
	sortAppointments(items)
	return AppointmentView{Items: items, Counts: counts}, nil
}

// ForDepartment unions the appointments of every teacher in the department. An unknown
// slug or a department without teachers yields an empty view.
func (s *QueryService) ForDepartment(ctx context.Context, actor models.Actor, slug string) (AppointmentView, error) {
	if !actor.IsAdmin() {
		return AppointmentView{}, appErrors.Clone(appErrors.ErrForbidden, "admin access required")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))

	var (
		cached     AppointmentView
		generation uint64
	)
	if s.cache != nil {
		generation = s.cache.Generation()
		if s.cache.Get(ctx, departmentCacheKey(slug), &cached) {
			return cached, nil
		}
	}

	items, err := s.departmentAppointments(ctx, slug, models.AppointmentFilter{})
	if err != nil {
		return AppointmentView{}, err
	}
	view := newView(items)
	if s.cache != nil {
		s.cache.SetIfGeneration(ctx, departmentCacheKey(slug), view, generation)
	}
	return view, nil
}

// ForAdmin applies every admin filter with AND semantics.
func (s *QueryService) ForAdmin(ctx context.Context, actor models.Actor, filter AdminFilter) (AppointmentView, error) {
	if !actor.IsAdmin() {
		return AppointmentView{}, appErrors.Clone(appErrors.ErrForbidden, "admin access required")
	}
	storeFilter := models.AppointmentFilter{Status: filter.Status, Date: filter.Date, Search: filter.Search}
	var (
		items []models.Appointment
		err   error
	)
	if filter.Department != "" {
		items, err = s.departmentAppointments(ctx, filter.Department, storeFilter)
	} else {
		items, err = s.store.List(ctx, storeFilter)
	}
	if err != nil {
		return AppointmentView{}, err
	}
	return newView(items), nil
}

// ListAll returns every appointment for admins.
func (s *QueryService) ListAll(ctx context.Context, actor models.Actor) (AppointmentView, error) {
	return s.ForAdmin(ctx, actor, AdminFilter{})
}

func (s *QueryService) departmentAppointments(ctx context.Context, slug string, filter models.AppointmentFilter) ([]models.Appointment, error) {
	teachers, err := s.directory.TeachersInDepartment(ctx, slug)
	if err != nil {
		return nil, err
	}
	filter.TeacherEmails = make([]string, 0, len(teachers))
	for _, t := range teachers {
		filter.TeacherEmails = append(filter.TeacherEmails, t.Email)
	}
	if len(filter.TeacherEmails) == 0 {
		return []models.Appointment{}, nil
	}
	return s.store.List(ctx, filter)
}

func newView(items []models.Appointment) AppointmentView {
	if items == nil {
		items = []models.Appointment{}
	}
	sortAppointments(items)
	return AppointmentView{Items: items, Counts: models.CountStatuses(items)}
}

func filterStatus(items []models.Appointment, status models.AppointmentStatus) []models.Appointment {
	out := make([]models.Appointment, 0, len(items))
	for _, a := range items {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out
}

// sortAppointments orders by date ascending, then most recently created first, then id.
func sortAppointments(items []models.Appointment) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
