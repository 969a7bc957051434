package service

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-appointment-api/internal/dto"
	"github.com/noah-isme/sma-appointment-api/internal/models"
	appErrors "github.com/noah-isme/sma-appointment-api/pkg/errors"
)

func ids(items []models.Appointment) []string {
	out := make([]string, len(items))
	for i, a := range items {
		out[i] = a.ID
	}
	return out
}

func TestForStudentOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late := f.book(t, studentSam, "t@x.edu", 20)
	f.clock.Advance(time.Minute)
	earlyOld := f.book(t, studentSam, "ada@x.edu", 5)
	f.clock.Advance(time.Minute)
	earlyNew := f.book(t, studentSam, "t@x.edu", 5)
	f.book(t, studentJo, "t@x.edu", 1)

	view, err := f.query.ForStudent(ctx, studentSam, "s@x.edu")
	require.NoError(t, err)
	assert.Equal(t, []string{earlyNew.ID, earlyOld.ID, late.ID}, ids(view.Items))
	assert.Equal(t, 3, view.Counts.All)
}

func TestForStudentScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.query.ForStudent(ctx, studentJo, "s@x.edu")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = f.query.ForStudent(ctx, teacherSmith, "s@x.edu")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	view, err := f.query.ForStudent(ctx, admin, "nobody@x.edu")
	require.NoError(t, err)
	assert.NotNil(t, view.Items)
	assert.Empty(t, view.Items)
}

func TestForTeacherStatusFilterKeepsCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.book(t, studentSam, "t@x.edu", 1)
	b := f.book(t, studentJo, "t@x.edu", 2)
	f.book(t, studentJo, "t@x.edu", 3)
	f.book(t, studentJo, "ada@x.edu", 3)
	_, err := f.approval.ToggleApproval(ctx, a.ID, teacherSmith)
	require.NoError(t, err)
	_, err = f.approval.Cancel(ctx, b.ID, studentJo)
	require.NoError(t, err)

	approved := models.StatusApproved
	view, err := f.query.ForTeacher(ctx, teacherSmith, "T@x.edu", &approved)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, ids(view.Items))
	assert.Equal(t, models.StatusCounts{All: 3, Pending: 1, Approved: 1, Cancelled: 1}, view.Counts)

	_, err = f.query.ForTeacher(ctx, teacherAda, "t@x.edu", nil)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestTeacherViewsCoverAllAppointments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.book(t, studentSam, "t@x.edu", 1)
	f.book(t, studentSam, "ada@x.edu", 2)
	f.book(t, studentJo, "alan@x.edu", 3)
	f.book(t, studentJo, "t@x.edu", 4)

	teachers, err := f.directory.ListByRole(ctx, "teacher")
	require.NoError(t, err)

	var union []string
	for _, teacher := range teachers {
		view, err := f.query.ForTeacher(ctx, admin, teacher.Email, nil)
		require.NoError(t, err)
		union = append(union, ids(view.Items)...)
	}
	all, err := f.query.ListAll(ctx, admin)
	require.NoError(t, err)

	expected := ids(all.Items)
	sort.Strings(union)
	sort.Strings(expected)
	assert.Equal(t, expected, union)
}

func TestForDepartment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	smith := f.book(t, studentSam, "t@x.edu", 1)
	alan := f.book(t, studentJo, "alan@x.edu", 2)
	f.book(t, studentJo, "ada@x.edu", 3)

	view, err := f.query.ForDepartment(ctx, admin, "Data-Science")
	require.NoError(t, err)
	assert.Equal(t, []string{smith.ID, alan.ID}, ids(view.Items))

	for _, slug := range []string{"information-technology", "no-such-department", ""} {
		empty, err := f.query.ForDepartment(ctx, admin, slug)
		require.NoError(t, err, slug)
		assert.NotNil(t, empty.Items)
		assert.Empty(t, empty.Items, slug)
	}

	_, err = f.query.ForDepartment(ctx, teacherSmith, "data-science")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestForAdminPendingSmithScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bySmithTeacher := f.book(t, studentSam, "t@x.edu", 1)
	byJoSmith := f.book(t, studentJo, "ada@x.edu", 2)
	approvedSmith := f.book(t, studentJo, "t@x.edu", 3)
	f.book(t, studentSam, "ada@x.edu", 4)
	_, err := f.approval.ToggleApproval(ctx, approvedSmith.ID, teacherSmith)
	require.NoError(t, err)

	filter, err := f.query.AdminFilter(dto.AdminAppointmentsQuery{Status: "pending", Search: "SMITH"})
	require.NoError(t, err)
	view, err := f.query.ForAdmin(ctx, admin, filter)
	require.NoError(t, err)

	assert.Equal(t, []string{bySmithTeacher.ID, byJoSmith.ID}, ids(view.Items))
	for _, a := range view.Items {
		assert.Equal(t, models.StatusPending, a.Status)
	}
}

func TestForAdminComposesDateAndDepartment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	target := f.book(t, studentSam, "t@x.edu", 7)
	f.book(t, studentSam, "ada@x.edu", 7)
	f.book(t, studentSam, "t@x.edu", 8)

	filter, err := f.query.AdminFilter(dto.AdminAppointmentsQuery{Date: f.date(7), Department: "data-science", Status: "all"})
	require.NoError(t, err)
	view, err := f.query.ForAdmin(ctx, admin, filter)
	require.NoError(t, err)
	assert.Equal(t, []string{target.ID}, ids(view.Items))

	_, err = f.query.ForAdmin(ctx, studentSam, AdminFilter{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAdminFilterValidatesQuery(t *testing.T) {
	query := NewQueryService(nil, nil, nil, validator.New(), zap.NewNop())

	f, err := query.AdminFilter(dto.AdminAppointmentsQuery{Status: "ALL", Department: "all"})
	require.NoError(t, err)
	assert.Nil(t, f.Status)
	assert.Empty(t, f.Department)

	f, err = query.AdminFilter(dto.AdminAppointmentsQuery{Status: " Approved ", Department: " Data-Science ", Search: " smith "})
	require.NoError(t, err)
	require.NotNil(t, f.Status)
	assert.Equal(t, models.StatusApproved, *f.Status)
	assert.Equal(t, "data-science", f.Department)
	assert.Equal(t, "smith", f.Search)

	_, err = query.AdminFilter(dto.AdminAppointmentsQuery{Status: "archived"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = query.AdminFilter(dto.AdminAppointmentsQuery{Search: strings.Repeat("x", 101)})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = query.AdminFilter(dto.AdminAppointmentsQuery{Date: "tomorrow"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestTeacherStatusValidatesQuery(t *testing.T) {
	query := NewQueryService(nil, nil, nil, nil, zap.NewNop())

	status, err := query.TeacherStatus(dto.TeacherAppointmentsQuery{Status: "Pending"})
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, models.StatusPending, *status)

	status, err = query.TeacherStatus(dto.TeacherAppointmentsQuery{})
	require.NoError(t, err)
	assert.Nil(t, status)

	_, err = query.TeacherStatus(dto.TeacherAppointmentsQuery{Status: "done"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestGetRespectsVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, studentSam, "t@x.edu", 1)

	for _, actor := range []models.Actor{studentSam, teacherSmith, admin} {
		got, err := f.query.Get(ctx, actor, appt.ID)
		require.NoError(t, err, actor.Email)
		assert.Equal(t, appt.ID, got.ID)
	}
	for _, actor := range []models.Actor{studentJo, teacherAda} {
		_, err := f.query.Get(ctx, actor, appt.ID)
		assert.ErrorIs(t, err, appErrors.ErrForbidden, actor.Email)
	}
}

func TestQueriesNeverWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, studentSam, "t@x.edu", 1)

	_, _ = f.query.ListAll(ctx, admin)
	_, _ = f.query.ForDepartment(ctx, admin, "data-science")
	_, _ = f.query.ForStudent(ctx, studentSam, "s@x.edu")
	assert.Equal(t, 0, f.repo.writeCount())
}

type mapCache struct {
	values     map[string]AppointmentView
	gets       int
	generation uint64
}

func (m *mapCache) Get(ctx context.Context, key string, dest interface{}) bool {
	m.gets++
	v, ok := m.values[key]
	if ok {
		*dest.(*AppointmentView) = v
	}
	return ok
}

func (m *mapCache) Generation() uint64 { return m.generation }

func (m *mapCache) SetIfGeneration(ctx context.Context, key string, value interface{}, generation uint64) bool {
	if generation != m.generation {
		return false
	}
	m.values[key] = value.(AppointmentView)
	return true
}

func (m *mapCache) Invalidate(ctx context.Context, pattern string) {
	m.generation++
	m.values = map[string]AppointmentView{}
}

// invalidatingReader simulates a write that commits while a view is being computed.
type invalidatingReader struct {
	appointmentReader
	cache *mapCache
}

func (r invalidatingReader) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	items, err := r.appointmentReader.List(ctx, filter)
	r.cache.Invalidate(ctx, viewCachePattern)
	return items, err
}

func TestForDepartmentUsesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, studentSam, "t@x.edu", 1)

	cache := &mapCache{values: map[string]AppointmentView{}}
	query := NewQueryService(f.store, f.directory, nil, nil, zap.NewNop())
	query.cache = cache

	first, err := query.ForDepartment(ctx, admin, "data-science")
	require.NoError(t, err)
	require.Contains(t, cache.values, departmentCacheKey("data-science"))

	f.repo.listErr = assert.AnError
	second, err := query.ForDepartment(ctx, admin, "data-science")
	require.NoError(t, err, "served from cache")
	assert.Equal(t, ids(first.Items), ids(second.Items))
	assert.Equal(t, 2, cache.gets)
}

func TestForDepartmentSkipsCacheFillAfterConcurrentInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, studentSam, "t@x.edu", 1)

	cache := &mapCache{values: map[string]AppointmentView{}}
	query := NewQueryService(invalidatingReader{appointmentReader: f.store, cache: cache}, f.directory, nil, nil, zap.NewNop())
	query.cache = cache

	view, err := query.ForDepartment(ctx, admin, "data-science")
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
	assert.NotContains(t, cache.values, departmentCacheKey("data-science"))
}
