package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-appointment-api/internal/dto"
	"github.com/noah-isme/sma-appointment-api/internal/models"
	appErrors "github.com/noah-isme/sma-appointment-api/pkg/errors"
)

func (f *fixture) book(t *testing.T, student models.Actor, teacher string, days int) *models.Appointment {
	t.Helper()
	req := f.bookingRequest(days, "10:00")
	req.StudentEmail = student.Email
	req.TeacherEmail = teacher
	appt, err := f.booking.Book(context.Background(), student, req)
	require.NoError(t, err)
	return appt
}

func TestLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt := f.book(t, studentSam, "t@x.edu", 10)
	assert.Equal(t, models.StatusPending, appt.Status)

	approved, err := f.approval.ToggleApproval(ctx, appt.ID, teacherSmith)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)

	cancelled, err := f.approval.Cancel(ctx, appt.ID, studentSam)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	_, err = f.approval.ToggleApproval(ctx, appt.ID, teacherSmith)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	stored, err := f.store.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	assert.Equal(t, 3, stored.Version)
}

func TestToggleIsItsOwnInverse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fromPending := f.book(t, studentSam, "t@x.edu", 2)
	_, err := f.approval.ToggleApproval(ctx, fromPending.ID, teacherSmith)
	require.NoError(t, err)
	back, err := f.approval.ToggleApproval(ctx, fromPending.ID, teacherSmith)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, back.Status)
	assert.Equal(t, 2, f.repo.writeCount())

	fromApproved := f.book(t, studentSam, "t@x.edu", 3)
	_, err = f.approval.SetStatus(ctx, fromApproved.ID, models.StatusApproved, admin)
	require.NoError(t, err)
	before := f.repo.writeCount()
	_, err = f.approval.ToggleApproval(ctx, fromApproved.ID, admin)
	require.NoError(t, err)
	again, err := f.approval.ToggleApproval(ctx, fromApproved.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, again.Status)
	assert.Equal(t, before+2, f.repo.writeCount())
}

func TestCancelTwiceIsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, studentSam, "t@x.edu", 4)

	_, err := f.approval.Cancel(ctx, appt.ID, teacherSmith)
	require.NoError(t, err)
	_, err = f.approval.Cancel(ctx, appt.ID, teacherSmith)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	_, err = f.approval.SetStatus(ctx, appt.ID, models.StatusPending, admin)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestSetStatusSameStatusIsRejected(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, studentSam, "t@x.edu", 4)

	_, err := f.approval.SetStatus(context.Background(), appt.ID, models.StatusPending, teacherSmith)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	assert.Equal(t, 0, f.repo.writeCount())
}

func TestApprovalAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, studentSam, "t@x.edu", 4)

	_, err := f.approval.SetStatus(ctx, appt.ID, models.StatusApproved, teacherAda)
	assert.ErrorIs(t, err, appErrors.ErrForbidden, "other teacher")

	_, err = f.approval.SetStatus(ctx, appt.ID, models.StatusApproved, studentSam)
	assert.ErrorIs(t, err, appErrors.ErrForbidden, "students cannot approve")

	_, err = f.approval.ToggleApproval(ctx, appt.ID, studentSam)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.approval.Cancel(ctx, appt.ID, studentJo)
	assert.ErrorIs(t, err, appErrors.ErrForbidden, "other student")

	cancelled, err := f.approval.SetStatus(ctx, appt.ID, models.StatusCancelled, studentSam)
	require.NoError(t, err, "owning student may cancel through SetStatus")
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
}

func TestApprovalUnknownAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.approval.ToggleApproval(ctx, uuid.NewString(), admin)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.approval.Cancel(ctx, "not-a-uuid", admin)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.approval.SetStatus(ctx, uuid.NewString(), "archived", admin)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestApprovalRecordsAuditTrail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, studentSam, "t@x.edu", 4)

	_, err := f.approval.ToggleApproval(ctx, appt.ID, teacherSmith)
	require.NoError(t, err)
	_, err = f.approval.Cancel(ctx, appt.ID, admin)
	require.NoError(t, err)

	entries := f.audit.all()
	require.Len(t, entries, 3)
	assert.Equal(t, models.AuditActionStatusChanged, entries[1].Action)
	assert.Equal(t, models.StatusPending, *entries[1].OldStatus)
	assert.Equal(t, models.StatusApproved, *entries[1].NewStatus)
	assert.Equal(t, models.AuditActionCancelled, entries[2].Action)
	assert.Equal(t, "admin@x.edu", entries[2].ActorEmail)
}

func TestStaleWriteIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, studentSam, "t@x.edu", 4)

	stale, err := f.store.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	_, err = f.store.UpdateStatus(ctx, appt.ID, models.StatusApproved)
	require.NoError(t, err)

	_, err = f.store.Transition(ctx, stale, models.StatusCancelled)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().ConflictsTotal)

	current, err := f.store.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, current.Status, "losing write must not apply")
}

func TestConcurrentTogglesNeverLoseWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, studentSam, "t@x.edu", 4)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.approval.ToggleApproval(ctx, appt.ID, teacherSmith)
			if err != nil {
				assert.True(t, errors.Is(err, appErrors.ErrConflict), "unexpected error %v", err)
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	stored, err := f.store.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, succeeded, 1)
	assert.Equal(t, 1+succeeded, stored.Version)
	assert.Equal(t, succeeded, f.repo.writeCount())
}

func TestUpdateStatusValidatesPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, studentSam, "t@x.edu", 4)

	_, err := f.approval.UpdateStatus(ctx, appt.ID, dto.UpdateStatusRequest{}, teacherSmith)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = f.approval.UpdateStatus(ctx, appt.ID, dto.UpdateStatusRequest{Status: "archived"}, teacherSmith)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, 0, f.repo.writeCount())

	approved, err := f.approval.UpdateStatus(ctx, appt.ID, dto.UpdateStatusRequest{Status: " Approved "}, teacherSmith)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
}
