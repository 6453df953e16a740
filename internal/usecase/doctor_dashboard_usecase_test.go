package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"medqueue-portal/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dashboardFixture struct {
	api     *fakeHospitalAPI
	repo    *memSessionRepo
	locker  *passLocker
	audit   *fakeAudit
	watcher *syncWatcher
	session *entity.Session
	usecase DoctorDashboardUsecase
}

func newDashboardFixture(t *testing.T, appointments ...entity.Appointment) *dashboardFixture {
	t.Helper()
	f := &dashboardFixture{
		api: &fakeHospitalAPI{
			dashboard: &entity.Dashboard{
				Profile:           &entity.DoctorProfile{FullName: "Asha Rao"},
				CurrentQueue:      &entity.QueueStatus{},
				TodayAppointments: appointments,
			},
		},
		locker:  &passLocker{},
		audit:   &fakeAudit{},
		watcher: &syncWatcher{},
		session: doctorSession("s-doc"),
	}
	f.repo = newMemSessionRepo(f.session)
	f.usecase = NewDoctorDashboardUsecase(testLogger(), newFakeRegistry(f.api), f.repo, f.watcher, f.locker, f.audit,
		&fixedClock{now: day(2026, time.March, 10)})
	return f
}

func defaultDay() []entity.Appointment {
	return []entity.Appointment{
		appt("1", "1", "Done Patient", entity.AppointmentStatusCompleted),
		appt("2", "2", "Ravi Kumar", entity.AppointmentStatusWaiting),
		appt("3", "3", "Meena Shah", entity.AppointmentStatusScheduled),
		appt("4", "4", "Arjun Das", entity.AppointmentStatusConfirmed),
	}
}

func tokensOf(list []entity.Appointment) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.TokenNumber.String()
	}
	return out
}

func TestDoctorDashboard_View(t *testing.T) {
	f := newDashboardFixture(t, defaultDay()...)

	view, err := f.usecase.GetDashboard(context.Background(), f.session)
	require.NoError(t, err)

	assert.Equal(t, "Dr. Asha Rao", view.Doctor.Name)
	assert.Equal(t, "General Physician", view.Doctor.Specialty)
	assert.Equal(t, entity.AvailabilityOnline, view.Status)
	assert.Equal(t, []string{"2", "3", "4"}, tokensOf(view.Queue))
	assert.Equal(t, []string{"3", "4"}, tokensOf(view.Upcoming))
	require.NotNil(t, view.Active)
	assert.Equal(t, entity.Token("2"), view.Active.TokenNumber)
	assert.False(t, view.TooManyPatients)
}

func TestDoctorDashboard_ActiveFollowsCurrentToken(t *testing.T) {
	f := newDashboardFixture(t, defaultDay()...)

	f.api.dashboard.CurrentQueue.CurrentToken = "3"
	view, err := f.usecase.GetDashboard(context.Background(), f.session)
	require.NoError(t, err)
	require.NotNil(t, view.Active)
	assert.Equal(t, entity.Token("3"), view.Active.TokenNumber)

	// an unknown current token leaves nobody active
	f.api.dashboard.CurrentQueue.CurrentToken = "99"
	view, err = f.usecase.GetDashboard(context.Background(), f.session)
	require.NoError(t, err)
	assert.Nil(t, view.Active)
}

func TestDoctorDashboard_TooManyPatients(t *testing.T) {
	var list []entity.Appointment
	for i := 1; i <= 6; i++ {
		id := string(rune('0' + i))
		list = append(list, appt(id, id, "P "+id, entity.AppointmentStatusWaiting))
	}
	f := newDashboardFixture(t, list...)

	view, err := f.usecase.GetDashboard(context.Background(), f.session)
	require.NoError(t, err)
	assert.True(t, view.TooManyPatients)
}

func TestDoctorDashboard_CallNext(t *testing.T) {
	f := newDashboardFixture(t, defaultDay()...)

	result, err := f.usecase.CallNext(context.Background(), f.session)
	require.NoError(t, err)

	assert.Equal(t, "Token #2 now in consultation.", result.Message)
	assert.Equal(t, []entity.ID{"2"}, f.api.started)
	require.NotNil(t, result.View.Active)
	assert.Equal(t, entity.AppointmentStatusInProgress, result.View.Active.Status)
	assert.Equal(t, []string{"consultation:9"}, f.locker.keys)
	assert.Equal(t, []string{entity.AuditActionConsultationStart}, f.audit.actions())
}

func TestDoctorDashboard_CallNextWithEmptyQueue(t *testing.T) {
	f := newDashboardFixture(t, appt("1", "1", "Done", entity.AppointmentStatusCompleted))

	_, err := f.usecase.CallNext(context.Background(), f.session)
	assert.ErrorIs(t, err, ErrNoNextPatient)
	assert.Empty(t, f.api.started)
}

func TestDoctorDashboard_EndConsultationCallsNext(t *testing.T) {
	f := newDashboardFixture(t, defaultDay()...)
	ctx := context.Background()

	_, err := f.usecase.CallNext(ctx, f.session)
	require.NoError(t, err)

	result, err := f.usecase.EndConsultation(ctx, f.session)
	require.NoError(t, err)

	require.Len(t, f.api.ended, 1)
	assert.Equal(t, entity.ID("2"), f.api.ended[0].id)
	assert.Equal(t, "Consultation completed successfully.", f.api.ended[0].req.Notes)
	assert.False(t, f.api.ended[0].req.NoShow)

	assert.Equal(t, []entity.ID{"2", "3"}, f.api.started)
	require.NotNil(t, result.Next)
	assert.Equal(t, entity.Token("3"), result.Next.TokenNumber)
	assert.Equal(t, "Consultation ended. Token #3 now in consultation.", result.Message)
	assert.Equal(t, []string{
		entity.AuditActionConsultationStart,
		entity.AuditActionConsultationEnd,
		entity.AuditActionConsultationStart,
	}, f.audit.actions())
}

func TestDoctorDashboard_NoShowWithoutNextPatient(t *testing.T) {
	f := newDashboardFixture(t,
		appt("1", "1", "Done", entity.AppointmentStatusCompleted),
		appt("2", "2", "Ravi Kumar", entity.AppointmentStatusInProgress),
	)
	f.api.dashboard.CurrentQueue.CurrentToken = "2"

	result, err := f.usecase.MarkNoShow(context.Background(), f.session)
	require.NoError(t, err)

	require.Len(t, f.api.ended, 1)
	assert.True(t, f.api.ended[0].req.NoShow)
	assert.Equal(t, "Patient marked as no-show.", f.api.ended[0].req.Notes)
	assert.Nil(t, result.Next)
	assert.Equal(t, "Patient marked as no-show.", result.Message)
	assert.Empty(t, result.View.Queue)
}

func TestDoctorDashboard_EndKeepsResultWhenReloadFails(t *testing.T) {
	f := newDashboardFixture(t,
		appt("2", "2", "Ravi Kumar", entity.AppointmentStatusInProgress),
		appt("3", "3", "Meena Shah", entity.AppointmentStatusWaiting),
	)
	f.api.dashboard.CurrentQueue.CurrentToken = "2"
	f.api.endBreaksDashboard = errors.New("dial tcp: connection refused")

	result, err := f.usecase.EndConsultation(context.Background(), f.session)
	require.NoError(t, err)

	require.Len(t, f.api.ended, 1)
	assert.Equal(t, "Consultation ended.", result.Message)
	assert.Equal(t, staleViewWarning, result.Warning)
	assert.Nil(t, result.View)
	assert.Nil(t, result.Next)
	assert.Empty(t, f.api.started)
	assert.Equal(t, []string{entity.AuditActionConsultationEnd}, f.audit.actions())
}

func TestDoctorDashboard_EndWithoutActive(t *testing.T) {
	f := newDashboardFixture(t, appt("1", "1", "Done", entity.AppointmentStatusCompleted))

	_, err := f.usecase.EndConsultation(context.Background(), f.session)
	assert.ErrorIs(t, err, ErrNoActiveConsultation)

	_, err = f.usecase.MarkNoShow(context.Background(), f.session)
	assert.ErrorIs(t, err, ErrNoActivePatient)
	assert.Empty(t, f.api.ended)
}

func TestDoctorDashboard_SetAvailability(t *testing.T) {
	f := newDashboardFixture(t, defaultDay()...)

	_, err := f.usecase.SetAvailability(context.Background(), f.session, "sleeping")
	assert.ErrorIs(t, err, ErrInvalidAvailabilityStatus)

	view, err := f.usecase.SetAvailability(context.Background(), f.session, entity.AvailabilityOffline)
	require.NoError(t, err)
	assert.Equal(t, entity.AvailabilityOffline, view.Status)

	require.Len(t, f.api.availability, 1)
	got := f.api.availability[0]
	assert.Equal(t, "tuesday", got.DayOfWeek)
	assert.Equal(t, "09:00", got.StartTime)
	assert.Equal(t, "17:00", got.EndTime)
	assert.False(t, got.IsAvailable)
	assert.False(t, got.IsActive)

	view, err = f.usecase.SetAvailability(context.Background(), f.session, entity.AvailabilityOnline)
	require.NoError(t, err)
	assert.Equal(t, entity.AvailabilityOnline, view.Status)
	assert.True(t, f.api.availability[1].IsAvailable)
}

func TestDoctorDashboard_PauseTokens(t *testing.T) {
	f := newDashboardFixture(t, defaultDay()...)

	result, err := f.usecase.PauseTokens(context.Background(), f.session)
	require.NoError(t, err)

	assert.Equal(t, "Doctor paused accepting tokens.", result.Message)
	assert.Equal(t, entity.AvailabilityPaused, result.View.Status)
	require.Len(t, f.api.availability, 1)
	assert.Equal(t, entity.DoctorAvailability{}, f.api.availability[0])

	stored, err := f.repo.FindByID(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.AvailabilityPaused, stored.DoctorStatus)
}

func TestDoctorDashboard_Watch(t *testing.T) {
	f := newDashboardFixture(t, defaultDay()...)

	snapshot, err := f.usecase.Watch(context.Background(), f.session)
	require.NoError(t, err)
	view, ok := snapshot.Data.(*DashboardView)
	require.True(t, ok)
	assert.Len(t, view.Queue, 3)
	assert.Equal(t, []string{ScreenDashboard}, f.watcher.attached)

	assert.True(t, f.usecase.StopWatch(context.Background(), f.session.ID))
	assert.Equal(t, []string{ScreenDashboard}, f.watcher.stopped)
}
