package usecase

import (
	"context"
	"testing"
	"time"

	"medqueue-portal/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queueFixture struct {
	api     *fakeHospitalAPI
	repo    *memSessionRepo
	audit   *fakeAudit
	session *entity.Session
	usecase QueueManagementUsecase
}

func newQueueFixture(t *testing.T) *queueFixture {
	t.Helper()
	f := &queueFixture{
		api: &fakeHospitalAPI{
			appointments: []entity.Appointment{
				appt("1", "101", "Asha Patel", entity.AppointmentStatusWaiting),
				appt("2", "102", "Ravi Kumar", entity.AppointmentStatusPending),
				appt("3", "103", "Neha Roy", entity.AppointmentStatusArrived),
				appt("4", "104", "Om Prakash", "inprogress"),
				appt("5", "105", "Meena Shah", entity.AppointmentStatusCompleted),
			},
		},
		audit:   &fakeAudit{},
		session: doctorSession("s-queue"),
	}
	f.api.doctors = []entity.Doctor{
		{ID: "20", FullName: "Dr. Iyer", DepartmentRef: "8"},
		{ID: "21", FullName: "Dr. Sen"},
	}
	f.repo = newMemSessionRepo(f.session)
	f.usecase = NewQueueManagementUsecase(testLogger(), newFakeRegistry(f.api), f.repo, &passLocker{}, f.audit,
		&fixedClock{now: day(2026, time.March, 10)})
	return f
}

func TestQueueManagement_StatsAndSearch(t *testing.T) {
	f := newQueueFixture(t)

	view, err := f.usecase.GetQueue(context.Background(), f.session, "")
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Waiting: 3, InProgress: 1, Completed: 1, Total: 5}, view.Stats)
	assert.Equal(t, 5, view.Found)
	assert.Equal(t, []string{"2026-03-10"}, f.api.appointmentOn)

	view, err = f.usecase.GetQueue(context.Background(), f.session, "RAVI")
	require.NoError(t, err)
	assert.Equal(t, []string{"102"}, tokensOf(view.Appointments))
	assert.Equal(t, 5, view.Stats.Total)

	view, err = f.usecase.GetQueue(context.Background(), f.session, "10")
	require.NoError(t, err)
	assert.Equal(t, 5, view.Found)
}

func TestQueueManagement_Move(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	view, err := f.usecase.Move(ctx, f.session, "103", MoveUp)
	require.NoError(t, err)
	assert.Equal(t, []string{"101", "103", "102", "104", "105"}, tokensOf(view.Appointments))

	// the overlay survives a reload
	view, err = f.usecase.GetQueue(ctx, f.session, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"101", "103", "102", "104", "105"}, tokensOf(view.Appointments))

	_, err = f.usecase.Move(ctx, f.session, "101", MoveUp)
	assert.ErrorIs(t, err, ErrCannotMove)
	_, err = f.usecase.Move(ctx, f.session, "105", MoveDown)
	assert.ErrorIs(t, err, ErrCannotMove)
	_, err = f.usecase.Move(ctx, f.session, "999", MoveDown)
	assert.ErrorIs(t, err, ErrTokenNotInQueue)
	_, err = f.usecase.Move(ctx, f.session, "101", "sideways")
	assert.ErrorIs(t, err, ErrInvalidMoveDirection)
}

func TestApplyQueueOrder_IgnoresGoneTokens(t *testing.T) {
	list := []entity.Appointment{appt("1", "1", "A", ""), appt("2", "2", "B", ""), appt("3", "3", "C", "")}

	got := ApplyQueueOrder(list, []entity.Token{"3", "gone", "1"})
	assert.Equal(t, []string{"3", "1", "2"}, tokensOf(got))
}

func TestQueueManagement_PauseResume(t *testing.T) {
	f := newQueueFixture(t)

	view, err := f.usecase.SetPaused(context.Background(), f.session, true)
	require.NoError(t, err)
	assert.True(t, view.Paused)

	view, err = f.usecase.SetPaused(context.Background(), f.session, false)
	require.NoError(t, err)
	assert.False(t, view.Paused)
}

func TestQueueManagement_StartConsultation(t *testing.T) {
	f := newQueueFixture(t)

	a, err := f.usecase.StartConsultation(context.Background(), f.session, "2")
	require.NoError(t, err)
	assert.Equal(t, entity.Token("102"), a.TokenNumber)
	assert.Equal(t, []entity.ID{"2"}, f.api.started)

	_, err = f.usecase.StartConsultation(context.Background(), f.session, "77")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestQueueManagement_Reassign(t *testing.T) {
	f := newQueueFixture(t)
	f.api.appointments[0].DoctorID = "9"
	f.api.appointments[0].DepartmentID = "7"
	f.api.appointments[0].AppointmentDate = "2026-03-10"
	f.api.appointments[0].TimeSlot = "10:30"
	f.api.appointments[0].Reason = "Follow-up"
	f.api.appointments[0].BookingType = "Follow-up"
	f.api.appointments[0].IsForSelf = true
	ctx := context.Background()

	a, err := f.usecase.Reassign(ctx, f.session, "1", "20")
	require.NoError(t, err)
	assert.Equal(t, entity.ID("20"), a.DoctorID)

	require.Len(t, f.api.rescheduled, 1)
	call := f.api.rescheduled[0]
	assert.Equal(t, entity.ID("1"), call.id)
	assert.Equal(t, entity.ID("20"), call.req.Doctor)
	assert.Equal(t, entity.ID("8"), call.req.Department)
	assert.Equal(t, "2026-03-10", call.req.AppointmentDate)
	assert.Equal(t, "10:30", call.req.TimeSlot)
	assert.Equal(t, "Follow-up", call.req.Reason)
	assert.True(t, call.req.IsForSelf)

	// a doctor without a department keeps the appointment's
	_, err = f.usecase.Reassign(ctx, f.session, "1", "21")
	require.NoError(t, err)
	assert.Equal(t, entity.ID("7"), f.api.rescheduled[1].req.Department)

	_, err = f.usecase.Reassign(ctx, f.session, "1", "9")
	assert.ErrorIs(t, err, ErrReassignSameDoctor)
	_, err = f.usecase.Reassign(ctx, f.session, "1", "404")
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	assert.Equal(t, []string{entity.AuditActionAppointmentReassign, entity.AuditActionAppointmentReassign}, f.audit.actions())
}

func TestQueueManagement_NoShowAndWalkIn(t *testing.T) {
	f := newQueueFixture(t)

	_, err := f.usecase.MarkNoShow(context.Background(), f.session, "3")
	require.NoError(t, err)
	require.Len(t, f.api.ended, 1)
	assert.True(t, f.api.ended[0].req.NoShow)
	assert.Equal(t, "Marked as no-show via queue UI", f.api.ended[0].req.Notes)

	assert.ErrorIs(t, f.usecase.AddWalkIn(context.Background(), f.session), ErrWalkInUnsupported)
}
