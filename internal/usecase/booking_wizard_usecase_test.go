package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/infrastructure/hospitalapi"
	"medqueue-portal/pkg/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wizardFixture struct {
	catalog   *fakeCatalog
	slots     *fakeSlots
	gateway   *fakeBookingGateway
	clock     *fixedClock
	confirmed []entity.BookingResult
	wizard    BookingWizard
}

func newWizardFixture(t *testing.T) *wizardFixture {
	t.Helper()
	f := &wizardFixture{
		catalog: &fakeCatalog{
			departments: []entity.Department{{ID: "7", Name: "Cardiology"}, {ID: "8", Name: "Neurology"}},
			doctors: []entity.Doctor{
				{ID: "1", FullName: "Dr. Rao", DepartmentRef: "7"},
				{ID: "2", FullName: "Dr. Iyer", Department: &entity.DepartmentRef{ID: "8"}},
				{ID: "3", FullName: "Dr. Sen", DepartmentRef: "7"},
				{ID: "4", FullName: "Dr. Nobody"},
			},
		},
		slots:   &fakeSlots{slots: map[entity.ID][]entity.Slot{}},
		gateway: &fakeBookingGateway{},
		clock:   &fixedClock{now: day(2026, time.March, 10)},
	}
	log := testLogger()
	f.wizard = NewBookingWizard(BookingWizardDeps{
		Cache:     NewDataCache(f.catalog, log),
		Slots:     NewSlotResolver(f.slots, log, SlotPolicy{FutureFallback: true}),
		Gateway:   f.gateway,
		Validator: validator.NewValidator(),
		Clock:     f.clock,
		Log:       log,
		OnConfirmed: func(ctx context.Context, result entity.BookingResult) {
			f.confirmed = append(f.confirmed, result)
		},
	})
	return f
}

func TestBookingWizard_InitialState(t *testing.T) {
	f := newWizardFixture(t)

	state := f.wizard.Snapshot(context.Background())
	assert.Equal(t, entity.StepPatientSelect, state.Step)
	assert.Equal(t, "patient_select", state.StepName)
	assert.Equal(t, entity.PatientModeSelf, state.Selection.PatientMode)
	assert.Equal(t, entity.BookingMethodDepartment, state.Selection.Method)
	assert.Equal(t, 2026, state.Calendar.Year)
	assert.Equal(t, time.March, state.Calendar.Month)
}

func TestBookingWizard_OtherPatientRequiresDetails(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	_, err := f.wizard.SetPatientMode(entity.PatientModeOther)
	require.NoError(t, err)

	state, err := f.wizard.Next(ctx)
	assert.ErrorIs(t, err, ErrPatientDetailsRequired)
	assert.Equal(t, entity.StepPatientSelect, state.Step)

	_, err = f.wizard.SetPatientDetails(entity.PatientDetails{Name: "Asha", Age: "34", Gender: entity.GenderFemale})
	require.NoError(t, err)
	_, err = f.wizard.Next(ctx)
	assert.ErrorIs(t, err, ErrPatientDetailsRequired)

	_, err = f.wizard.SetPatientDetails(entity.PatientDetails{Name: "Asha", Age: "34", Gender: entity.GenderFemale, IDNumber: "1234"})
	require.NoError(t, err)
	state, err = f.wizard.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.StepMethodSelect, state.Step)
}

func TestBookingWizard_SelfSkipsDetails(t *testing.T) {
	f := newWizardFixture(t)

	state, err := f.wizard.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.StepMethodSelect, state.Step)
}

func TestBookingWizard_InvalidInputs(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	_, err := f.wizard.SetPatientMode("friend")
	assert.ErrorIs(t, err, ErrInvalidPatientMode)

	_, err = f.wizard.SelectMethod(ctx, "symptom")
	assert.ErrorIs(t, err, ErrInvalidBookingMethod)

	_, err = f.wizard.SelectDate(ctx, "10/03/2026")
	assert.ErrorIs(t, err, ErrInvalidDateFormat)

	_, err = f.wizard.SelectDate(ctx, "2026-03-09")
	assert.ErrorIs(t, err, ErrPastDate)

	_, err = f.wizard.SelectDoctor(ctx, "99")
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestBookingWizard_ProviderStepRequiresDoctor(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	_, _ = f.wizard.Next(ctx)
	_, _ = f.wizard.Next(ctx)

	state, err := f.wizard.Next(ctx)
	assert.ErrorIs(t, err, ErrDoctorRequired)
	assert.Equal(t, entity.StepProviderSelect, state.Step)
}

func TestBookingWizard_DepartmentAutoSelectsFirstDoctor(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	state, err := f.wizard.SelectDepartment(ctx, "7")
	require.NoError(t, err)

	require.Len(t, state.Doctors, 2)
	assert.Equal(t, entity.ID("1"), state.Doctors[0].ID)
	assert.Equal(t, entity.ID("3"), state.Doctors[1].ID)
	require.NotNil(t, state.Selection.Doctor)
	assert.Equal(t, entity.ID("1"), state.Selection.Doctor.ID)
	assert.Equal(t, entity.ID("7"), state.Selection.DepartmentID)
	assert.EqualValues(t, 1, f.catalog.doctorCalls.Load())
}

func TestBookingWizard_EmptyDepartmentClearsDoctor(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	_, err := f.wizard.SelectDepartment(ctx, "7")
	require.NoError(t, err)

	state, err := f.wizard.SelectDepartment(ctx, "42")
	require.NoError(t, err)
	assert.Empty(t, state.Doctors)
	assert.Nil(t, state.Selection.Doctor)
	assert.Equal(t, entity.ID("42"), state.Selection.DepartmentID)
}

func TestBookingWizard_DoctorDerivesDepartment(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	state, err := f.wizard.SelectDoctor(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, entity.ID("8"), state.Selection.DepartmentID)

	state, err = f.wizard.SelectDoctor(ctx, "4")
	require.NoError(t, err)
	assert.True(t, state.Selection.DepartmentID.IsZero())
	assert.Equal(t, entity.ID("4"), state.Selection.Doctor.ID)
}

func TestBookingWizard_MethodChangeClearsProvider(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	_, err := f.wizard.SelectDepartment(ctx, "7")
	require.NoError(t, err)

	state, err := f.wizard.SelectMethod(ctx, entity.BookingMethodDoctor)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingMethodDoctor, state.Selection.Method)
	assert.Nil(t, state.Selection.Doctor)
	assert.True(t, state.Selection.DepartmentID.IsZero())
	assert.Empty(t, state.Selection.AssignedTime)
}

func TestBookingWizard_DoctorMethodLoadsAllDoctors(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	_, _ = f.wizard.Next(ctx)
	_, err := f.wizard.SelectMethod(ctx, entity.BookingMethodDoctor)
	require.NoError(t, err)

	state, err := f.wizard.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.StepProviderSelect, state.Step)
	assert.Len(t, state.Doctors, 4)
}

func TestBookingWizard_BackKeepsData(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	_, _ = f.wizard.Next(ctx)
	_, _ = f.wizard.Next(ctx)
	_, err := f.wizard.SelectDoctor(ctx, "1")
	require.NoError(t, err)
	_, err = f.wizard.Next(ctx)
	require.NoError(t, err)

	state := f.wizard.Back()
	assert.Equal(t, entity.StepProviderSelect, state.Step)
	require.NotNil(t, state.Selection.Doctor)
	assert.Equal(t, entity.ID("1"), state.Selection.Doctor.ID)

	state = f.wizard.Back()
	state = f.wizard.Back()
	assert.Equal(t, entity.StepPatientSelect, state.Step)
	state = f.wizard.Back()
	assert.Equal(t, entity.StepPatientSelect, state.Step)
	assert.Equal(t, entity.ID("7"), state.Selection.DepartmentID)
}

func TestBookingWizard_DateResolvesFirstSlot(t *testing.T) {
	f := newWizardFixture(t)
	f.slots.slots["1"] = []entity.Slot{{Value: "10:30", Display: "10:30 AM"}, {Value: "11:00"}}
	ctx := context.Background()

	_, err := f.wizard.SelectDoctor(ctx, "1")
	require.NoError(t, err)
	state, err := f.wizard.SelectDate(ctx, "2026-03-12")
	require.NoError(t, err)

	assert.Equal(t, "2026-03-12", state.Selection.Date)
	assert.Equal(t, "10:30", state.Selection.AssignedTime)
	assert.Len(t, state.Slots, 2)
	assert.False(t, state.SlotsLoading)
}

func TestBookingWizard_SlotFailureFallsBack(t *testing.T) {
	f := newWizardFixture(t)
	f.slots.err = errors.New("boom")
	ctx := context.Background()

	_, err := f.wizard.SelectDoctor(ctx, "1")
	require.NoError(t, err)
	state, err := f.wizard.SelectDate(ctx, "2026-03-10")
	require.NoError(t, err)
	assert.Empty(t, state.Slots)
	assert.Equal(t, "09:00", state.Selection.AssignedTime)
}

func TestBookingWizard_StaleSlotResponseDiscarded(t *testing.T) {
	f := newWizardFixture(t)
	gate := make(chan struct{})
	f.slots.gates = map[entity.ID]chan struct{}{"1": gate}
	f.slots.slots["1"] = []entity.Slot{{Value: "08:00"}}
	f.slots.slots["2"] = []entity.Slot{{Value: "14:15"}}
	ctx := context.Background()

	_, err := f.wizard.SelectDate(ctx, "2026-03-11")
	require.NoError(t, err)

	done := make(chan WizardState, 1)
	go func() {
		state, _ := f.wizard.SelectDoctor(ctx, "1")
		done <- state
	}()
	require.Eventually(t, func() bool {
		f.slots.mu.Lock()
		defer f.slots.mu.Unlock()
		return len(f.slots.calls) == 1
	}, time.Second, 5*time.Millisecond)

	state := f.wizard.Snapshot(ctx)
	assert.True(t, state.SlotsLoading)
	assert.Empty(t, state.Selection.AssignedTime)

	state, err = f.wizard.SelectDoctor(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "14:15", state.Selection.AssignedTime)

	close(gate)
	<-done

	state = f.wizard.Snapshot(ctx)
	assert.Equal(t, entity.ID("2"), state.Selection.Doctor.ID)
	assert.Equal(t, "14:15", state.Selection.AssignedTime)
	assert.Equal(t, []entity.Slot{{Value: "14:15"}}, state.Slots)
}

func TestBookingWizard_SubmitRequiresDateTime(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	_, err := f.wizard.Submit(ctx)
	assert.ErrorIs(t, err, ErrNotAtDateTimeStep)

	_, _ = f.wizard.Next(ctx)
	_, _ = f.wizard.Next(ctx)
	_, _ = f.wizard.SelectDoctor(ctx, "1")
	_, err = f.wizard.Next(ctx)
	require.NoError(t, err)

	state, err := f.wizard.Next(ctx)
	assert.ErrorIs(t, err, ErrDateTimeRequired)
	assert.Equal(t, entity.StepDateTimeSelect, state.Step)
	assert.Empty(t, f.gateway.requests)
}

func TestBookingWizard_EndToEnd(t *testing.T) {
	f := newWizardFixture(t)
	f.slots.slots["123"] = nil
	f.catalog.doctors = append(f.catalog.doctors, entity.Doctor{ID: "123", FullName: "Dr. Mehta", Department: &entity.DepartmentRef{ID: "7"}})
	f.gateway.token = "A-042"
	ctx := context.Background()

	_, err := f.wizard.SetPatientMode(entity.PatientModeOther)
	require.NoError(t, err)
	_, err = f.wizard.SetPatientDetails(entity.PatientDetails{Name: "Ravi", Age: "61", Gender: entity.GenderMale, IDNumber: "9988", Relation: "father"})
	require.NoError(t, err)
	_, err = f.wizard.Next(ctx)
	require.NoError(t, err)
	_, err = f.wizard.SelectMethod(ctx, entity.BookingMethodDoctor)
	require.NoError(t, err)
	_, err = f.wizard.Next(ctx)
	require.NoError(t, err)
	_, err = f.wizard.SelectDoctor(ctx, "123")
	require.NoError(t, err)
	_, err = f.wizard.Next(ctx)
	require.NoError(t, err)
	state, err := f.wizard.SelectDate(ctx, "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, "09:00", state.Selection.AssignedTime)

	state, err = f.wizard.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.StepConfirmed, state.Step)
	require.NotNil(t, state.Result)
	assert.Equal(t, entity.Token("A-042"), state.Result.TokenNumber)
	assert.Equal(t, "Dr. Mehta", state.Result.DoctorName)
	assert.Equal(t, "2026-03-10", state.Result.Date)
	assert.Equal(t, "09:00", state.Result.Time)

	require.Len(t, f.gateway.requests, 1)
	assert.Equal(t, hospitalapi.CreateAppointmentRequest{
		Doctor:          "123",
		Department:      "7",
		AppointmentDate: "2026-03-10",
		TimeSlot:        "09:00:00",
		Reason:          "Consultation",
		BookingType:     "doctor",
		IsForSelf:       false,
		PatientRelation: "father",
	}, f.gateway.requests[0])
	require.Len(t, f.confirmed, 1)
	assert.Equal(t, entity.Token("A-042"), f.confirmed[0].TokenNumber)

	_, err = f.wizard.SelectDoctor(ctx, "1")
	assert.ErrorIs(t, err, ErrBookingConfirmed)

	state = f.wizard.Reset()
	assert.Equal(t, entity.StepPatientSelect, state.Step)
	assert.Nil(t, state.Result)
	assert.Nil(t, state.Selection.Doctor)
}

func TestBookingWizard_SubmitRejectedKeepsState(t *testing.T) {
	f := newWizardFixture(t)
	f.slots.slots["1"] = []entity.Slot{{Value: "11:30"}}
	f.gateway.err = &hospitalapi.APIError{Status: 400, Message: "time_slot: Slot already booked"}
	ctx := context.Background()

	_, _ = f.wizard.Next(ctx)
	_, _ = f.wizard.SelectDepartment(ctx, "7")
	_, _ = f.wizard.Next(ctx)
	_, _ = f.wizard.Next(ctx)
	_, err := f.wizard.SelectDate(ctx, "2026-03-15")
	require.NoError(t, err)

	state, err := f.wizard.Submit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBookingRejected)
	assert.Equal(t, entity.StepDateTimeSelect, state.Step)
	assert.Equal(t, "time_slot: Slot already booked", state.Error)
	assert.Equal(t, "11:30", state.Selection.AssignedTime)
	assert.Equal(t, entity.ID("1"), state.Selection.Doctor.ID)
	assert.Empty(t, f.confirmed)

	require.Len(t, f.gateway.requests, 1)
	req := f.gateway.requests[0]
	assert.Equal(t, "11:30:00", req.TimeSlot)
	assert.Equal(t, "disease", req.BookingType)
	assert.True(t, req.IsForSelf)
	assert.Empty(t, req.PatientRelation)
	assert.Equal(t, entity.ID("7"), req.Department)
}

func TestBookingWizard_CalendarNavigation(t *testing.T) {
	f := newWizardFixture(t)

	state := f.wizard.PrevMonth()
	assert.Equal(t, time.March, state.Calendar.Month)
	assert.False(t, state.Calendar.CanGoBack)

	state = f.wizard.NextMonth()
	assert.Equal(t, time.April, state.Calendar.Month)
	assert.True(t, state.Calendar.CanGoBack)

	state = f.wizard.PrevMonth()
	assert.Equal(t, time.March, state.Calendar.Month)
}
