package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/infrastructure/hospitalapi"
	"medqueue-portal/pkg/validator"

	"github.com/sirupsen/logrus"
)

var (
	ErrPatientDetailsRequired = errors.New("please fill all patient details")
	ErrDoctorRequired         = errors.New("please select a doctor")
	ErrDateTimeRequired       = errors.New("please select a doctor and date")
	ErrInvalidPatientMode     = errors.New("invalid patient mode")
	ErrInvalidBookingMethod   = errors.New("invalid booking method")
	ErrInvalidDateFormat      = errors.New("invalid date format, use YYYY-MM-DD")
	ErrPastDate               = errors.New("cannot select a past date")
	ErrDoctorNotFound         = errors.New("doctor not found")
	ErrSubmissionInProgress   = errors.New("booking submission in progress")
	ErrBookingConfirmed       = errors.New("booking already confirmed, start a new booking")
	ErrNotAtDateTimeStep      = errors.New("booking can only be submitted from the date and time step")
)

const defaultBookingReason = "Consultation"

// BookingGateway creates appointments upstream.
type BookingGateway interface {
	CreateAppointment(ctx context.Context, req hospitalapi.CreateAppointmentRequest) (*hospitalapi.CreateAppointmentResponse, error)
}

// BookingWizard drives the four step booking flow of one session.
// Mutations are serialized; the lock is never held across network calls.
type BookingWizard interface {
	Snapshot(ctx context.Context) WizardState
	SetPatientMode(mode entity.PatientMode) (WizardState, error)
	SetPatientDetails(details entity.PatientDetails) (WizardState, error)
	Next(ctx context.Context) (WizardState, error)
	Back() WizardState
	SelectMethod(ctx context.Context, method entity.BookingMethod) (WizardState, error)
	SelectDepartment(ctx context.Context, departmentID entity.ID) (WizardState, error)
	SelectDoctor(ctx context.Context, doctorID entity.ID) (WizardState, error)
	SelectDate(ctx context.Context, date string) (WizardState, error)
	Submit(ctx context.Context) (WizardState, error)
	Reset() WizardState
	PrevMonth() WizardState
	NextMonth() WizardState
}

// WizardState is a copy of the wizard safe to serialize.
type WizardState struct {
	Step           entity.BookingStep      `json:"step"`
	StepName       string                  `json:"step_name"`
	Selection      entity.BookingSelection `json:"selection"`
	Doctors        []entity.Doctor         `json:"doctors"`
	Slots          []entity.Slot           `json:"slots"`
	SlotsLoading   bool                    `json:"slots_loading"`
	Calendar       MonthGrid               `json:"calendar"`
	Result         *entity.BookingResult   `json:"result,omitempty"`
	Error          string                  `json:"error,omitempty"`
	CatalogFailure CatalogFailure          `json:"catalog_failure"`
}

// BookingConfirmedFunc is called after the API accepted a booking.
type BookingConfirmedFunc func(ctx context.Context, result entity.BookingResult)

type BookingWizardDeps struct {
	Cache       DataCache
	Slots       SlotResolver
	Gateway     BookingGateway
	Validator   *validator.CustomValidator
	Clock       TimeProvider
	Log         *logrus.Logger
	OnConfirmed BookingConfirmedFunc
}

type bookingWizard struct {
	cache       DataCache
	slots       SlotResolver
	gateway     BookingGateway
	validator   *validator.CustomValidator
	clock       TimeProvider
	log         *logrus.Logger
	onConfirmed BookingConfirmedFunc

	mu          sync.Mutex
	step        entity.BookingStep
	selection   entity.BookingSelection
	doctors     []entity.Doctor
	providerSeq uint64
	slotList    []entity.Slot
	slotSeq     uint64
	slotApplied uint64
	cursor      CalendarCursor
	result      *entity.BookingResult
	lastErr     string
}

func NewBookingWizard(deps BookingWizardDeps) BookingWizard {
	if deps.Clock == nil {
		deps.Clock = &RealTimeProvider{}
	}
	w := &bookingWizard{
		cache:       deps.Cache,
		slots:       deps.Slots,
		gateway:     deps.Gateway,
		validator:   deps.Validator,
		clock:       deps.Clock,
		log:         deps.Log,
		onConfirmed: deps.OnConfirmed,
	}
	w.resetLocked()
	return w
}

func (w *bookingWizard) resetLocked() {
	w.step = entity.StepPatientSelect
	w.selection = entity.BookingSelection{
		PatientMode: entity.PatientModeSelf,
		Method:      entity.BookingMethodDepartment,
	}
	w.doctors = nil
	w.providerSeq++
	w.slotList = nil
	w.slotSeq++
	w.slotApplied = w.slotSeq
	w.cursor = NewCalendarCursor(w.clock.Now())
	w.result = nil
	w.lastErr = ""
}

// mutable reports whether the selection may change in the current step.
func (w *bookingWizard) mutableLocked() error {
	switch w.step {
	case entity.StepSubmitting:
		return ErrSubmissionInProgress
	case entity.StepConfirmed:
		return ErrBookingConfirmed
	}
	return nil
}

func (w *bookingWizard) Snapshot(ctx context.Context) WizardState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *bookingWizard) snapshotLocked() WizardState {
	today := w.clock.Now()
	var selected time.Time
	if w.selection.Date != "" {
		if d, err := parseDate(w.selection.Date, today.Location()); err == nil {
			selected = d
		}
	}

	state := WizardState{
		Step:         w.step,
		StepName:     w.step.String(),
		Selection:    w.selection.Clone(),
		Doctors:      cloneSlice(w.doctors),
		Slots:        cloneSlice(w.slotList),
		SlotsLoading: w.slotApplied != w.slotSeq,
		Calendar:     BuildMonthGrid(w.cursor.Year, w.cursor.Month, selected, today),
		Error:        w.lastErr,
	}
	if w.cache != nil {
		state.CatalogFailure = w.cache.Failure()
	}
	if w.result != nil {
		r := *w.result
		state.Result = &r
	}
	return state
}

func (w *bookingWizard) SetPatientMode(mode entity.PatientMode) (WizardState, error) {
	if !mode.Valid() {
		return w.Snapshot(context.Background()), ErrInvalidPatientMode
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mutableLocked(); err != nil {
		return w.snapshotLocked(), err
	}
	w.selection.PatientMode = mode
	return w.snapshotLocked(), nil
}

// SetPatientDetails stores the details without validating them; the
// 1 to 2 transition checks completeness.
func (w *bookingWizard) SetPatientDetails(details entity.PatientDetails) (WizardState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mutableLocked(); err != nil {
		return w.snapshotLocked(), err
	}
	w.selection.PatientDetails = &details
	return w.snapshotLocked(), nil
}

// Next advances one step when the guard of the current step holds. On the
// date and time step it submits the booking.
func (w *bookingWizard) Next(ctx context.Context) (WizardState, error) {
	w.mu.Lock()
	if err := w.mutableLocked(); err != nil {
		defer w.mu.Unlock()
		return w.snapshotLocked(), err
	}

	switch w.step {
	case entity.StepPatientSelect:
		defer w.mu.Unlock()
		if w.selection.PatientMode == entity.PatientModeOther && !w.patientDetailsComplete() {
			return w.snapshotLocked(), ErrPatientDetailsRequired
		}
		w.step = entity.StepMethodSelect
		w.lastErr = ""
		return w.snapshotLocked(), nil

	case entity.StepMethodSelect:
		method := w.selection.Method
		w.step = entity.StepProviderSelect
		w.lastErr = ""
		if method != entity.BookingMethodDoctor || w.cache == nil {
			defer w.mu.Unlock()
			return w.snapshotLocked(), nil
		}
		w.providerSeq++
		seq := w.providerSeq
		w.mu.Unlock()

		doctors := w.cache.FetchDoctors(ctx, "")

		w.mu.Lock()
		defer w.mu.Unlock()
		if seq == w.providerSeq {
			w.doctors = doctors
		}
		return w.snapshotLocked(), nil

	case entity.StepProviderSelect:
		defer w.mu.Unlock()
		if w.selection.Doctor == nil {
			return w.snapshotLocked(), ErrDoctorRequired
		}
		w.step = entity.StepDateTimeSelect
		w.lastErr = ""
		return w.snapshotLocked(), nil

	default:
		w.mu.Unlock()
		return w.Submit(ctx)
	}
}

func (w *bookingWizard) patientDetailsComplete() bool {
	if w.selection.PatientDetails == nil {
		return false
	}
	if w.validator == nil {
		d := w.selection.PatientDetails
		return d.Name != "" && d.Age != "" && d.Gender != "" && d.IDNumber != ""
	}
	return w.validator.Validate(w.selection.PatientDetails) == nil
}

// Back moves one step back and keeps everything entered so far.
func (w *bookingWizard) Back() WizardState {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case entity.StepMethodSelect, entity.StepProviderSelect, entity.StepDateTimeSelect:
		w.step--
		w.lastErr = ""
	}
	return w.snapshotLocked()
}

// SelectMethod switches the discovery path. A different method clears the
// department and doctor since they may not be valid for it.
func (w *bookingWizard) SelectMethod(ctx context.Context, method entity.BookingMethod) (WizardState, error) {
	if !method.Valid() {
		return w.Snapshot(ctx), ErrInvalidBookingMethod
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mutableLocked(); err != nil {
		return w.snapshotLocked(), err
	}
	if w.selection.Method == method {
		return w.snapshotLocked(), nil
	}
	w.selection.Method = method
	w.selection.DepartmentID = ""
	w.doctors = nil
	w.providerSeq++
	w.changeDoctorLocked(nil)
	return w.snapshotLocked(), nil
}

// SelectDepartment filters doctors by department from the cache, stores the
// department as authoritative and tentatively selects the first doctor.
func (w *bookingWizard) SelectDepartment(ctx context.Context, departmentID entity.ID) (WizardState, error) {
	w.mu.Lock()
	if err := w.mutableLocked(); err != nil {
		defer w.mu.Unlock()
		return w.snapshotLocked(), err
	}
	w.selection.DepartmentID = departmentID
	w.providerSeq++
	seq := w.providerSeq
	w.mu.Unlock()

	var doctors []entity.Doctor
	if w.cache != nil {
		doctors = w.cache.FetchDoctors(ctx, departmentID)
	}

	w.mu.Lock()
	if seq != w.providerSeq || w.step == entity.StepSubmitting || w.step == entity.StepConfirmed {
		// superseded by a newer department or method selection
		defer w.mu.Unlock()
		return w.snapshotLocked(), nil
	}
	w.doctors = doctors
	var first *entity.Doctor
	if len(doctors) > 0 {
		d := doctors[0]
		first = &d
	}
	fetch := w.changeDoctorLocked(first)
	w.mu.Unlock()

	return w.runSlotFetch(ctx, fetch), nil
}

// SelectDoctor picks a doctor by id and derives the department from the
// doctor record. A doctor without a department clears the selection.
func (w *bookingWizard) SelectDoctor(ctx context.Context, doctorID entity.ID) (WizardState, error) {
	w.mu.Lock()
	if err := w.mutableLocked(); err != nil {
		defer w.mu.Unlock()
		return w.snapshotLocked(), err
	}
	w.mu.Unlock()

	var (
		doctor *entity.Doctor
		ok     bool
	)
	if w.cache != nil {
		doctor, ok = w.cache.FindDoctor(ctx, doctorID)
	}
	if !ok {
		return w.Snapshot(ctx), ErrDoctorNotFound
	}

	w.mu.Lock()
	if err := w.mutableLocked(); err != nil {
		defer w.mu.Unlock()
		return w.snapshotLocked(), err
	}
	if dept, ok := doctor.DepartmentID(); ok {
		w.selection.DepartmentID = dept
	} else {
		w.log.Warnf("Doctor %s has no department assigned", doctor.ID)
		w.selection.DepartmentID = ""
	}
	fetch := w.changeDoctorLocked(doctor)
	w.mu.Unlock()

	return w.runSlotFetch(ctx, fetch), nil
}

// SelectDate sets the appointment date and re-resolves the assigned time.
func (w *bookingWizard) SelectDate(ctx context.Context, date string) (WizardState, error) {
	today := w.clock.Now()
	day, err := parseDate(date, today.Location())
	if err != nil {
		return w.Snapshot(ctx), ErrInvalidDateFormat
	}
	if isDateInPast(day, today) {
		return w.Snapshot(ctx), ErrPastDate
	}

	w.mu.Lock()
	if err := w.mutableLocked(); err != nil {
		defer w.mu.Unlock()
		return w.snapshotLocked(), err
	}
	w.selection.Date = formatDate(day)
	w.cursor = CalendarCursor{Year: day.Year(), Month: day.Month()}
	fetch := w.invalidateSlotsLocked()
	w.mu.Unlock()

	return w.runSlotFetch(ctx, fetch), nil
}

// slotFetch describes a pending slot resolution; seq identifies it.
type slotFetch struct {
	seq      uint64
	doctorID entity.ID
	date     string
}

// changeDoctorLocked swaps the doctor and, if it changed, invalidates the
// assigned time.
func (w *bookingWizard) changeDoctorLocked(doctor *entity.Doctor) *slotFetch {
	prev := w.selection.Doctor
	same := (prev == nil && doctor == nil) || (prev != nil && doctor != nil && prev.ID == doctor.ID)
	w.selection.Doctor = doctor
	if same {
		return nil
	}
	return w.invalidateSlotsLocked()
}

// invalidateSlotsLocked clears the assigned time before anything is
// fetched, so a stale time can never survive a doctor or date change.
func (w *bookingWizard) invalidateSlotsLocked() *slotFetch {
	w.selection.AssignedTime = ""
	w.slotList = nil
	w.slotSeq++
	if w.selection.Doctor == nil || w.selection.Date == "" {
		w.slotApplied = w.slotSeq
		return nil
	}
	return &slotFetch{
		seq:      w.slotSeq,
		doctorID: w.selection.Doctor.ID,
		date:     w.selection.Date,
	}
}

// runSlotFetch resolves slots outside the lock and applies the result only
// if no newer fetch was issued meanwhile.
func (w *bookingWizard) runSlotFetch(ctx context.Context, fetch *slotFetch) WizardState {
	if fetch == nil {
		return w.Snapshot(ctx)
	}

	slots := w.slots.ResolveSlots(ctx, fetch.doctorID, fetch.date)

	w.mu.Lock()
	defer w.mu.Unlock()
	if fetch.seq != w.slotSeq {
		return w.snapshotLocked()
	}
	today := w.clock.Now()
	day, err := parseDate(fetch.date, today.Location())
	if err != nil {
		return w.snapshotLocked()
	}
	w.slotList = slots
	w.selection.AssignedTime = w.slots.DefaultTime(slots, day, today)
	w.slotApplied = fetch.seq
	return w.snapshotLocked()
}

// Submit sends the booking. On rejection the wizard returns to the date and
// time step with its state intact and the server message recorded.
func (w *bookingWizard) Submit(ctx context.Context) (WizardState, error) {
	w.mu.Lock()
	if err := w.mutableLocked(); err != nil {
		defer w.mu.Unlock()
		return w.snapshotLocked(), err
	}
	if w.step != entity.StepDateTimeSelect {
		defer w.mu.Unlock()
		return w.snapshotLocked(), ErrNotAtDateTimeStep
	}
	sel := w.selection.Clone()
	if sel.Doctor == nil || sel.Date == "" || sel.AssignedTime == "" {
		defer w.mu.Unlock()
		return w.snapshotLocked(), ErrDateTimeRequired
	}
	w.step = entity.StepSubmitting
	w.lastErr = ""
	w.mu.Unlock()

	req := buildAppointmentRequest(sel)
	resp, err := w.gateway.CreateAppointment(ctx, req)

	w.mu.Lock()
	if err != nil {
		w.step = entity.StepDateTimeSelect
		w.lastErr = submissionMessage(err)
		w.log.Warnf("Failed to create appointment for doctor %s on %s: %+v", sel.Doctor.ID, sel.Date, err)
		defer w.mu.Unlock()
		return w.snapshotLocked(), fmt.Errorf("%w: %w", ErrBookingRejected, err)
	}

	result := entity.BookingResult{
		TokenNumber: resp.TokenNumber,
		DoctorName:  sel.Doctor.FullName,
		Date:        sel.Date,
		Time:        sel.AssignedTime,
	}
	w.step = entity.StepConfirmed
	w.result = &result
	state := w.snapshotLocked()
	w.mu.Unlock()

	w.log.Infof("Booking confirmed: doctor=%s, date=%s, time=%s, token=%s", sel.Doctor.ID, sel.Date, req.TimeSlot, result.TokenNumber)
	if w.onConfirmed != nil {
		w.onConfirmed(ctx, result)
	}
	return state, nil
}

var ErrBookingRejected = errors.New("failed to create appointment")

func buildAppointmentRequest(sel entity.BookingSelection) hospitalapi.CreateAppointmentRequest {
	department := sel.DepartmentID
	if dept, ok := sel.Doctor.DepartmentID(); ok {
		department = dept
	}
	timeSlot := entity.TimeSlotPayload(sel.AssignedTime)
	if timeSlot == "" {
		timeSlot = entity.TimeSlotPayload(DefaultFallbackTime)
	}
	relation := ""
	if sel.PatientMode == entity.PatientModeOther && sel.PatientDetails != nil {
		relation = sel.PatientDetails.Relation
	}
	return hospitalapi.CreateAppointmentRequest{
		Doctor:          sel.Doctor.ID,
		Department:      department,
		AppointmentDate: sel.Date,
		TimeSlot:        timeSlot,
		Reason:          defaultBookingReason,
		BookingType:     string(sel.Method),
		IsForSelf:       sel.PatientMode != entity.PatientModeOther,
		PatientRelation: relation,
	}
}

// submissionMessage prefers the server's own wording.
func submissionMessage(err error) string {
	var apiErr *hospitalapi.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, hospitalapi.ErrUnauthenticated) {
		return "Your session has expired, please log in again"
	}
	return "Failed to create appointment. Please try again."
}

func (w *bookingWizard) Reset() WizardState {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == entity.StepSubmitting {
		return w.snapshotLocked()
	}
	w.resetLocked()
	return w.snapshotLocked()
}

func (w *bookingWizard) PrevMonth() WizardState {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cursor = w.cursor.Prev(w.clock.Now())
	return w.snapshotLocked()
}

func (w *bookingWizard) NextMonth() WizardState {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cursor = w.cursor.Next()
	return w.snapshotLocked()
}
