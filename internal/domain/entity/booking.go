package entity

// PatientMode tells whether the patient books for themselves or for someone else.
type PatientMode string

const (
	PatientModeSelf  PatientMode = "self"
	PatientModeOther PatientMode = "other"
)

func (m PatientMode) Valid() bool {
	return m == PatientModeSelf || m == PatientModeOther
}

// BookingMethod is the doctor discovery path. The department path is sent to
// the API as "disease".
type BookingMethod string

const (
	BookingMethodDepartment BookingMethod = "disease"
	BookingMethodDoctor     BookingMethod = "doctor"
)

func (m BookingMethod) Valid() bool {
	return m == BookingMethodDepartment || m == BookingMethodDoctor
}

// BookingStep is the position of the booking wizard.
type BookingStep int

const (
	StepPatientSelect BookingStep = iota + 1
	StepMethodSelect
	StepProviderSelect
	StepDateTimeSelect
	StepSubmitting
	StepConfirmed
)

func (s BookingStep) String() string {
	switch s {
	case StepPatientSelect:
		return "patient_select"
	case StepMethodSelect:
		return "method_select"
	case StepProviderSelect:
		return "provider_select"
	case StepDateTimeSelect:
		return "datetime_select"
	case StepSubmitting:
		return "submitting"
	case StepConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// BookingSelection is everything the wizard has collected so far.
type BookingSelection struct {
	PatientMode    PatientMode     `json:"patient_mode"`
	PatientDetails *PatientDetails `json:"patient_details,omitempty"`
	Method         BookingMethod   `json:"method"`
	DepartmentID   ID              `json:"department_id,omitempty"`
	Doctor         *Doctor         `json:"doctor,omitempty"`
	Date           string          `json:"date,omitempty"`
	AssignedTime   string          `json:"assigned_time,omitempty"`
}

// Clone returns a deep copy safe to hand out of the wizard.
func (s BookingSelection) Clone() BookingSelection {
	out := s
	if s.PatientDetails != nil {
		d := *s.PatientDetails
		out.PatientDetails = &d
	}
	if s.Doctor != nil {
		d := *s.Doctor
		if s.Doctor.Department != nil {
			ref := *s.Doctor.Department
			d.Department = &ref
		}
		out.Doctor = &d
	}
	return out
}

// BookingResult is shown once on the confirmation view.
type BookingResult struct {
	TokenNumber Token  `json:"token_number"`
	DoctorName  string `json:"doctor_name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"
