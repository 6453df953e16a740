package entity

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Appointment statuses as reported by the hospital API.
const (
	AppointmentStatusScheduled  = "scheduled"
	AppointmentStatusConfirmed  = "confirmed"
	AppointmentStatusWaiting    = "waiting"
	AppointmentStatusPending    = "pending"
	AppointmentStatusArrived    = "arrived"
	AppointmentStatusInProgress = "in_progress"
	AppointmentStatusCompleted  = "completed"
	AppointmentStatusCancelled  = "cancelled"
	AppointmentStatusNoShow     = "no_show"
)

// Appointment is the normalized appointment record. Decoding accepts the
// several shapes the API uses for token, patient, doctor and department.
type Appointment struct {
	ID              ID     `json:"id"`
	TokenNumber     Token  `json:"token_number"`
	PatientName     string `json:"patient_name"`
	Status          string `json:"status"`
	Reason          string `json:"reason,omitempty"`
	BookingType     string `json:"booking_type,omitempty"`
	TimeSlot        string `json:"time_slot,omitempty"`
	AppointmentDate string `json:"appointment_date,omitempty"`
	DoctorID        ID     `json:"doctor,omitempty"`
	DoctorName      string `json:"doctor_name,omitempty"`
	DepartmentID    ID     `json:"department,omitempty"`
	IsForSelf       bool   `json:"is_for_self"`
	PatientRelation string `json:"patient_relation,omitempty"`
}

type appointmentWire struct {
	ID              ID              `json:"id"`
	TokenNumber     Token           `json:"token_number"`
	Token           Token           `json:"token"`
	PatientName     string          `json:"patient_name"`
	Patient         json.RawMessage `json:"patient"`
	Status          string          `json:"status"`
	Reason          string          `json:"reason"`
	ReasonForVisit  string          `json:"reason_for_visit"`
	BookingType     string          `json:"booking_type"`
	TimeSlot        string          `json:"time_slot"`
	AppointmentTime string          `json:"appointment_time"`
	AppointmentDate string          `json:"appointment_date"`
	Doctor          json.RawMessage `json:"doctor"`
	DoctorName      string          `json:"doctor_name"`
	Department      json.RawMessage `json:"department"`
	DepartmentID    ID              `json:"department_id"`
	IsForSelf       bool            `json:"is_for_self"`
	PatientRelation string          `json:"patient_relation"`
}

type namedRef struct {
	ID       ID     `json:"id"`
	FullName string `json:"full_name"`
	Name     string `json:"name"`
}

func (a *Appointment) UnmarshalJSON(data []byte) error {
	var w appointmentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*a = Appointment{
		ID:              w.ID,
		TokenNumber:     w.TokenNumber,
		PatientName:     w.PatientName,
		Status:          strings.ToLower(strings.TrimSpace(w.Status)),
		Reason:          firstNonEmpty(w.Reason, w.BookingType, w.ReasonForVisit),
		BookingType:     w.BookingType,
		TimeSlot:        firstNonEmpty(w.TimeSlot, w.AppointmentTime),
		AppointmentDate: w.AppointmentDate,
		DoctorName:      w.DoctorName,
		DepartmentID:    w.DepartmentID,
		IsForSelf:       w.IsForSelf,
		PatientRelation: w.PatientRelation,
	}
	if a.TokenNumber.IsZero() {
		a.TokenNumber = w.Token
	}

	if a.PatientName == "" {
		a.PatientName = refName(w.Patient)
	}
	if a.PatientName == "" {
		a.PatientName = "Unknown"
	}

	if ref, ok := decodeRef(w.Doctor); ok {
		a.DoctorID = ref.ID
		if a.DoctorName == "" {
			a.DoctorName = firstNonEmpty(ref.FullName, ref.Name)
		}
	}
	if a.DepartmentID.IsZero() {
		if ref, ok := decodeRef(w.Department); ok {
			a.DepartmentID = ref.ID
		}
	}
	return nil
}

// decodeRef reads a related object sent either as a primary key or as an
// object with an id.
func decodeRef(raw json.RawMessage) (namedRef, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return namedRef{}, false
	}
	var ref namedRef
	if raw[0] == '{' {
		if err := json.Unmarshal(raw, &ref); err != nil {
			return namedRef{}, false
		}
		return ref, true
	}
	if raw[0] == '"' {
		// a bare string may be a name rather than a key
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return namedRef{}, false
		}
		ref.ID = ID(s)
		ref.Name = s
		return ref, true
	}
	if err := ref.ID.UnmarshalJSON(raw); err != nil {
		return namedRef{}, false
	}
	return ref, true
}

// refName extracts a display name from a patient field that may be a
// string or an object with full_name.
func refName(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	case '{':
		var ref namedRef
		if json.Unmarshal(raw, &ref) == nil {
			return firstNonEmpty(ref.FullName, ref.Name)
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// HasStatus reports whether the appointment is in any of statuses. Hyphen
// and underscore spellings of in-progress are treated as the same status.
func (a Appointment) HasStatus(statuses ...string) bool {
	current := canonicalStatus(a.Status)
	for _, s := range statuses {
		if canonicalStatus(s) == current {
			return true
		}
	}
	return false
}

func canonicalStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "in-progress", "inprogress":
		return AppointmentStatusInProgress
	case "no-show", "noshow":
		return AppointmentStatusNoShow
	}
	return s
}

// ExtractToken reads the queue token from an appointment creation response.
// Keys are tried in order token_number, token, appointment.token_number,
// appointment.token, then the same keys under a "data" wrapper. Each key is
// decoded on its own; null, empty and non-scalar values are skipped. A
// response without any token yields the zero Token.
func ExtractToken(body []byte) Token {
	fields, ok := objectFields(body)
	if !ok {
		return ""
	}
	if t := tokenField(fields, "token_number", "token"); !t.IsZero() {
		return t
	}
	if nested, ok := objectFields(fields["appointment"]); ok {
		if t := tokenField(nested, "token_number", "token"); !t.IsZero() {
			return t
		}
	}
	// some deployments wrap the created object in "data"
	if _, ok := objectFields(fields["data"]); ok {
		return ExtractToken(fields["data"])
	}
	return ""
}

func objectFields(raw []byte) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

func tokenField(fields map[string]json.RawMessage, keys ...string) Token {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var t Token
		if err := json.Unmarshal(raw, &t); err == nil && !t.IsZero() {
			return t
		}
	}
	return ""
}
