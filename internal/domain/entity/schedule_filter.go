package entity

import "strings"

// AppointmentFilter narrows a fetched appointment list in process.
type AppointmentFilter struct {
	Search   string   // token or patient name, case-insensitive substring
	Statuses []string // empty means any status
}

func (f AppointmentFilter) Match(a Appointment) bool {
	if len(f.Statuses) > 0 && !a.HasStatus(f.Statuses...) {
		return false
	}
	if f.Search == "" {
		return true
	}
	term := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(a.TokenNumber.String()), term) ||
		strings.Contains(strings.ToLower(a.PatientName), term)
}

// FilterAppointments keeps the order of list.
func FilterAppointments(list []Appointment, f AppointmentFilter) []Appointment {
	out := make([]Appointment, 0, len(list))
	for _, a := range list {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}
