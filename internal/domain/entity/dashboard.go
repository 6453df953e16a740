package entity

// Dashboard is the doctor dashboard payload.
type Dashboard struct {
	Profile           *DoctorProfile `json:"profile,omitempty"`
	CurrentQueue      *QueueStatus   `json:"current_queue,omitempty"`
	TodayAppointments []Appointment  `json:"today_appointments"`
}

// CurrentToken is the token the dashboard reports as being served.
func (d *Dashboard) CurrentToken() Token {
	if d == nil || d.CurrentQueue == nil {
		return ""
	}
	return d.CurrentQueue.CurrentToken
}
