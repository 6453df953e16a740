package entity

import (
	"strings"
	"time"
)

// DoctorAvailability is the weekly availability update a doctor posts when
// going online, offline or pausing new tokens.
type DoctorAvailability struct {
	DayOfWeek   string `json:"day_of_week,omitempty"`
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
	IsAvailable bool   `json:"is_available"`
	IsActive    bool   `json:"is_active"`
}

// AvailabilityStatus is the doctor presence shown on the dashboard.
type AvailabilityStatus string

const (
	AvailabilityOnline  AvailabilityStatus = "online"
	AvailabilityOffline AvailabilityStatus = "offline"
	AvailabilityBreak   AvailabilityStatus = "break"
	AvailabilityPaused  AvailabilityStatus = "paused"
)

func (s AvailabilityStatus) Valid() bool {
	switch s {
	case AvailabilityOnline, AvailabilityOffline, AvailabilityBreak, AvailabilityPaused:
		return true
	}
	return false
}

// NewDayAvailability builds the default 09:00-17:00 availability for day.
func NewDayAvailability(day time.Time, status AvailabilityStatus) DoctorAvailability {
	online := status == AvailabilityOnline
	return DoctorAvailability{
		DayOfWeek:   strings.ToLower(day.Weekday().String()),
		StartTime:   "09:00",
		EndTime:     "17:00",
		IsAvailable: online,
		IsActive:    online,
	}
}
