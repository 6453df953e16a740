package entity

import "strings"

// Slot is a bookable time for a doctor on a date. Value and Time are the
// canonical 24h identifier (HH:MM or HH:MM:SS); only one is usually set.
type Slot struct {
	Value    string `json:"value,omitempty"`
	Time     string `json:"time,omitempty"`
	Display  string `json:"display,omitempty"`
	Label    string `json:"label,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

// Key returns the slot identifier, value first.
func (s Slot) Key() string {
	if s.Value != "" {
		return s.Value
	}
	return s.Time
}

// Text returns the human readable label, falling back to the key.
func (s Slot) Text() string {
	switch {
	case s.Display != "":
		return s.Display
	case s.Label != "":
		return s.Label
	default:
		return s.Key()
	}
}

// TimeSlotPayload widens HH:MM to HH:MM:SS for the appointment endpoint.
func TimeSlotPayload(t string) string {
	t = strings.TrimSpace(t)
	if len(t) == 5 {
		return t + ":00"
	}
	return t
}
