package entity

import (
	"sort"
	"strconv"
)

// QueueStatus is the live queue snapshot served by /queue/live/ and
// /queue/status/, and the current_queue block of the doctor dashboard.
type QueueStatus struct {
	CurrentToken          Token          `json:"current_token"`
	PendingTokens         []PendingToken `json:"pending_tokens"`
	TotalTokens           int            `json:"total_tokens"`
	CompletedTokens       int            `json:"completed_tokens"`
	AverageTimePerPatient float64        `json:"average_time_per_patient"`
	LastUpdated           string         `json:"last_updated,omitempty"`
	DoctorName            string         `json:"doctor_name,omitempty"`
}

type PendingToken struct {
	TokenNumber   Token   `json:"token_number"`
	PatientName   string  `json:"patient_name"`
	ETAMinutes    float64 `json:"eta_minutes"`
	QueuePosition int     `json:"queue_position"`
}

// FindPending returns the pending entry for token.
func (q *QueueStatus) FindPending(token Token) (PendingToken, bool) {
	if q == nil || token.IsZero() {
		return PendingToken{}, false
	}
	for _, p := range q.PendingTokens {
		if p.TokenNumber == token {
			return p, true
		}
	}
	return PendingToken{}, false
}

// SortTokens orders appointments by token, numerically when both tokens
// are numbers and lexically otherwise.
func SortTokens(list []Appointment) {
	sort.SliceStable(list, func(i, j int) bool {
		return TokenLess(list[i].TokenNumber, list[j].TokenNumber)
	})
}

func TokenLess(a, b Token) bool {
	an, aErr := strconv.ParseFloat(a.String(), 64)
	bn, bErr := strconv.ParseFloat(b.String(), 64)
	if aErr == nil && bErr == nil {
		return an < bn
	}
	return a.String() < b.String()
}
