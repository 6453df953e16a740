package entity

import "time"

// Session is the per-login portal state kept in Redis. It replaces the
// browser storage the hospital API expects clients to keep.
type Session struct {
	ID           string    `json:"id"`
	UserID       ID        `json:"user_id"`
	Role         Role      `json:"role"`
	FullName     string    `json:"full_name,omitempty"`
	Email        string    `json:"email,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	CreatedAt    time.Time `json:"created_at"`

	// Patient side
	OwnToken           Token `json:"own_token,omitempty"`
	Notified30Min      bool  `json:"notified_30min"`
	NotifiedNowServing bool  `json:"notified_now_serving"`

	// Notices holds fired notifications until the client reads them.
	Notices []string `json:"notices,omitempty"`

	// Doctor side
	DoctorStatus AvailabilityStatus `json:"doctor_status,omitempty"`
	CabinMessage string             `json:"cabin_message,omitempty"`
	QueueOrder   []Token            `json:"queue_order,omitempty"`
	QueuePaused  bool               `json:"queue_paused"`
}

// Authenticated reports whether upstream credentials are still held.
func (s *Session) Authenticated() bool {
	return s != nil && (s.AccessToken != "" || s.RefreshToken != "")
}

// SetOwnToken remembers the token of a confirmed booking and re-arms the
// one-shot notifications for it.
func (s *Session) SetOwnToken(t Token) {
	if s.OwnToken == t {
		return
	}
	s.OwnToken = t
	s.Notified30Min = false
	s.NotifiedNowServing = false
}

// DrainNotices returns and clears the undelivered notifications.
func (s *Session) DrainNotices() []string {
	out := s.Notices
	s.Notices = nil
	return out
}
