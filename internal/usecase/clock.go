package usecase

import (
	"time"

	"medqueue-portal/internal/domain/entity"
)

// TimeProvider returns the current time in the hospital's timezone.
type TimeProvider interface {
	Now() time.Time
}

type RealTimeProvider struct {
	Location *time.Location
}

func (p *RealTimeProvider) Now() time.Time {
	if p.Location == nil {
		return time.Now()
	}
	return time.Now().In(p.Location)
}

func isSameDay(date1, date2 time.Time) bool {
	y1, m1, d1 := date1.Date()
	y2, m2, d2 := date2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// isDateInPast compares calendar days only.
func isDateInPast(date, now time.Time) bool {
	dateOnly := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, now.Location())
	nowOnly := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return dateOnly.Before(nowOnly)
}

// parseDate reads a YYYY-MM-DD date in loc.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(entity.DateLayout, s, loc)
}

func formatDate(t time.Time) string {
	return t.Format(entity.DateLayout)
}
