package usecase

import (
	"time"

	"medqueue-portal/internal/domain/entity"
)

type CellKind string

const (
	CellHeader CellKind = "header"
	CellBlank  CellKind = "blank"
	CellDay    CellKind = "day"
)

var weekdayHeaders = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type CalendarCell struct {
	Kind       CellKind `json:"kind"`
	Label      string   `json:"label,omitempty"`
	Day        int      `json:"day,omitempty"`
	Date       string   `json:"date,omitempty"`
	Past       bool     `json:"past,omitempty"`
	Today      bool     `json:"today,omitempty"`
	Active     bool     `json:"active,omitempty"`
	Selectable bool     `json:"selectable,omitempty"`
}

type MonthGrid struct {
	Year       int            `json:"year"`
	Month      time.Month     `json:"month"`
	MonthName  string         `json:"month_name"`
	Cells      []CalendarCell `json:"cells"`
	CanGoBack  bool           `json:"can_go_back"`
	CanGoAhead bool           `json:"can_go_ahead"`
}

// BuildMonthGrid lays out a month: 7 weekday headers, one blank per weekday
// before the 1st, then one cell per day. Days before today are past and not
// selectable. selected may be the zero time. The result depends only on the
// arguments.
func BuildMonthGrid(year int, month time.Month, selected, today time.Time) MonthGrid {
	loc := today.Location()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	leading := int(first.Weekday())

	cells := make([]CalendarCell, 0, 7+leading+daysInMonth)
	for _, h := range weekdayHeaders {
		cells = append(cells, CalendarCell{Kind: CellHeader, Label: h})
	}
	for i := 0; i < leading; i++ {
		cells = append(cells, CalendarCell{Kind: CellBlank})
	}
	for day := 1; day <= daysInMonth; day++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, loc)
		past := isDateInPast(date, today)
		cells = append(cells, CalendarCell{
			Kind:       CellDay,
			Day:        day,
			Date:       date.Format(entity.DateLayout),
			Past:       past,
			Today:      isSameDay(date, today),
			Active:     !selected.IsZero() && isSameDay(date, selected.In(loc)),
			Selectable: !past,
		})
	}

	return MonthGrid{
		Year:       year,
		Month:      month,
		MonthName:  month.String(),
		Cells:      cells,
		CanGoBack:  monthBefore(today.Year(), today.Month(), year, month),
		CanGoAhead: true,
	}
}

// CalendarCursor is the month shown by the date picker. It never moves
// before the month of today.
type CalendarCursor struct {
	Year  int
	Month time.Month
}

func NewCalendarCursor(today time.Time) CalendarCursor {
	return CalendarCursor{Year: today.Year(), Month: today.Month()}
}

// Prev is a no-op in the current month.
func (c CalendarCursor) Prev(today time.Time) CalendarCursor {
	if !monthBefore(today.Year(), today.Month(), c.Year, c.Month) {
		return c
	}
	if c.Month == time.January {
		return CalendarCursor{Year: c.Year - 1, Month: time.December}
	}
	return CalendarCursor{Year: c.Year, Month: c.Month - 1}
}

func (c CalendarCursor) Next() CalendarCursor {
	if c.Month == time.December {
		return CalendarCursor{Year: c.Year + 1, Month: time.January}
	}
	return CalendarCursor{Year: c.Year, Month: c.Month + 1}
}

// monthBefore reports whether (y1, m1) is strictly before (y2, m2).
func monthBefore(y1 int, m1 time.Month, y2 int, m2 time.Month) bool {
	return y1 < y2 || (y1 == y2 && m1 < m2)
}
