package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dayCells(grid MonthGrid) []CalendarCell {
	var out []CalendarCell
	for _, c := range grid.Cells {
		if c.Kind == CellDay {
			out = append(out, c)
		}
	}
	return out
}

func TestBuildMonthGrid_Layout(t *testing.T) {
	today := day(2026, time.March, 10)

	// 1 April 2026 is a Wednesday.
	grid := BuildMonthGrid(2026, time.April, time.Time{}, today)

	require.GreaterOrEqual(t, len(grid.Cells), 7)
	for i, h := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		assert.Equal(t, CellHeader, grid.Cells[i].Kind)
		assert.Equal(t, h, grid.Cells[i].Label)
	}
	for i := 7; i < 10; i++ {
		assert.Equal(t, CellBlank, grid.Cells[i].Kind)
	}
	assert.Equal(t, CellDay, grid.Cells[10].Kind)
	assert.Equal(t, 1, grid.Cells[10].Day)
	assert.Equal(t, "2026-04-01", grid.Cells[10].Date)

	days := dayCells(grid)
	assert.Len(t, days, 30)
	assert.Len(t, grid.Cells, 7+3+30)
	assert.Equal(t, "April", grid.MonthName)
	assert.True(t, grid.CanGoBack)
}

func TestBuildMonthGrid_PastTodayActive(t *testing.T) {
	today := day(2026, time.March, 10)
	selected := day(2026, time.March, 12)

	grid := BuildMonthGrid(2026, time.March, selected, today)
	days := dayCells(grid)
	require.Len(t, days, 31)

	for _, c := range days {
		assert.Equal(t, c.Day < 10, c.Past, "day %d", c.Day)
		assert.Equal(t, !c.Past, c.Selectable, "day %d", c.Day)
		assert.Equal(t, c.Day == 10, c.Today, "day %d", c.Day)
		assert.Equal(t, c.Day == 12, c.Active, "day %d", c.Day)
	}
	assert.False(t, grid.CanGoBack)
}

func TestBuildMonthGrid_NoPastDaySelectable(t *testing.T) {
	today := day(2026, time.March, 10)
	grid := BuildMonthGrid(2025, time.December, time.Time{}, today)
	for _, c := range dayCells(grid) {
		assert.True(t, c.Past)
		assert.False(t, c.Selectable)
	}
}

func TestBuildMonthGrid_Pure(t *testing.T) {
	today := day(2026, time.March, 10)
	a := BuildMonthGrid(2026, time.February, day(2026, time.February, 3), today)
	b := BuildMonthGrid(2026, time.February, day(2026, time.February, 3), today)
	assert.Equal(t, a, b)
	assert.Len(t, dayCells(a), 28)
}

func TestCalendarCursor(t *testing.T) {
	today := day(2026, time.December, 20)
	c := NewCalendarCursor(today)

	assert.Equal(t, c, c.Prev(today))

	next := c.Next()
	assert.Equal(t, CalendarCursor{Year: 2027, Month: time.January}, next)
	assert.Equal(t, c, next.Prev(today))
}
