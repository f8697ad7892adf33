package ledger

import (
	"fmt"
	"time"
)

// TermResolver maps a moment to the ledger's semester and academic year.
type TermResolver interface {
	Term(t time.Time) (semester, academicYear string)
}

// CalendarTerms splits an academic year starting in StartMonth into two
// six-month semesters labelled "1" and "2"; years are labelled "2025/2026".
type CalendarTerms struct {
	StartMonth time.Month
	Location   *time.Location
}

func (c CalendarTerms) Term(t time.Time) (string, string) {
	start := c.StartMonth
	if start < time.January || start > time.December {
		start = time.August
	}
	if c.Location != nil {
		t = t.In(c.Location)
	}
	year := t.Year()
	if t.Month() < start {
		year--
	}
	// months elapsed since the academic year began, 0..11
	elapsed := (int(t.Month()) - int(start) + 12) % 12
	semester := "1"
	if elapsed >= 6 {
		semester = "2"
	}
	return semester, fmt.Sprintf("%d/%d", year, year+1)
}
