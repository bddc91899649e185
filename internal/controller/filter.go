package controller

import (
	"strconv"
	"strings"
	"time"

	"reflection-portal/internal/models"
)

// FeedbackFilter holds the filter-page form values as entered. Every field is
// optional; an empty field imposes no constraint. Dates use the form's
// YYYY-MM-DD format and bound the record timestamp inclusively, from the
// start of the first day to the last millisecond of the second.
type FeedbackFilter struct {
	StudentName string
	House       string
	Rating      string
	StartDate   string
	EndDate     string
}

const filterDateLayout = "2006-01-02"

// Predicate builds the pure match function evaluated over the records
// snapshot. Unparseable rating or date values impose no constraint, matching
// how the form treats them.
func (f FeedbackFilter) Predicate() func(models.FeedbackRecord) bool {
	name := strings.ToLower(strings.TrimSpace(f.StudentName))

	var rating int
	if n, err := strconv.Atoi(f.Rating); err == nil {
		rating = n
	}

	var start, end time.Time
	if t, err := time.ParseInLocation(filterDateLayout, f.StartDate, time.Local); err == nil {
		start = t
	}
	if t, err := time.ParseInLocation(filterDateLayout, f.EndDate, time.Local); err == nil {
		end = t.Add(24*time.Hour - time.Millisecond)
	}

	return func(r models.FeedbackRecord) bool {
		if name != "" && !strings.Contains(strings.ToLower(r.StudentName), name) {
			return false
		}
		if f.House != "" && r.House != models.House(f.House) {
			return false
		}
		if rating != 0 && r.Rating != rating {
			return false
		}
		if !start.IsZero() && r.Timestamp.Before(start) {
			return false
		}
		if !end.IsZero() && r.Timestamp.After(end) {
			return false
		}
		return true
	}
}

// TodayFilter is the filter page's initial state: both date bounds set to the
// current day.
func TodayFilter() FeedbackFilter {
	today := time.Now().Format(filterDateLayout)
	return FeedbackFilter{StartDate: today, EndDate: today}
}
