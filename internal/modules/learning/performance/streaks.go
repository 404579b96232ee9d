package performance

import (
	"math"
	"sort"
	"time"
)

const dayLayout = "2006-01-02"

func DayKey(t time.Time) string { return t.Format(dayLayout) }

// ActiveDays keys every timestamp by its calendar day in loc.
func ActiveDays(times []time.Time, loc *time.Location) map[string]bool {
	if loc == nil {
		loc = time.UTC
	}
	out := make(map[string]bool, len(times))
	for _, t := range times {
		if t.IsZero() {
			continue
		}
		out[DayKey(t.In(loc))] = true
	}
	return out
}

// Streaks returns the current run of consecutive active days, counted back from today or
// from yesterday when today has no activity yet, and the length of the run before it.
// When there is no current run, previous is the most recent run that ended.
func Streaks(active map[string]bool, today time.Time) (current, previous int) {
	if len(active) == 0 {
		return 0, 0
	}
	earliest := earliestDay(active, today.Location())

	day := startOfDay(today)
	if !active[DayKey(day)] {
		day = day.AddDate(0, 0, -1)
	}
	for active[DayKey(day)] {
		current++
		day = day.AddDate(0, 0, -1)
	}

	if earliest.IsZero() {
		return current, 0
	}
	for !day.Before(earliest) && !active[DayKey(day)] {
		day = day.AddDate(0, 0, -1)
	}
	for active[DayKey(day)] {
		previous++
		day = day.AddDate(0, 0, -1)
	}
	return current, previous
}

func earliestDay(active map[string]bool, loc *time.Location) time.Time {
	keys := make([]string, 0, len(active))
	for k, ok := range active {
		if ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return time.Time{}
	}
	t, err := time.ParseInLocation(dayLayout, keys[0], loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from a to b in b's location; 0 when a is not before b.
func DaysBetween(a, b time.Time) int {
	from := startOfDay(a.In(b.Location()))
	to := startOfDay(b)
	if !from.Before(to) {
		return 0
	}
	return int(math.Round(to.Sub(from).Hours() / 24))
}
