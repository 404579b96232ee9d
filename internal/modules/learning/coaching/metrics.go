package coaching

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Periods a threshold or change condition can read.
const (
	PeriodDaily          = "daily"
	PeriodThreeDay       = "three_day"
	PeriodWeekly         = "weekly"
	PeriodMonthly        = "monthly"
	PeriodPreviousDaily  = "previous_daily"
	PeriodPreviousWeekly = "previous_weekly"
	PeriodOverall        = "overall"
	PeriodLatest         = "latest"
	// PeriodRecent averages the most recent tests.
	PeriodRecent = "recent"
)

var knownPeriods = map[string]bool{
	PeriodDaily:          true,
	PeriodThreeDay:       true,
	PeriodWeekly:         true,
	PeriodMonthly:        true,
	PeriodPreviousDaily:  true,
	PeriodPreviousWeekly: true,
	PeriodOverall:        true,
	PeriodLatest:         true,
	PeriodRecent:         true,
}

// MetricsSnapshot is everything a rule condition may look at for one user at one instant.
//
// Values is keyed "<metric>_<period>" for overall figures and "<metric>_<period>_<subject>"
// for per-subject ones, e.g. "accuracy_daily_physics". Percent metrics are 0..100.
type MetricsSnapshot struct {
	UserID uuid.UUID
	Now    time.Time

	Values   map[string]float64
	Subjects []string

	StreakDays         int
	PreviousStreakDays int
	// DaysInactive is whole days since LastActiveAt; -1 when the user was never active.
	DaysInactive int
	LastActiveAt *time.Time

	// Context feeds template placeholders that no condition binds, e.g. {name}.
	Context map[string]string
}

func MetricKey(metric, period, subject string) string {
	if subject == "" {
		return metric + "_" + period
	}
	return metric + "_" + period + "_" + subject
}

// Value reads one metric. The bool is false when the snapshot has no such figure.
func (m MetricsSnapshot) Value(metric, period, subject string) (float64, bool) {
	if m.Values == nil {
		return 0, false
	}
	v, ok := m.Values[MetricKey(metric, period, subject)]
	return v, ok
}

func (m *MetricsSnapshot) Set(metric, period, subject string, v float64) {
	if m.Values == nil {
		m.Values = map[string]float64{}
	}
	m.Values[MetricKey(metric, period, subject)] = v
}

func (m MetricsSnapshot) sortedSubjects() []string {
	out := append([]string(nil), m.Subjects...)
	sort.Strings(out)
	return out
}

// subjectsFor lists the subjects to try for metric over periods. Without an explicit Subjects
// list they are read off the Values keys ("accuracy_daily_physics" gives "physics").
func (m MetricsSnapshot) subjectsFor(metric string, periods ...string) []string {
	if len(m.Subjects) > 0 {
		return m.sortedSubjects()
	}
	seen := map[string]struct{}{}
	for key := range m.Values {
		for _, period := range periods {
			prefix := MetricKey(metric, period, "") + "_"
			if subject, ok := strings.CutPrefix(key, prefix); ok && subject != "" {
				seen[subject] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for subject := range seen {
		out = append(out, subject)
	}
	sort.Strings(out)
	return out
}
