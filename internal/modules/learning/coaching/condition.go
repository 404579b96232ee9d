package coaching

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ConditionType string

const (
	ConditionThreshold     ConditionType = "threshold"
	ConditionStreak        ConditionType = "streak"
	ConditionStreakBroken  ConditionType = "streak_broken"
	ConditionExtremeChange ConditionType = "extreme_change"
	ConditionCalendar      ConditionType = "calendar"
	ConditionInactivity    ConditionType = "inactivity"
	ConditionExpression    ConditionType = "expression"
)

type Operator string

const (
	OpLT  Operator = "lt"
	OpLTE Operator = "lte"
	OpGT  Operator = "gt"
	OpGTE Operator = "gte"
	OpEQ  Operator = "eq"
)

// Scope says which figures a metric condition reads.
type Scope string

const (
	// ScopeAny tries every subject, then the overall figure.
	ScopeAny     Scope = ""
	ScopeSubject Scope = "subject"
	ScopeOverall Scope = "overall"
)

// Condition is a closed tagged variant: Type selects exactly one non-nil payload.
type Condition struct {
	Type ConditionType

	Threshold     *ThresholdCondition
	Streak        *StreakCondition
	StreakBroken  *StreakBrokenCondition
	ExtremeChange *ExtremeChangeCondition
	Calendar      *CalendarCondition
	Inactivity    *InactivityCondition
	Expression    *ExpressionCondition
}

type ThresholdCondition struct {
	Metric   string   `yaml:"metric"`
	Period   string   `yaml:"period"`
	Operator Operator `yaml:"operator"`
	Value    float64  `yaml:"value"`
	Scope    Scope    `yaml:"scope"`
}

type StreakCondition struct {
	MinDays int `yaml:"min_days"`
	// Exact matches only on the day the streak reaches MinDays, for milestones.
	Exact bool `yaml:"exact"`
}

type StreakBrokenCondition struct {
	MinPreviousDays int `yaml:"min_previous_days"`
}

// ExtremeChangeCondition compares value(to) - value(from), in the metric's own units.
type ExtremeChangeCondition struct {
	Metric     string   `yaml:"metric"`
	FromPeriod string   `yaml:"from_period"`
	ToPeriod   string   `yaml:"to_period"`
	Operator   Operator `yaml:"operator"`
	Delta      float64  `yaml:"delta"`
	Scope      Scope    `yaml:"scope"`
}

// CalendarCondition holds when every field that is set holds.
type CalendarCondition struct {
	DayOfWeek  string `yaml:"day_of_week"`
	DayOfMonth int    `yaml:"day_of_month"`
	MonthStart bool   `yaml:"month_start"`
	MonthEnd   bool   `yaml:"month_end"`
}

type InactivityCondition struct {
	MinDays int `yaml:"min_days"`
	MaxDays int `yaml:"max_days"`
}

type ExpressionCondition struct {
	Expr string `yaml:"expr"`

	program *celProgram
}

func (c *Condition) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Type ConditionType `yaml:"type"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}
	*c = Condition{Type: head.Type}

	var target any
	switch head.Type {
	case ConditionThreshold:
		c.Threshold = &ThresholdCondition{}
		target = c.Threshold
	case ConditionStreak:
		c.Streak = &StreakCondition{}
		target = c.Streak
	case ConditionStreakBroken:
		c.StreakBroken = &StreakBrokenCondition{}
		target = c.StreakBroken
	case ConditionExtremeChange:
		c.ExtremeChange = &ExtremeChangeCondition{}
		target = c.ExtremeChange
	case ConditionCalendar:
		c.Calendar = &CalendarCondition{}
		target = c.Calendar
	case ConditionInactivity:
		c.Inactivity = &InactivityCondition{}
		target = c.Inactivity
	case ConditionExpression:
		c.Expression = &ExpressionCondition{}
		target = c.Expression
	default:
		return fmt.Errorf("line %d: unknown condition type %q", node.Line, head.Type)
	}
	return decodeWithoutType(node, target)
}

// decodeWithoutType decodes the mapping minus its "type" key into the payload struct.
func decodeWithoutType(node *yaml.Node, target any) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: condition must be a mapping", node.Line)
	}
	trimmed := &yaml.Node{Kind: yaml.MappingNode, Tag: node.Tag, Line: node.Line, Column: node.Column}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "type" {
			continue
		}
		trimmed.Content = append(trimmed.Content, node.Content[i], node.Content[i+1])
	}
	return trimmed.Decode(target)
}

func (c *Condition) validate() error {
	switch c.Type {
	case ConditionThreshold:
		t := c.Threshold
		if t == nil || t.Metric == "" {
			return fmt.Errorf("threshold: metric is required")
		}
		if !knownPeriods[t.Period] {
			return fmt.Errorf("threshold: unknown period %q", t.Period)
		}
		if !t.Operator.valid() {
			return fmt.Errorf("threshold: unknown operator %q", t.Operator)
		}
		return t.Scope.validate()
	case ConditionStreak:
		if c.Streak == nil || c.Streak.MinDays <= 0 {
			return fmt.Errorf("streak: min_days must be > 0")
		}
	case ConditionStreakBroken:
		if c.StreakBroken == nil || c.StreakBroken.MinPreviousDays <= 0 {
			return fmt.Errorf("streak_broken: min_previous_days must be > 0")
		}
	case ConditionExtremeChange:
		x := c.ExtremeChange
		if x == nil || x.Metric == "" {
			return fmt.Errorf("extreme_change: metric is required")
		}
		if !knownPeriods[x.FromPeriod] || !knownPeriods[x.ToPeriod] {
			return fmt.Errorf("extreme_change: unknown period %q -> %q", x.FromPeriod, x.ToPeriod)
		}
		if x.FromPeriod == x.ToPeriod {
			return fmt.Errorf("extreme_change: from_period and to_period must differ")
		}
		if !x.Operator.valid() {
			return fmt.Errorf("extreme_change: unknown operator %q", x.Operator)
		}
		return x.Scope.validate()
	case ConditionCalendar:
		cal := c.Calendar
		if cal == nil || (cal.DayOfWeek == "" && cal.DayOfMonth == 0 && !cal.MonthStart && !cal.MonthEnd) {
			return fmt.Errorf("calendar: at least one predicate is required")
		}
		if cal.DayOfWeek != "" {
			if _, ok := weekdays[strings.ToLower(cal.DayOfWeek)]; !ok {
				return fmt.Errorf("calendar: unknown day_of_week %q", cal.DayOfWeek)
			}
		}
		if cal.DayOfMonth < 0 || cal.DayOfMonth > 31 {
			return fmt.Errorf("calendar: day_of_month out of range")
		}
	case ConditionInactivity:
		in := c.Inactivity
		if in == nil || in.MinDays <= 0 {
			return fmt.Errorf("inactivity: min_days must be > 0")
		}
		if in.MaxDays != 0 && in.MaxDays < in.MinDays {
			return fmt.Errorf("inactivity: max_days must be >= min_days")
		}
	case ConditionExpression:
		if c.Expression == nil || strings.TrimSpace(c.Expression.Expr) == "" {
			return fmt.Errorf("expression: expr is required")
		}
		prg, err := compileExpression(c.Expression.Expr)
		if err != nil {
			return fmt.Errorf("expression: %w", err)
		}
		c.Expression.program = prg
	default:
		return fmt.Errorf("unknown condition type %q", c.Type)
	}
	return nil
}

// Evaluate runs the condition against a snapshot. On a match it returns the template bindings
// the condition produced ({subject}, {value}, ...).
func (c *Condition) Evaluate(m MetricsSnapshot) (bool, map[string]string, error) {
	switch c.Type {
	case ConditionThreshold:
		return evalThreshold(c.Threshold, m)
	case ConditionStreak:
		return evalStreak(c.Streak, m)
	case ConditionStreakBroken:
		return evalStreakBroken(c.StreakBroken, m)
	case ConditionExtremeChange:
		return evalExtremeChange(c.ExtremeChange, m)
	case ConditionCalendar:
		return evalCalendar(c.Calendar, m)
	case ConditionInactivity:
		return evalInactivity(c.Inactivity, m)
	case ConditionExpression:
		return evalExpression(c.Expression, m)
	default:
		return false, nil, fmt.Errorf("unknown condition type %q", c.Type)
	}
}

func (op Operator) valid() bool {
	switch op {
	case OpLT, OpLTE, OpGT, OpGTE, OpEQ:
		return true
	default:
		return false
	}
}

func (op Operator) compare(v, threshold float64) (bool, error) {
	switch op {
	case OpLT:
		return v < threshold, nil
	case OpLTE:
		return v <= threshold, nil
	case OpGT:
		return v > threshold, nil
	case OpGTE:
		return v >= threshold, nil
	case OpEQ:
		return math.Abs(v-threshold) < 1e-9, nil
	default:
		return false, fmt.Errorf("unknown operator %q", op)
	}
}

// worse reports whether a is a stronger match than b under op, so the most extreme subject binds.
func (op Operator) worse(a, b float64) bool {
	switch op {
	case OpLT, OpLTE:
		return a < b
	case OpGT, OpGTE:
		return a > b
	default:
		return false
	}
}

func (s Scope) validate() error {
	switch s {
	case ScopeAny, ScopeSubject, ScopeOverall:
		return nil
	default:
		return fmt.Errorf("unknown scope %q", s)
	}
}

func (s Scope) candidates(m MetricsSnapshot, metric string, periods ...string) []string {
	switch s {
	case ScopeSubject:
		return m.subjectsFor(metric, periods...)
	case ScopeOverall:
		return []string{""}
	default:
		return append(m.subjectsFor(metric, periods...), "")
	}
}

// matchScoped evaluates read(subject) against op/threshold for every candidate subject and
// returns the most extreme match. Subjects with no data are skipped.
func matchScoped(candidates []string, op Operator, threshold float64, read func(subject string) (float64, bool)) (bool, string, float64, error) {
	found := false
	bestSubject := ""
	bestValue := 0.0
	for _, subject := range candidates {
		v, ok := read(subject)
		if !ok {
			continue
		}
		hit, err := op.compare(v, threshold)
		if err != nil {
			return false, "", 0, err
		}
		if !hit {
			continue
		}
		if !found || op.worse(v, bestValue) {
			found = true
			bestSubject = subject
			bestValue = v
		}
	}
	return found, bestSubject, bestValue, nil
}

func evalThreshold(t *ThresholdCondition, m MetricsSnapshot) (bool, map[string]string, error) {
	if t == nil {
		return false, nil, fmt.Errorf("threshold: missing payload")
	}
	ok, subject, v, err := matchScoped(t.Scope.candidates(m, t.Metric, t.Period), t.Operator, t.Value, func(subject string) (float64, bool) {
		return m.Value(t.Metric, t.Period, subject)
	})
	if err != nil || !ok {
		return false, nil, err
	}
	binds := map[string]string{
		"value":     formatNumber(v),
		"threshold": formatNumber(t.Value),
		"metric":    t.Metric,
		"period":    t.Period,
	}
	if subject != "" {
		binds["subject"] = subject
	}
	return true, binds, nil
}

func evalStreak(s *StreakCondition, m MetricsSnapshot) (bool, map[string]string, error) {
	if s == nil {
		return false, nil, fmt.Errorf("streak: missing payload")
	}
	hit := m.StreakDays >= s.MinDays
	if s.Exact {
		hit = m.StreakDays == s.MinDays
	}
	if !hit {
		return false, nil, nil
	}
	return true, map[string]string{"streak_days": strconv.Itoa(m.StreakDays)}, nil
}

func evalStreakBroken(s *StreakBrokenCondition, m MetricsSnapshot) (bool, map[string]string, error) {
	if s == nil {
		return false, nil, fmt.Errorf("streak_broken: missing payload")
	}
	if m.StreakDays != 0 || m.PreviousStreakDays < s.MinPreviousDays {
		return false, nil, nil
	}
	return true, map[string]string{"previous_streak_days": strconv.Itoa(m.PreviousStreakDays)}, nil
}

func evalExtremeChange(x *ExtremeChangeCondition, m MetricsSnapshot) (bool, map[string]string, error) {
	if x == nil {
		return false, nil, fmt.Errorf("extreme_change: missing payload")
	}
	ok, subject, delta, err := matchScoped(x.Scope.candidates(m, x.Metric, x.FromPeriod, x.ToPeriod), x.Operator, x.Delta, func(subject string) (float64, bool) {
		from, okFrom := m.Value(x.Metric, x.FromPeriod, subject)
		to, okTo := m.Value(x.Metric, x.ToPeriod, subject)
		if !okFrom || !okTo {
			return 0, false
		}
		return to - from, true
	})
	if err != nil || !ok {
		return false, nil, err
	}
	binds := map[string]string{
		"delta":     formatNumber(delta),
		"abs_delta": formatNumber(math.Abs(delta)),
		"metric":    x.Metric,
	}
	if subject != "" {
		binds["subject"] = subject
	}
	return true, binds, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func evalCalendar(c *CalendarCondition, m MetricsSnapshot) (bool, map[string]string, error) {
	if c == nil {
		return false, nil, fmt.Errorf("calendar: missing payload")
	}
	now := m.Now
	if now.IsZero() {
		return false, nil, fmt.Errorf("calendar: snapshot has no time")
	}
	if c.DayOfWeek != "" {
		wd, ok := weekdays[strings.ToLower(c.DayOfWeek)]
		if !ok {
			return false, nil, fmt.Errorf("calendar: unknown day_of_week %q", c.DayOfWeek)
		}
		if now.Weekday() != wd {
			return false, nil, nil
		}
	}
	if c.DayOfMonth != 0 && now.Day() != c.DayOfMonth {
		return false, nil, nil
	}
	if c.MonthStart && now.Day() != 1 {
		return false, nil, nil
	}
	if c.MonthEnd && now.AddDate(0, 0, 1).Month() == now.Month() {
		return false, nil, nil
	}
	return true, map[string]string{
		"weekday": now.Weekday().String(),
		"month":   now.Month().String(),
	}, nil
}

func evalInactivity(in *InactivityCondition, m MetricsSnapshot) (bool, map[string]string, error) {
	if in == nil {
		return false, nil, fmt.Errorf("inactivity: missing payload")
	}
	if m.DaysInactive < 0 || m.DaysInactive < in.MinDays {
		return false, nil, nil
	}
	if in.MaxDays > 0 && m.DaysInactive > in.MaxDays {
		return false, nil, nil
	}
	return true, map[string]string{"days_inactive": strconv.Itoa(m.DaysInactive)}, nil
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
