package coaching

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
)

// RuleBook is the versioned, immutable rule configuration. Categories and the rules inside
// them keep their declaration order, which breaks priority ties.
type RuleBook struct {
	Version    string     `yaml:"version"`
	Categories []Category `yaml:"categories"`

	// filled by Parse
	rules []*Rule
}

type Category struct {
	ID    string  `yaml:"id"`
	Rules []*Rule `yaml:"rules"`
}

type Rule struct {
	ID             string               `yaml:"id"`
	Priority       int                  `yaml:"priority"`
	Condition      Condition            `yaml:"condition"`
	Action         string               `yaml:"action"`
	SuggestionType types.SuggestionType `yaml:"suggestion_type"`
	DurationDays   int                  `yaml:"duration_days"`
	Triggers       []types.Trigger      `yaml:"triggers"`

	// filled by Parse
	category string
	order    int
}

func (r *Rule) Category() string { return r.category }

func (r *Rule) HasTrigger(t types.Trigger) bool {
	for _, have := range r.Triggers {
		if have == t {
			return true
		}
	}
	return false
}

// Rules returns every rule in declaration order.
func (b *RuleBook) Rules() []*Rule {
	if b == nil {
		return nil
	}
	return b.rules
}

// Rule looks a rule up by id.
func (b *RuleBook) Rule(id string) *Rule {
	for _, r := range b.Rules() {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Parse decodes and validates a YAML rule book.
func Parse(data []byte) (*RuleBook, error) {
	var book RuleBook
	if err := yaml.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("rulebook: decode: %w", err)
	}
	if err := book.index(); err != nil {
		return nil, err
	}
	return &book, nil
}

func (b *RuleBook) index() error {
	if strings.TrimSpace(b.Version) == "" {
		return fmt.Errorf("rulebook: version is required")
	}
	if len(b.Categories) == 0 {
		return fmt.Errorf("rulebook: no categories defined")
	}
	seenCategory := map[string]bool{}
	seenRule := map[string]bool{}
	b.rules = nil
	order := 0
	for _, cat := range b.Categories {
		id := strings.TrimSpace(cat.ID)
		if id == "" {
			return fmt.Errorf("rulebook: category id is required")
		}
		if seenCategory[id] {
			return fmt.Errorf("rulebook: duplicate category %q", id)
		}
		seenCategory[id] = true
		for _, r := range cat.Rules {
			if r == nil {
				continue
			}
			if err := r.validate(); err != nil {
				return fmt.Errorf("rulebook: category %q: %w", id, err)
			}
			if seenRule[r.ID] {
				return fmt.Errorf("rulebook: duplicate rule id %q", r.ID)
			}
			seenRule[r.ID] = true
			r.category = id
			r.order = order
			order++
			b.rules = append(b.rules, r)
		}
	}
	return nil
}

func (r *Rule) validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("rule id is required")
	}
	if !r.SuggestionType.Valid() {
		return fmt.Errorf("rule %q: unknown suggestion_type %q", r.ID, r.SuggestionType)
	}
	if r.DurationDays < 0 {
		return fmt.Errorf("rule %q: duration_days must be >= 0", r.ID)
	}
	if strings.TrimSpace(r.Action) == "" {
		return fmt.Errorf("rule %q: action is required", r.ID)
	}
	if len(r.Triggers) == 0 {
		return fmt.Errorf("rule %q: at least one trigger is required", r.ID)
	}
	for _, t := range r.Triggers {
		if !t.Valid() {
			return fmt.Errorf("rule %q: unknown trigger %q", r.ID, t)
		}
	}
	if err := r.Condition.validate(); err != nil {
		return fmt.Errorf("rule %q: %w", r.ID, err)
	}
	return nil
}
