package analytics

import (
	"regexp"
	"slices"
	"strings"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/report"
)

// MatchKind is the variant of a Matcher.
type MatchKind string

// Matcher variants.
const (
	MatchEquals   MatchKind = "equals"
	MatchContains MatchKind = "contains"
	MatchRegex    MatchKind = "regex"
	MatchAny      MatchKind = "any"
)

// Matcher is a predicate over one dimension value.
type Matcher struct {
	Kind  MatchKind
	Value string

	re *regexp.Regexp
}

// Equals matches the exact value.
func Equals(v string) Matcher { return Matcher{Kind: MatchEquals, Value: v} }

// Contains matches values holding v.
func Contains(v string) Matcher { return Matcher{Kind: MatchContains, Value: v} }

// Regex matches values in which the RE2 pattern finds a match.
func Regex(pattern string) Matcher { return Matcher{Kind: MatchRegex, Value: pattern} }

// Any matches everything. It is only valid as the last rule.
func Any() Matcher { return Matcher{Kind: MatchAny} }

func (m *Matcher) compile() error {
	switch m.Kind {
	case MatchEquals, MatchContains, MatchAny:
		return nil
	case MatchRegex:
		re, err := regexp.Compile(m.Value)
		if err != nil {
			return domain.ErrValidation("invalid pattern %q: %v", m.Value, err)
		}
		m.re = re
		return nil
	}
	return domain.ErrValidation("invalid match kind %q: must be equals, contains, regex or any", m.Kind)
}

// Match reports whether v satisfies the matcher. Matchers must be compiled
// through NewClassifier first.
func (m Matcher) Match(v string) bool {
	switch m.Kind {
	case MatchEquals:
		return v == m.Value
	case MatchContains:
		return strings.Contains(v, m.Value)
	case MatchRegex:
		return m.re != nil && m.re.MatchString(v)
	case MatchAny:
		return true
	}
	return false
}

// Rule labels the values its matcher accepts.
type Rule struct {
	Match Matcher
	Label string
}

// ParseRule reads "label=kind:value" or "label=any".
func ParseRule(s string) (Rule, error) {
	label, spec, ok := strings.Cut(s, "=")
	if !ok || label == "" {
		return Rule{}, domain.ErrValidation("invalid rule %q: expected label=kind:value", s)
	}
	if spec == string(MatchAny) {
		return Rule{Match: Any(), Label: label}, nil
	}
	kind, value, ok := strings.Cut(spec, ":")
	if !ok || value == "" {
		return Rule{}, domain.ErrValidation("invalid rule %q: expected label=kind:value", s)
	}
	return Rule{Match: Matcher{Kind: MatchKind(kind), Value: value}, Label: label}, nil
}

// Classifier applies ordered rules, first match wins.
type Classifier struct {
	rules []Rule
}

// NewClassifier validates the rules. The last rule must be the Any
// catch-all and no earlier rule may be.
func NewClassifier(rules []Rule) (*Classifier, error) {
	if len(rules) == 0 {
		return nil, domain.ErrValidation("at least one rule is required")
	}
	compiled := slices.Clone(rules)
	for i := range compiled {
		r := &compiled[i]
		if r.Label == "" {
			return nil, domain.ErrValidation("rule %d has no label", i+1)
		}
		if err := r.Match.compile(); err != nil {
			return nil, err
		}
		last := i == len(compiled)-1
		if r.Match.Kind == MatchAny && !last {
			return nil, domain.ErrValidation("rule %d: the catch-all rule must be last", i+1)
		}
		if last && r.Match.Kind != MatchAny {
			return nil, domain.ErrValidation("the last rule must be the catch-all (any)")
		}
	}
	return &Classifier{rules: compiled}, nil
}

// Rules returns the validated rules.
func (c *Classifier) Rules() []Rule { return slices.Clone(c.rules) }

// Labels returns the distinct labels in rule order.
func (c *Classifier) Labels() []string {
	var out []string
	for _, r := range c.rules {
		if !slices.Contains(out, r.Label) {
			out = append(out, r.Label)
		}
	}
	return out
}

// Label returns the label of the first rule matching v.
func (c *Classifier) Label(v string) string {
	for _, r := range c.rules {
		if r.Match.Match(v) {
			return r.Label
		}
	}
	// unreachable: the last rule matches everything
	return ""
}

// CategoryTotal is the traffic of every value assigned one label.
type CategoryTotal struct {
	Category    string  `json:"category"`
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
}

// Categorize labels every row by its dim value and sums clicks and
// impressions per label. Labels are returned in rule order; labels that
// matched nothing are omitted.
func Categorize(r *report.Report, dim string, rules []Rule) ([]CategoryTotal, error) {
	c, err := NewClassifier(rules)
	if err != nil {
		return nil, err
	}
	if err := r.Require([]string{dim}, []string{colClicks, colImpressions}); err != nil {
		return nil, err
	}
	sums := map[string]*CategoryTotal{}
	for i := 0; i < r.Len(); i++ {
		label := c.Label(r.Dim(i, dim))
		t, ok := sums[label]
		if !ok {
			t = &CategoryTotal{Category: label}
			sums[label] = t
		}
		t.Clicks += r.Metric(i, colClicks)
		t.Impressions += r.Metric(i, colImpressions)
	}
	return c.Order(sums), nil
}

// Order flattens per label totals in rule order.
func (c *Classifier) Order(sums map[string]*CategoryTotal) []CategoryTotal {
	var out []CategoryTotal
	for _, l := range c.Labels() {
		if t, ok := sums[l]; ok {
			out = append(out, *t)
		}
	}
	return out
}
