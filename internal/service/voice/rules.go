package voice

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/seu-repo/alfa-voz/internal/domain"
	"github.com/seu-repo/alfa-voz/pkg/config"
)

var ErrInvalidRule = errors.New("voice: invalid local rule")

// Rule maps canonical text to a label when every one of its patterns matches.
type Rule struct {
	Name     string
	Label    domain.Label
	patterns []*regexp.Regexp
}

// NewRule compiles a rule. The label must belong to the closed vocabulary.
func NewRule(name string, label domain.Label, patterns ...string) (Rule, error) {
	if !label.IsAction() {
		return Rule{}, fmt.Errorf("%w: %s: label %q is not an action", ErrInvalidRule, name, label)
	}
	if len(patterns) == 0 {
		return Rule{}, fmt.Errorf("%w: %s: no patterns", ErrInvalidRule, name)
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: %s: %v", ErrInvalidRule, name, err)
		}
		compiled = append(compiled, re)
	}

	return Rule{Name: name, Label: label, patterns: compiled}, nil
}

func mustRule(name string, label domain.Label, patterns ...string) Rule {
	r, err := NewRule(name, label, patterns...)
	if err != nil {
		panic(err)
	}
	return r
}

// Matches reports whether all patterns hold for the canonical text.
func (r Rule) Matches(canonical string) bool {
	for _, re := range r.patterns {
		if !re.MatchString(canonical) {
			return false
		}
	}
	return true
}

const (
	rightWord = `\bderecha\b`
	leftWord  = `\bizquierda\b`
	turnWord  = `\b(?:vuelta|gira|girar|giro)\b`
	angle90   = `(?:90|noventa)`
	angle360  = `(?:360|trescientos sesenta)`
)

// DefaultRules is the Spanish rule set. Order matters: the angle rules must run
// before the generic turn rules or they are never reached.
func DefaultRules() []Rule {
	return []Rule{
		mustRule("forward", domain.LabelForward,
			`\b(?:adelante|avanza|avance|avanzar|go|enfrente|en frente|recto|derecho|sigue|continua|continúe)\b`),
		mustRule("backward", domain.LabelBackward,
			`\b(?:atrás|atras|retrocede|retroceder|para atrás|para atras|back|reversa)\b`),
		mustRule("stop", domain.LabelStop,
			`\b(?:alto|detente|detener|stop|parar|para|frena)\b`),

		mustRule("right-90", domain.LabelRight90, rightWord, angle90),
		mustRule("left-90", domain.LabelLeft90, leftWord, angle90),
		mustRule("right-360", domain.LabelRight360, rightWord, angle360),
		mustRule("left-360", domain.LabelLeft360, leftWord, angle360),

		mustRule("turn-right", domain.LabelTurnRight, turnWord, `derecha`),
		mustRule("turn-left", domain.LabelTurnLeft, turnWord, `izquierda`),
	}
}

// RulesFromConfig builds an ordered rule list from configuration entries.
func RulesFromConfig(entries []config.RuleConfig) ([]Rule, error) {
	rules := make([]Rule, 0, len(entries))
	for i, e := range entries {
		name := e.Name
		if name == "" {
			name = fmt.Sprintf("rule-%d", i)
		}
		r, err := NewRule(name, domain.Label(e.Label), e.Patterns...)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// LocalClassifier evaluates rules in order; the first match wins.
type LocalClassifier struct {
	rules []Rule
}

func NewLocalClassifier(rules []Rule) *LocalClassifier {
	return &LocalClassifier{rules: rules}
}

// Match returns the winning rule for canonical text, if any.
func (c *LocalClassifier) Match(canonical string) (Rule, bool) {
	for _, r := range c.rules {
		if r.Matches(canonical) {
			return r, true
		}
	}
	return Rule{}, false
}

// Classify returns the label of the first matching rule. A miss is not an
// error; it tells the caller to try the remote classifier.
func (c *LocalClassifier) Classify(canonical string) (domain.Label, bool) {
	r, ok := c.Match(canonical)
	if !ok {
		return "", false
	}
	return r.Label, true
}

// Rules returns the rules in evaluation order.
func (c *LocalClassifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}
