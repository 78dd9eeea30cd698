package voice

import (
	"errors"
	"testing"

	"github.com/seu-repo/alfa-voz/internal/domain"
	"github.com/seu-repo/alfa-voz/pkg/config"
)

func TestLocalClassifier_DefaultRules(t *testing.T) {
	classifier := NewLocalClassifier(DefaultRules())

	tests := []struct {
		canonical string
		want      domain.Label
	}{
		{"avanza ahora", domain.LabelForward},
		{"sigue recto", domain.LabelForward},
		{"ve hacia atrás", domain.LabelBackward},
		{"retrocede un poco", domain.LabelBackward},
		{"para atras", domain.LabelBackward},
		{"alto", domain.LabelStop},
		{"frena ya", domain.LabelStop},
		{"vuelta a la derecha 90", domain.LabelRight90},
		{"gira a la derecha noventa grados", domain.LabelRight90},
		{"gira a la izquierda 90", domain.LabelLeft90},
		{"derecha 360", domain.LabelRight360},
		{"izquierda trescientos sesenta", domain.LabelLeft360},
		{"gira a la derecha", domain.LabelTurnRight},
		{"da vuelta a la izquierda", domain.LabelTurnLeft},
	}

	for _, tt := range tests {
		t.Run(tt.canonical, func(t *testing.T) {
			got, ok := classifier.Classify(tt.canonical)
			if !ok {
				t.Fatalf("expected a local match for %q", tt.canonical)
			}
			if got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.canonical, got, tt.want)
			}
		})
	}
}

func TestLocalClassifier_NoMatch(t *testing.T) {
	classifier := NewLocalClassifier(DefaultRules())

	for _, canonical := range []string{"", "hola", "qué hora es", "avanzada", "derecha"} {
		if label, ok := classifier.Classify(canonical); ok {
			t.Errorf("expected no match for %q, got %q", canonical, label)
		}
	}
}

func TestLocalClassifier_AngleRulesBeforeGenericTurn(t *testing.T) {
	// Arrange
	rules := DefaultRules()
	classifier := NewLocalClassifier(rules)

	// Act
	rule, ok := classifier.Match("vuelta derecha 90")

	// Assert
	if !ok {
		t.Fatal("expected a match")
	}
	if rule.Name != "right-90" {
		t.Errorf("expected right-90 to win, got %s", rule.Name)
	}

	index := map[string]int{}
	for i, r := range classifier.Rules() {
		index[r.Name] = i
	}
	for _, specific := range []string{"right-90", "left-90", "right-360", "left-360"} {
		if index[specific] > index["turn-right"] || index[specific] > index["turn-left"] {
			t.Errorf("rule %s must be evaluated before the generic turn rules", specific)
		}
	}
}

func TestLocalClassifier_FirstMatchWins(t *testing.T) {
	first, err := NewRule("first", domain.LabelStop, `para`)
	if err != nil {
		t.Fatalf("NewRule failed: %v", err)
	}
	second, err := NewRule("second", domain.LabelBackward, `para`)
	if err != nil {
		t.Fatalf("NewRule failed: %v", err)
	}

	got, ok := NewLocalClassifier([]Rule{first, second}).Classify("para")
	if !ok || got != domain.LabelStop {
		t.Errorf("expected %q from the first rule, got %q (ok=%v)", domain.LabelStop, got, ok)
	}
}

func TestLocalClassifier_EmptyRuleSet(t *testing.T) {
	if _, ok := NewLocalClassifier(nil).Classify("avanza"); ok {
		t.Error("empty rule set must never match")
	}
}

func TestNewRule_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		label    domain.Label
		patterns []string
	}{
		{"sentinel label", domain.LabelUnrecognized, []string{"x"}},
		{"unknown label", domain.Label("saltar"), []string{"x"}},
		{"no patterns", domain.LabelForward, nil},
		{"bad regex", domain.LabelForward, []string{"("}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRule(tt.name, tt.label, tt.patterns...)
			if !errors.Is(err, ErrInvalidRule) {
				t.Errorf("expected ErrInvalidRule, got %v", err)
			}
		})
	}
}

func TestRulesFromConfig(t *testing.T) {
	rules, err := RulesFromConfig([]config.RuleConfig{
		{Name: "adelante", Label: "avanzar", Patterns: []string{`\badelante\b`}},
		{Label: "detener", Patterns: []string{`\bya basta\b`}},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[1].Name != "rule-1" {
		t.Errorf("expected generated name 'rule-1', got %q", rules[1].Name)
	}

	got, ok := NewLocalClassifier(rules).Classify("ya basta")
	if !ok || got != domain.LabelStop {
		t.Errorf("expected %q, got %q", domain.LabelStop, got)
	}

	_, err = RulesFromConfig([]config.RuleConfig{{Label: "Avanzar", Patterns: []string{"x"}}})
	if !errors.Is(err, ErrInvalidRule) {
		t.Errorf("expected ErrInvalidRule for a label outside the vocabulary, got %v", err)
	}
}
