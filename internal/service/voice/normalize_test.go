package voice

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only spaces", "   \t\n ", ""},
		{"lowercases", "AVANZA", "avanza"},
		{"collapses runs", "AVANZA   ahora", "avanza ahora"},
		{"trims", "  gira a la derecha  ", "gira a la derecha"},
		{"tabs and newlines", "vuelta\tderecha\n90", "vuelta derecha 90"},
		{"keeps accents", "ATRÁS", "atrás"},
		{"keeps punctuation", "¡Alto!", "¡alto!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"", "  Alfa  AVANZA ", "Gira   a la DERECHA noventa grados", "ÑANDÚ  "}

	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
