package domain

import "strings"

// Label is one of the commands the vehicle understands.
type Label string

const (
	LabelForward      Label = "avanzar"
	LabelBackward     Label = "retroceder"
	LabelStop         Label = "detener"
	LabelTurnRight    Label = "vuelta derecha"
	LabelTurnLeft     Label = "vuelta izquierda"
	LabelRight90      Label = "90° derecha"
	LabelLeft90       Label = "90° izquierda"
	LabelRight360     Label = "360° derecha"
	LabelLeft360      Label = "360° izquierda"
	LabelUnrecognized Label = "Orden no reconocida"
)

// ActionLabels returns the nine labels that drive the actuator, in prompt order.
func ActionLabels() []Label {
	return []Label{
		LabelForward,
		LabelBackward,
		LabelStop,
		LabelTurnRight,
		LabelTurnLeft,
		LabelRight90,
		LabelLeft90,
		LabelRight360,
		LabelLeft360,
	}
}

// AllLabels returns the closed vocabulary: the action labels plus the sentinel.
func AllLabels() []Label {
	return append(ActionLabels(), LabelUnrecognized)
}

func (l Label) String() string {
	return string(l)
}

// IsValid reports exact, case-sensitive membership in the closed vocabulary.
func (l Label) IsValid() bool {
	for _, valid := range AllLabels() {
		if l == valid {
			return true
		}
	}
	return false
}

// IsAction reports whether the label asks the vehicle to do something.
func (l Label) IsAction() bool {
	return l.IsValid() && l != LabelUnrecognized
}

// ParseLabel is the validation gate for untrusted producers. Only surrounding
// whitespace is tolerated; anything else that is not an exact member of the
// vocabulary collapses to LabelUnrecognized with ok=false.
func ParseLabel(raw string) (Label, bool) {
	candidate := Label(strings.TrimSpace(raw))
	if candidate.IsValid() {
		return candidate, true
	}
	return LabelUnrecognized, false
}
