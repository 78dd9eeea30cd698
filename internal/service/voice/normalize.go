package voice

import "strings"

// Normalize lowercases text, trims it and collapses whitespace runs to one space.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
