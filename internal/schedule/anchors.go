package schedule

import "strings"

// Routine anchor names in Next-Slot priority order.
const (
	Breakfast = "Breakfast"
	Lunch     = "Lunch"
	Dinner    = "Dinner"
	Bedtime   = "Bedtime"
)

// AnchorOrder is the fixed priority order of the four anchors.
var AnchorOrder = []string{Breakfast, Lunch, Dinner, Bedtime}

// DefaultAnchors are the seeded anchor times.
func DefaultAnchors() map[string]string {
	return map[string]string{
		Breakfast: "08:00:00",
		Lunch:     "12:30:00",
		Dinner:    "18:00:00",
		Bedtime:   "21:00:00",
	}
}

// CanonicalAnchor maps a case-insensitive anchor name to its canonical form.
func CanonicalAnchor(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, a := range AnchorOrder {
		if strings.EqualFold(a, name) {
			return a, true
		}
	}
	return "", false
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
