package intent

import (
	"fmt"
	"strings"
)

// Category is the closed set of emergency intents. Declaration order is the
// tie-break priority: life-safety intents first, so ambiguous input is never
// silently resolved away from them.
type Category int

const (
	Unknown Category = iota
	Medical
	Fire
	Flood
	Earthquake
	ShelterRequest
	GeneralHelp
	Exit
)

var categoryNames = map[Category]string{
	Unknown:        "unknown",
	Medical:        "medical",
	Fire:           "fire",
	Flood:          "flood",
	Earthquake:     "earthquake",
	ShelterRequest: "shelter",
	GeneralHelp:    "help",
	Exit:           "exit",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return "unknown"
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory accepts both plain names ("medical") and the legacy dataset
// keys ("medical_phrases").
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "_phrases")
	for c, name := range categoryNames {
		if name == s {
			return c, nil
		}
	}
	return Unknown, fmt.Errorf("unknown category %q", s)
}

// NeedsLocation reports whether responses for the category include a
// nearest-shelter lookup.
func (c Category) NeedsLocation() bool {
	switch c {
	case Medical, Fire, Flood, Earthquake, ShelterRequest:
		return true
	}
	return false
}

// higherPriority reports whether a outranks b under the fixed order
// Medical > Fire > Flood > Earthquake > ShelterRequest > GeneralHelp > Exit.
func higherPriority(a, b Category) bool {
	if a == Unknown {
		return false
	}
	if b == Unknown {
		return true
	}
	return a < b
}
