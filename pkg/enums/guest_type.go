package enums

import "fmt"

// GuestType distinguishes the main guest from companions on a shared visit.
type GuestType string

const (
	GuestTypeMain       GuestType = "main"
	GuestTypeCompanion  GuestType = "companion"
	GuestTypeAdditional GuestType = "additional"
)

var validGuestTypes = []GuestType{
	GuestTypeMain,
	GuestTypeCompanion,
	GuestTypeAdditional,
}

// String implements fmt.Stringer.
func (g GuestType) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GuestType.
func (g GuestType) IsValid() bool {
	for _, candidate := range validGuestTypes {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGuestType converts raw input into a GuestType.
func ParseGuestType(value string) (GuestType, error) {
	for _, candidate := range validGuestTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid guest type %q", value)
}
