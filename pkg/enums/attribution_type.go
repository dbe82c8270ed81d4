package enums

import "fmt"

// AttributionType records which policy produced an attribution row.
type AttributionType string

const (
	AttributionTypeNomination   AttributionType = "nomination"
	AttributionTypeDrinkForCast AttributionType = "drink_for_cast"
	AttributionTypeTimeShare    AttributionType = "time_share"
	AttributionTypeManual       AttributionType = "manual"
	AttributionTypeAuto         AttributionType = "auto"
)

var validAttributionTypes = []AttributionType{
	AttributionTypeNomination,
	AttributionTypeDrinkForCast,
	AttributionTypeTimeShare,
	AttributionTypeManual,
	AttributionTypeAuto,
}

// String implements fmt.Stringer.
func (a AttributionType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AttributionType.
func (a AttributionType) IsValid() bool {
	for _, candidate := range validAttributionTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAttributionType converts raw input into an AttributionType.
func ParseAttributionType(value string) (AttributionType, error) {
	for _, candidate := range validAttributionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid attribution type %q", value)
}
