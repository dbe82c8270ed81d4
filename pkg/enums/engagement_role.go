package enums

import "fmt"

// EngagementRole describes how a cast member is attending a visit.
type EngagementRole string

const (
	EngagementRolePrimary      EngagementRole = "primary"
	EngagementRoleInhouse      EngagementRole = "inhouse"
	EngagementRoleHelp         EngagementRole = "help"
	EngagementRoleCompanionOut EngagementRole = "companion_out"
	EngagementRoleAfter        EngagementRole = "after"
)

var validEngagementRoles = []EngagementRole{
	EngagementRolePrimary,
	EngagementRoleInhouse,
	EngagementRoleHelp,
	EngagementRoleCompanionOut,
	EngagementRoleAfter,
}

// String implements fmt.Stringer.
func (r EngagementRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known EngagementRole.
func (r EngagementRole) IsValid() bool {
	for _, candidate := range validEngagementRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseEngagementRole converts raw input into an EngagementRole.
func ParseEngagementRole(value string) (EngagementRole, error) {
	for _, candidate := range validEngagementRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid engagement role %q", value)
}
