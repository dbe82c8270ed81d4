package pricing

import (
	"fmt"
	"strings"

	pkgerrors "github.com/kagetora-io/clubledger-backend/pkg/errors"
)

// Plan is the static rate schedule for one seating plan. Amounts are whole
// currency units.
type Plan struct {
	Code          string
	UnitMinutes   int
	UnitPrice     int64
	MinUnits      int
	RoomSurcharge int64
	NominationFee int64
	InhouseFee    int64
	HouseFee      int64
	SingleCharge  int64
}

func (p Plan) validate() error {
	if strings.TrimSpace(p.Code) == "" {
		return fmt.Errorf("plan code is required")
	}
	if p.UnitMinutes <= 0 {
		return fmt.Errorf("plan %s: unit minutes must be positive", p.Code)
	}
	if p.UnitPrice < 0 || p.RoomSurcharge < 0 || p.NominationFee < 0 || p.InhouseFee < 0 || p.HouseFee < 0 || p.SingleCharge < 0 {
		return fmt.Errorf("plan %s: rates must not be negative", p.Code)
	}
	if p.MinUnits < 1 {
		return fmt.Errorf("plan %s: minimum units must be at least 1", p.Code)
	}
	return nil
}

// Table is the seating-plan lookup. Pure data, safe for concurrent reads.
type Table struct {
	plans map[string]Plan
}

// NewTable builds a table from the given plans.
func NewTable(plans ...Plan) (*Table, error) {
	if len(plans) == 0 {
		return nil, fmt.Errorf("at least one seating plan is required")
	}
	byCode := make(map[string]Plan, len(plans))
	for _, plan := range plans {
		if err := plan.validate(); err != nil {
			return nil, err
		}
		if _, exists := byCode[plan.Code]; exists {
			return nil, fmt.Errorf("duplicate plan code %s", plan.Code)
		}
		byCode[plan.Code] = plan
	}
	return &Table{plans: byCode}, nil
}

// Default returns the house rate schedule used when no override is configured.
func Default() *Table {
	table, err := NewTable(
		Plan{Code: "BAR", UnitMinutes: 30, UnitPrice: 1000, MinUnits: 1, NominationFee: 2000, InhouseFee: 1000, HouseFee: 500, SingleCharge: 1000},
		Plan{Code: "TABLE", UnitMinutes: 60, UnitPrice: 5000, MinUnits: 1, RoomSurcharge: 3000, NominationFee: 3000, InhouseFee: 1500, HouseFee: 1000, SingleCharge: 1500},
		Plan{Code: "VIP", UnitMinutes: 60, UnitPrice: 12000, MinUnits: 2, RoomSurcharge: 10000, NominationFee: 5000, InhouseFee: 2500, HouseFee: 2000, SingleCharge: 3000},
	)
	if err != nil {
		panic(err)
	}
	return table
}

// Lookup resolves a plan by code. An unknown code is a configuration fault,
// not a user error.
func (t *Table) Lookup(code string) (Plan, error) {
	plan, ok := t.plans[code]
	if !ok {
		return Plan{}, pkgerrors.New(pkgerrors.CodeConfiguration, fmt.Sprintf("unknown seating plan %q", code))
	}
	return plan, nil
}
