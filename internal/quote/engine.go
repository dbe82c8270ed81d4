package quote

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kagetora-io/clubledger-backend/internal/pricing"
	"github.com/kagetora-io/clubledger-backend/pkg/enums"
	pkgerrors "github.com/kagetora-io/clubledger-backend/pkg/errors"
	"github.com/kagetora-io/clubledger-backend/pkg/money"
)

// Input carries everything Compute needs. It is a value type so previews can
// be recomputed freely.
type Input struct {
	PlanCode        string
	Start           time.Time
	End             time.Time
	UseRoom         bool
	NominationCount int
	InhouseCount    int
	HouseFee        bool
	SingleCharge    bool
	DrinkTotal      int64
	ServiceRate     float64
	TaxRate         float64
}

// Line is one itemized charge on a quote.
type Line struct {
	Type      enums.QuoteLineType `json:"type"`
	Name      string              `json:"name"`
	Quantity  int                 `json:"quantity"`
	UnitPrice int64               `json:"unit_price"`
	Amount    int64               `json:"amount"`
}

// Quote is the computed, itemized bill for a visit. It is ephemeral; nothing
// is persisted until a caller applies it.
type Quote struct {
	PlanCode      string `json:"plan_code"`
	StayMinutes   int64  `json:"stay_minutes"`
	BilledUnits   int    `json:"billed_units"`
	Lines         []Line `json:"lines"`
	Subtotal      int64  `json:"subtotal"`
	ServiceAmount int64  `json:"service_amount"`
	TaxAmount     int64  `json:"tax_amount"`
	ServiceTax    int64  `json:"service_tax"`
	Total         int64  `json:"total"`
}

// Engine computes quotes against a pricing table. Compute is pure: identical
// inputs always produce identical quotes, and nothing is written anywhere.
type Engine struct {
	table *pricing.Table
}

// NewEngine builds a quote engine over the given pricing table.
func NewEngine(table *pricing.Table) (*Engine, error) {
	if table == nil {
		return nil, fmt.Errorf("pricing table required")
	}
	return &Engine{table: table}, nil
}

// Compute turns visit parameters into an itemized quote.
func (e *Engine) Compute(in Input) (*Quote, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	plan, err := e.table.Lookup(in.PlanCode)
	if err != nil {
		return nil, err
	}

	stayMinutes := int64(0)
	if in.End.After(in.Start) {
		elapsed := in.End.Sub(in.Start)
		stayMinutes = int64(elapsed / time.Minute)
		if elapsed%time.Minute != 0 {
			stayMinutes++
		}
	}

	units := int(stayMinutes) / plan.UnitMinutes
	if int(stayMinutes)%plan.UnitMinutes != 0 {
		units++
	}
	if units < plan.MinUnits {
		units = plan.MinUnits
	}

	lines := []Line{{
		Type:      enums.QuoteLineTypeSeatTime,
		Name:      fmt.Sprintf("Seat time (%d x %dmin)", units, plan.UnitMinutes),
		Quantity:  units,
		UnitPrice: plan.UnitPrice,
		Amount:    plan.UnitPrice * int64(units),
	}}

	if in.UseRoom {
		lines = append(lines, Line{
			Type:      enums.QuoteLineTypeRoomSurcharge,
			Name:      "Room surcharge",
			Quantity:  1,
			UnitPrice: plan.RoomSurcharge,
			Amount:    plan.RoomSurcharge,
		})
	}

	// One line per nomination and per inhouse unit so each fee stays
	// traceable to the engagement that earned it.
	for i := 0; i < in.NominationCount; i++ {
		lines = append(lines, Line{
			Type:      enums.QuoteLineTypeNominationFee,
			Name:      "Nomination fee",
			Quantity:  1,
			UnitPrice: plan.NominationFee,
			Amount:    plan.NominationFee,
		})
	}
	for i := 0; i < in.InhouseCount; i++ {
		lines = append(lines, Line{
			Type:      enums.QuoteLineTypeInhouseFee,
			Name:      "In-house nomination fee",
			Quantity:  1,
			UnitPrice: plan.InhouseFee,
			Amount:    plan.InhouseFee,
		})
	}

	if in.HouseFee {
		lines = append(lines, Line{
			Type:      enums.QuoteLineTypeHouseFee,
			Name:      "House fee",
			Quantity:  1,
			UnitPrice: plan.HouseFee,
			Amount:    plan.HouseFee,
		})
	}
	if in.SingleCharge {
		lines = append(lines, Line{
			Type:      enums.QuoteLineTypeSingleCharge,
			Name:      "Single charge",
			Quantity:  1,
			UnitPrice: plan.SingleCharge,
			Amount:    plan.SingleCharge,
		})
	}

	// Drinks are summed upstream; the raw total passes through verbatim.
	lines = append(lines, Line{
		Type:      enums.QuoteLineTypeDrink,
		Name:      "Drinks",
		Quantity:  1,
		UnitPrice: in.DrinkTotal,
		Amount:    in.DrinkTotal,
	})

	var subtotal int64
	for _, line := range lines {
		subtotal += line.Amount
	}

	// Rounding happens once per derived amount, never per line.
	serviceAmount := money.ApplyRate(subtotal, decimal.NewFromFloat(in.ServiceRate))
	taxAmount := money.ApplyRate(subtotal+serviceAmount, decimal.NewFromFloat(in.TaxRate))

	return &Quote{
		PlanCode:      plan.Code,
		StayMinutes:   stayMinutes,
		BilledUnits:   units,
		Lines:         lines,
		Subtotal:      subtotal,
		ServiceAmount: serviceAmount,
		TaxAmount:     taxAmount,
		ServiceTax:    serviceAmount + taxAmount,
		Total:         subtotal + serviceAmount + taxAmount,
	}, nil
}

func validateInput(in Input) error {
	if in.ServiceRate < 0 || in.ServiceRate > 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "service rate must be within [0,1]")
	}
	if in.TaxRate < 0 || in.TaxRate > 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "tax rate must be within [0,1]")
	}
	if in.DrinkTotal < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "drink total must not be negative")
	}
	if in.NominationCount < 0 || in.InhouseCount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "nomination counts must not be negative")
	}
	return nil
}
