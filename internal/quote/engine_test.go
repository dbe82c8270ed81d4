package quote

import (
	"reflect"
	"testing"
	"time"

	"github.com/kagetora-io/clubledger-backend/internal/pricing"
	"github.com/kagetora-io/clubledger-backend/pkg/enums"
	pkgerrors "github.com/kagetora-io/clubledger-backend/pkg/errors"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(pricing.Default())
	if err != nil {
		t.Fatalf("unexpected engine error: %v", err)
	}
	return engine
}

func baseInput() Input {
	start := time.Date(2025, 8, 1, 20, 0, 0, 0, time.UTC)
	return Input{
		PlanCode:    "BAR",
		Start:       start,
		End:         start.Add(125 * time.Minute),
		ServiceRate: 0.1,
		TaxRate:     0.1,
	}
}

func TestComputeSeatTimeRoundsUpToUnits(t *testing.T) {
	engine := newEngine(t)

	// 125 minutes on a 30-minute unit bills 5 units.
	q, err := engine.Compute(baseInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.BilledUnits != 5 {
		t.Fatalf("expected 5 billed units, got %d", q.BilledUnits)
	}
	if q.Lines[0].Type != enums.QuoteLineTypeSeatTime || q.Lines[0].Amount != 5000 {
		t.Fatalf("unexpected seat line: %+v", q.Lines[0])
	}
}

func TestComputeAppliesMinimumUnitFloor(t *testing.T) {
	engine := newEngine(t)
	in := baseInput()
	in.PlanCode = "VIP" // 60-minute units, 2-unit minimum
	in.End = in.Start.Add(1 * time.Minute)

	q, err := engine.Compute(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.BilledUnits != 2 {
		t.Fatalf("expected minimum 2 units, got %d", q.BilledUnits)
	}
	if q.Lines[0].Amount != 24000 {
		t.Fatalf("expected seat line 24000, got %d", q.Lines[0].Amount)
	}
}

func TestComputeServiceAndTaxDerivation(t *testing.T) {
	engine := newEngine(t)
	in := baseInput()
	in.End = in.Start.Add(150 * time.Minute) // 5 units = 5000
	in.DrinkTotal = 5000                     // subtotal 10000

	q, err := engine.Compute(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Subtotal != 10000 {
		t.Fatalf("expected subtotal 10000, got %d", q.Subtotal)
	}
	if q.ServiceAmount != 1000 {
		t.Fatalf("expected service 1000, got %d", q.ServiceAmount)
	}
	if q.TaxAmount != 1100 {
		t.Fatalf("expected tax 1100, got %d", q.TaxAmount)
	}
	if q.Total != 12100 {
		t.Fatalf("expected total 12100, got %d", q.Total)
	}
	if q.Total != q.Subtotal+q.ServiceAmount+q.TaxAmount {
		t.Fatal("total identity violated")
	}
}

func TestComputeEmitsPerNominationLines(t *testing.T) {
	engine := newEngine(t)
	in := baseInput()
	in.NominationCount = 2
	in.InhouseCount = 1
	in.HouseFee = true
	in.SingleCharge = true
	in.UseRoom = true
	in.PlanCode = "TABLE"

	q, err := engine.Compute(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts := map[enums.QuoteLineType]int{}
	for _, line := range q.Lines {
		counts[line.Type]++
	}
	if counts[enums.QuoteLineTypeNominationFee] != 2 {
		t.Fatalf("expected 2 nomination lines, got %d", counts[enums.QuoteLineTypeNominationFee])
	}
	if counts[enums.QuoteLineTypeInhouseFee] != 1 {
		t.Fatalf("expected 1 inhouse line, got %d", counts[enums.QuoteLineTypeInhouseFee])
	}
	if counts[enums.QuoteLineTypeRoomSurcharge] != 1 || counts[enums.QuoteLineTypeHouseFee] != 1 || counts[enums.QuoteLineTypeSingleCharge] != 1 {
		t.Fatalf("missing flag lines: %v", counts)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	engine := newEngine(t)
	in := baseInput()
	in.DrinkTotal = 4321
	in.NominationCount = 1

	first, err := engine.Compute(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.Compute(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different quotes:\n%+v\n%+v", first, second)
	}
}

func TestComputeZeroLengthStayStillBillsMinimum(t *testing.T) {
	engine := newEngine(t)
	in := baseInput()
	in.End = in.Start // checkout before the clock moves

	q, err := engine.Compute(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.StayMinutes != 0 {
		t.Fatalf("expected 0 stay minutes, got %d", q.StayMinutes)
	}
	if q.BilledUnits != 1 {
		t.Fatalf("expected minimum 1 unit, got %d", q.BilledUnits)
	}
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	engine := newEngine(t)

	tests := []struct {
		name   string
		mutate func(*Input)
		code   pkgerrors.Code
	}{
		{name: "service rate above 1", mutate: func(in *Input) { in.ServiceRate = 1.5 }, code: pkgerrors.CodeValidation},
		{name: "negative tax rate", mutate: func(in *Input) { in.TaxRate = -0.1 }, code: pkgerrors.CodeValidation},
		{name: "negative drink total", mutate: func(in *Input) { in.DrinkTotal = -100 }, code: pkgerrors.CodeValidation},
		{name: "negative nomination count", mutate: func(in *Input) { in.NominationCount = -1 }, code: pkgerrors.CodeValidation},
		{name: "unknown plan", mutate: func(in *Input) { in.PlanCode = "NOPE" }, code: pkgerrors.CodeConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			tt.mutate(&in)
			_, err := engine.Compute(in)
			if err == nil {
				t.Fatal("expected error")
			}
			if !pkgerrors.HasCode(err, tt.code) {
				t.Fatalf("expected code %s, got %v", tt.code, err)
			}
		})
	}
}
