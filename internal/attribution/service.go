package attribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kagetora-io/clubledger-backend/internal/orders"
	"github.com/kagetora-io/clubledger-backend/internal/visits"
	"github.com/kagetora-io/clubledger-backend/pkg/db/models"
	"github.com/kagetora-io/clubledger-backend/pkg/enums"
	pkgerrors "github.com/kagetora-io/clubledger-backend/pkg/errors"
	"github.com/kagetora-io/clubledger-backend/pkg/metrics"
	"github.com/kagetora-io/clubledger-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

var hundred = decimal.NewFromInt(100)

// primaryThreshold marks the cast carrying the item: percentage >= 50.
var primaryThreshold = decimal.NewFromInt(50)

// ManualEntry is one caller-supplied share for a manual attribution set.
type ManualEntry struct {
	CastID     uuid.UUID
	Percentage decimal.Decimal
}

// Service computes and validates per-cast revenue shares for order items.
// Committing a set replaces the item's prior set entirely; a set that fails
// validation writes nothing.
type Service interface {
	SetManual(ctx context.Context, orderItemID uuid.UUID, entries []ManualEntry) ([]models.BillItemAttribution, error)
	AutoCalculate(ctx context.Context, orderItemID uuid.UUID) ([]models.BillItemAttribution, error)
	List(ctx context.Context, orderItemID uuid.UUID) ([]models.BillItemAttribution, error)
	VoidAllocations(ctx context.Context, tx *gorm.DB, orderItemID uuid.UUID) error
}

type service struct {
	tx          txRunner
	repo        Repository
	orders      orders.Repository
	visits      visits.Repository
	epsilon     decimal.Decimal
	billMetrics *metrics.BillingMetrics
}

// NewService wires the attribution engine. epsilon bounds the accepted
// floating drift on manual percentage sums; billMetrics may be nil.
func NewService(tx txRunner, repo Repository, ordersRepo orders.Repository, visitsRepo visits.Repository, epsilon decimal.Decimal, billMetrics *metrics.BillingMetrics) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("attribution repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if visitsRepo == nil {
		return nil, fmt.Errorf("visits repository required")
	}
	if epsilon.IsNegative() {
		return nil, fmt.Errorf("epsilon must not be negative")
	}
	return &service{
		tx:          tx,
		repo:        repo,
		orders:      ordersRepo,
		visits:      visitsRepo,
		epsilon:     epsilon,
		billMetrics: billMetrics,
	}, nil
}

// SetManual validates and commits a caller-supplied percentage split. The
// whole set is rejected when the percentages do not sum to 100 within
// epsilon; no partial rows are ever written.
func (s *service) SetManual(ctx context.Context, orderItemID uuid.UUID, entries []ManualEntry) ([]models.BillItemAttribution, error) {
	if len(entries) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one attribution entry required")
	}

	percents := make([]decimal.Decimal, len(entries))
	seen := make(map[uuid.UUID]struct{}, len(entries))
	for i, entry := range entries {
		if entry.CastID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cast id required on every entry")
		}
		if _, dup := seen[entry.CastID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate cast %s", entry.CastID))
		}
		seen[entry.CastID] = struct{}{}
		if entry.Percentage.IsNegative() || entry.Percentage.GreaterThan(hundred) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentages must be within [0,100]")
		}
		percents[i] = entry.Percentage
	}

	if !money.SumsTo100(percents, s.epsilon) {
		sum := decimal.Zero
		for _, pct := range percents {
			sum = sum.Add(pct)
		}
		return nil, pkgerrors.New(pkgerrors.CodeImbalance, "attribution percentages must sum to 100").
			WithDetails(map[string]any{"sum": sum.String()})
	}

	var rows []models.BillItemAttribution
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		item, err := findOrderItem(ctx, ordersRepo, orderItemID)
		if err != nil {
			return err
		}

		amounts := money.AllocateByPercent(item.Total, percents)
		rows = make([]models.BillItemAttribution, len(entries))
		for i, entry := range entries {
			rows[i] = models.BillItemAttribution{
				OrderItemID: item.ID,
				CastID:      entry.CastID,
				Percentage:  entry.Percentage,
				Amount:      amounts[i],
				Type:        enums.AttributionTypeManual,
				IsPrimary:   entry.Percentage.GreaterThanOrEqual(primaryThreshold),
			}
		}

		if err := repo.DeleteByOrderItem(ctx, item.ID); err != nil {
			return err
		}
		return repo.CreateBatch(ctx, rows)
	})
	if err != nil {
		return nil, err
	}

	s.billMetrics.IncAttributionSet("manual")
	return rows, nil
}

// AutoCalculate derives the split from the item's nature: an item targeted at
// a specific cast goes 100% to that cast; anything else is split across the
// casts active when the order was placed, weighted by how long each had been
// engaged. Re-running replaces the prior set.
func (s *service) AutoCalculate(ctx context.Context, orderItemID uuid.UUID) ([]models.BillItemAttribution, error) {
	var rows []models.BillItemAttribution

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)
		visitsRepo := s.visits.WithTx(tx)

		item, err := findOrderItem(ctx, ordersRepo, orderItemID)
		if err != nil {
			return err
		}

		if item.TargetCastID != nil {
			rows = []models.BillItemAttribution{{
				OrderItemID: item.ID,
				CastID:      *item.TargetCastID,
				Percentage:  hundred,
				Amount:      item.Total,
				Type:        targetedType(item.LineType),
				IsPrimary:   true,
			}}
		} else {
			rows, err = s.timeWeightedRows(ctx, visitsRepo, item)
			if err != nil {
				return err
			}
		}

		if err := repo.DeleteByOrderItem(ctx, item.ID); err != nil {
			return err
		}
		return repo.CreateBatch(ctx, rows)
	})
	if err != nil {
		return nil, err
	}

	s.billMetrics.IncAttributionSet("auto")
	return rows, nil
}

func (s *service) List(ctx context.Context, orderItemID uuid.UUID) ([]models.BillItemAttribution, error) {
	return s.repo.ListByOrderItem(ctx, orderItemID)
}

// VoidAllocations drops the item's attribution set inside the caller's
// transaction. The order correction path uses it when a row is superseded.
func (s *service) VoidAllocations(ctx context.Context, tx *gorm.DB, orderItemID uuid.UUID) error {
	return s.repo.WithTx(tx).DeleteByOrderItem(ctx, orderItemID)
}

// timeWeightedRows splits an untargeted item across the casts engaged at the
// order's placed_at. Weights are whole minutes of engagement up to that point
// (minimum one, so a just-seated cast still earns a share). Percentages carry
// two decimals; the largest weight absorbs the rounding remainder so the set
// sums to exactly 100.
func (s *service) timeWeightedRows(ctx context.Context, visitsRepo visits.Repository, item *models.OrderItem) ([]models.BillItemAttribution, error) {
	engagements, err := visitsRepo.ListEngagements(ctx, item.VisitID, false)
	if err != nil {
		return nil, err
	}

	var active []models.CastEngagement
	for _, engagement := range engagements {
		if engagement.StartedAt.After(item.PlacedAt) {
			continue
		}
		if engagement.EndedAt != nil && !engagement.EndedAt.After(item.PlacedAt) {
			continue
		}
		active = append(active, engagement)
	}
	if len(active) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no cast engagements were active when the order was placed")
	}

	weights := make([]decimal.Decimal, len(active))
	total := decimal.Zero
	for i, engagement := range active {
		minutes := int64(item.PlacedAt.Sub(engagement.StartedAt) / time.Minute)
		if minutes < 1 {
			minutes = 1
		}
		weights[i] = decimal.NewFromInt(minutes)
		total = total.Add(weights[i])
	}

	percents := make([]decimal.Decimal, len(active))
	sum := decimal.Zero
	largest := 0
	for i, weight := range weights {
		percents[i] = weight.Mul(hundred).Div(total).Round(2)
		sum = sum.Add(percents[i])
		if weight.GreaterThan(weights[largest]) {
			largest = i
		}
	}
	// ListEngagements orders by started_at, so ties keep the earliest cast.
	percents[largest] = percents[largest].Add(hundred.Sub(sum))

	amounts := money.AllocateByPercent(item.Total, percents)
	rows := make([]models.BillItemAttribution, len(active))
	for i, engagement := range active {
		rows[i] = models.BillItemAttribution{
			OrderItemID: item.ID,
			CastID:      engagement.CastID,
			Percentage:  percents[i],
			Amount:      amounts[i],
			Type:        enums.AttributionTypeTimeShare,
			IsPrimary:   percents[i].GreaterThanOrEqual(primaryThreshold),
		}
	}
	return rows, nil
}

func targetedType(lineType enums.QuoteLineType) enums.AttributionType {
	switch lineType {
	case enums.QuoteLineTypeNominationFee, enums.QuoteLineTypeInhouseFee:
		return enums.AttributionTypeNomination
	default:
		return enums.AttributionTypeDrinkForCast
	}
}

func findOrderItem(ctx context.Context, repo orders.Repository, id uuid.UUID) (*models.OrderItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order item id required")
	}
	item, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		return nil, err
	}
	// Corrected rows are frozen; the replacement row carries the revenue.
	if item.CorrectedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order item has been corrected")
	}
	return item, nil
}
