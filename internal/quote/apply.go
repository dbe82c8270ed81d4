package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kagetora-io/clubledger-backend/internal/orders"
	"github.com/kagetora-io/clubledger-backend/pkg/db/models"
	"github.com/kagetora-io/clubledger-backend/pkg/enums"
	pkgerrors "github.com/kagetora-io/clubledger-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type visitLoader interface {
	FindVisitByID(ctx context.Context, id uuid.UUID) (*models.Visit, error)
}

// ApplyInput carries the per-visit billing switches; plan, stay window, and
// drink total come from the visit itself.
type ApplyInput struct {
	UseRoom         bool
	NominationCount int
	InhouseCount    int
	HouseFee        bool
	SingleCharge    bool
	ServiceRate     float64
	TaxRate         float64
}

// ApplyService recomputes a visit's quote and, on Apply, persists the quote
// lines as order items in one transaction. Preview never writes.
type ApplyService interface {
	Preview(ctx context.Context, visitID uuid.UUID, input ApplyInput) (*Quote, error)
	Apply(ctx context.Context, visitID uuid.UUID, input ApplyInput) (*Quote, []models.OrderItem, error)
}

type applyService struct {
	tx     txRunner
	engine *Engine
	visits visitLoader
	orders orders.Repository
	now    func() time.Time
}

// NewApplyService wires the quote apply service. clock may be nil; it
// defaults to time.Now.
func NewApplyService(tx txRunner, engine *Engine, visits visitLoader, ordersRepo orders.Repository, clock func() time.Time) (ApplyService, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if engine == nil {
		return nil, fmt.Errorf("quote engine required")
	}
	if visits == nil {
		return nil, fmt.Errorf("visit loader required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &applyService{tx: tx, engine: engine, visits: visits, orders: ordersRepo, now: clock}, nil
}

func (s *applyService) Preview(ctx context.Context, visitID uuid.UUID, input ApplyInput) (*Quote, error) {
	quote, _, err := s.computeForVisit(ctx, s.visits, s.orders, visitID, input)
	return quote, err
}

// Apply persists the quote's charge lines as order items. Drink lines are not
// persisted: they aggregate order items that already exist on the visit, and
// writing them back would double count.
func (s *applyService) Apply(ctx context.Context, visitID uuid.UUID, input ApplyInput) (*Quote, []models.OrderItem, error) {
	var (
		quote *Quote
		items []models.OrderItem
	)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)

		q, visit, err := s.computeForVisit(ctx, s.visits, ordersRepo, visitID, input)
		if err != nil {
			return err
		}
		quote = q

		now := s.now()
		for _, line := range q.Lines {
			if line.Type == enums.QuoteLineTypeDrink {
				continue
			}
			items = append(items, models.OrderItem{
				VisitID:   visit.ID,
				Name:      line.Name,
				LineType:  line.Type,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				Total:     line.Amount,
				PlacedAt:  now,
			})
		}
		return ordersRepo.CreateBatch(ctx, items)
	})
	if err != nil {
		return nil, nil, err
	}
	return quote, items, nil
}

func (s *applyService) computeForVisit(ctx context.Context, visits visitLoader, ordersRepo orders.Repository, visitID uuid.UUID, input ApplyInput) (*Quote, *models.Visit, error) {
	visit, err := visits.FindVisitByID(ctx, visitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "visit not found")
		}
		return nil, nil, err
	}
	if visit.Status == enums.VisitStatusCancelled || visit.Status == enums.VisitStatusMerged {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot bill a %s visit", visit.Status))
	}

	end := s.now()
	if visit.CheckOutAt != nil {
		end = *visit.CheckOutAt
	}

	drinkTotal, err := s.drinkTotal(ctx, ordersRepo, visit.ID)
	if err != nil {
		return nil, nil, err
	}

	quote, err := s.engine.Compute(Input{
		PlanCode:        visit.SeatingPlanCode,
		Start:           visit.CheckInAt,
		End:             end,
		UseRoom:         input.UseRoom,
		NominationCount: input.NominationCount,
		InhouseCount:    input.InhouseCount,
		HouseFee:        input.HouseFee,
		SingleCharge:    input.SingleCharge,
		DrinkTotal:      drinkTotal,
		ServiceRate:     input.ServiceRate,
		TaxRate:         input.TaxRate,
	})
	if err != nil {
		return nil, nil, err
	}
	return quote, visit, nil
}

func (s *applyService) drinkTotal(ctx context.Context, ordersRepo orders.Repository, visitID uuid.UUID) (int64, error) {
	items, err := ordersRepo.ListByVisit(ctx, visitID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, item := range items {
		if item.LineType != enums.QuoteLineTypeDrink || item.CorrectedAt != nil {
			continue
		}
		total += item.Total
	}
	return total, nil
}
