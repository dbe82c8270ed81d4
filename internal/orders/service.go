package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kagetora-io/clubledger-backend/pkg/db/models"
	pkgerrors "github.com/kagetora-io/clubledger-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// allocationVoider backs out rows that allocate an order item's amount to
// casts or guests. Voiders run inside the correction transaction so a
// superseded item never keeps live allocations.
type allocationVoider interface {
	VoidAllocations(ctx context.Context, tx *gorm.DB, orderItemID uuid.UUID) error
}

// CorrectionInput carries the replacement values for a billed order item.
type CorrectionInput struct {
	Quantity  int
	UnitPrice int64
}

// Service exposes order item reads and the explicit correction path. Billed
// items are otherwise immutable.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.OrderItem, error)
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]models.OrderItem, error)
	Correct(ctx context.Context, id uuid.UUID, input CorrectionInput) (*models.OrderItem, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	voiders []allocationVoider
	now     func() time.Time
}

// NewService wires the orders service. Voiders are invoked when an item is
// corrected, typically the attribution and guest order services.
func NewService(tx txRunner, repo Repository, voiders ...allocationVoider) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	for _, voider := range voiders {
		if voider == nil {
			return nil, fmt.Errorf("nil allocation voider")
		}
	}
	return &service{tx: tx, repo: repo, voiders: voiders, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.OrderItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		return nil, err
	}
	return item, nil
}

func (s *service) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]models.OrderItem, error) {
	return s.repo.ListByVisit(ctx, visitID)
}

// Correct supersedes a billed item with a replacement row. The original keeps
// its amounts and gains a corrected_at stamp; the replacement points back via
// corrects_item_id. The original's cast attributions and guest shares are
// voided in the same transaction (guest running totals are backed out), so
// callers re-attribute and re-split against the replacement.
func (s *service) Correct(ctx context.Context, id uuid.UUID, input CorrectionInput) (*models.OrderItem, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.UnitPrice < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	}

	var replacement *models.OrderItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		original, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return err
		}
		if original.CorrectedAt != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order item already corrected")
		}

		now := s.now()
		replacement = &models.OrderItem{
			VisitID:        original.VisitID,
			ProductID:      original.ProductID,
			Name:           original.Name,
			LineType:       original.LineType,
			TargetCastID:   original.TargetCastID,
			Quantity:       input.Quantity,
			UnitPrice:      input.UnitPrice,
			Total:          input.UnitPrice * int64(input.Quantity),
			PlacedAt:       original.PlacedAt,
			CorrectsItemID: &original.ID,
		}
		if err := repo.Create(ctx, replacement); err != nil {
			return err
		}
		if err := repo.MarkCorrected(ctx, original.ID, now); err != nil {
			return err
		}
		for _, voider := range s.voiders {
			if err := voider.VoidAllocations(ctx, tx, original.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replacement, nil
}
