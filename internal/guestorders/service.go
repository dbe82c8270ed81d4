package guestorders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kagetora-io/clubledger-backend/internal/orders"
	"github.com/kagetora-io/clubledger-backend/pkg/db/models"
	"github.com/kagetora-io/clubledger-backend/pkg/enums"
	pkgerrors "github.com/kagetora-io/clubledger-backend/pkg/errors"
	"github.com/kagetora-io/clubledger-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type visitLoader interface {
	FindVisitByID(ctx context.Context, id uuid.UUID) (*models.Visit, error)
}

// RegisterGuestInput adds a companion or additional guest to a visit. The main
// guest row is created at check-in and cannot be registered through this path.
type RegisterGuestInput struct {
	CustomerID         *uuid.UUID
	GuestName          *string
	GuestPhone         *string
	GuestType          enums.GuestType
	SeatPosition       *string
	RelationshipToMain *string
	IsPrimaryPayer     bool
}

// ShareInput is one guest's slice of a shared order item.
type ShareInput struct {
	GuestID    uuid.UUID
	Percentage decimal.Decimal
}

// Service splits order items across the guests of a visit and keeps each
// guest's running bill in step with every assignment.
type Service interface {
	RegisterGuest(ctx context.Context, visitID uuid.UUID, input RegisterGuestInput) (*models.VisitGuest, error)
	ListGuests(ctx context.Context, visitID uuid.UUID) ([]models.VisitGuest, error)
	SetPrimaryPayer(ctx context.Context, visitID, guestID uuid.UUID) error
	AssignToGuest(ctx context.Context, orderItemID, guestID uuid.UUID) (*models.GuestOrderShare, error)
	SplitOrder(ctx context.Context, orderItemID uuid.UUID, shares []ShareInput) ([]models.GuestOrderShare, error)
	ListShares(ctx context.Context, orderItemID uuid.UUID) ([]models.GuestOrderShare, error)
	VoidAllocations(ctx context.Context, tx *gorm.DB, orderItemID uuid.UUID) error
}

type service struct {
	tx          txRunner
	repo        Repository
	orders      orders.Repository
	visits      visitLoader
	serviceRate decimal.Decimal
	taxRate     decimal.Decimal
	epsilon     decimal.Decimal
}

// NewService wires the guest order splitter. Rates are fractions in [0,1];
// epsilon bounds the accepted drift on a share percentage sum.
func NewService(tx txRunner, repo Repository, orderRepo orders.Repository, visits visitLoader, serviceRate, taxRate, epsilon float64) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("guest order repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if visits == nil {
		return nil, fmt.Errorf("visit loader required")
	}
	if serviceRate < 0 || serviceRate > 1 || taxRate < 0 || taxRate > 1 {
		return nil, fmt.Errorf("rates must be within [0,1]")
	}
	return &service{
		tx:          tx,
		repo:        repo,
		orders:      orderRepo,
		visits:      visits,
		serviceRate: decimal.NewFromFloat(serviceRate),
		taxRate:     decimal.NewFromFloat(taxRate),
		epsilon:     decimal.NewFromFloat(epsilon),
	}, nil
}

func (s *service) RegisterGuest(ctx context.Context, visitID uuid.UUID, input RegisterGuestInput) (*models.VisitGuest, error) {
	if !input.GuestType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid guest type %q", input.GuestType))
	}
	if input.GuestType == enums.GuestTypeMain {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "main guest is created at check-in")
	}
	if input.CustomerID == nil && input.GuestName == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest needs a customer id or a name")
	}

	visit, err := s.loadVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if visit.Status != enums.VisitStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot add guests to a %s visit", visit.Status))
	}

	guest := &models.VisitGuest{
		VisitID:            visitID,
		CustomerID:         input.CustomerID,
		GuestName:          input.GuestName,
		GuestPhone:         input.GuestPhone,
		GuestType:          input.GuestType,
		SeatPosition:       input.SeatPosition,
		RelationshipToMain: input.RelationshipToMain,
		IsPrimaryPayer:     input.IsPrimaryPayer,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if input.IsPrimaryPayer {
			if err := repo.ClearPrimaryPayer(ctx, visitID); err != nil {
				return err
			}
		}
		if err := repo.CreateGuest(ctx, guest); err != nil {
			return err
		}
		return repo.IncrementGuestCount(ctx, visitID)
	})
	if err != nil {
		return nil, err
	}
	return guest, nil
}

func (s *service) ListGuests(ctx context.Context, visitID uuid.UUID) ([]models.VisitGuest, error) {
	if _, err := s.loadVisit(ctx, visitID); err != nil {
		return nil, err
	}
	return s.repo.ListGuestsByVisit(ctx, visitID)
}

// SetPrimaryPayer moves the payer flag in one transaction so the at-most-one
// invariant holds at every point a reader can observe.
func (s *service) SetPrimaryPayer(ctx context.Context, visitID, guestID uuid.UUID) error {
	guest, err := s.loadGuest(ctx, guestID)
	if err != nil {
		return err
	}
	if guest.VisitID != visitID {
		return pkgerrors.New(pkgerrors.CodeValidation, "guest does not belong to this visit")
	}
	if guest.IsPrimaryPayer {
		return nil
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearPrimaryPayer(ctx, visitID); err != nil {
			return err
		}
		return repo.SetPrimaryPayer(ctx, guestID)
	})
}

func (s *service) AssignToGuest(ctx context.Context, orderItemID, guestID uuid.UUID) (*models.GuestOrderShare, error) {
	item, err := s.loadOrderItem(ctx, orderItemID)
	if err != nil {
		return nil, err
	}
	guest, err := s.loadGuest(ctx, guestID)
	if err != nil {
		return nil, err
	}
	if guest.VisitID != item.VisitID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest does not belong to the order's visit")
	}

	share := &models.GuestOrderShare{
		OrderItemID:      item.ID,
		VisitGuestID:     guest.ID,
		QuantityForGuest: decimal.NewFromInt(int64(item.Quantity)),
		AmountForGuest:   item.Total,
		IsSharedItem:     false,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := s.reverseShares(ctx, repo, item.ID); err != nil {
			return err
		}
		if err := repo.CreateShares(ctx, []models.GuestOrderShare{*share}); err != nil {
			return err
		}
		return s.applyGuestDelta(ctx, repo, guest.ID, item.Total)
	})
	if err != nil {
		return nil, err
	}
	return share, nil
}

func (s *service) SplitOrder(ctx context.Context, orderItemID uuid.UUID, shares []ShareInput) ([]models.GuestOrderShare, error) {
	if err := s.validateShares(shares); err != nil {
		return nil, err
	}
	item, err := s.loadOrderItem(ctx, orderItemID)
	if err != nil {
		return nil, err
	}

	percents := make([]decimal.Decimal, len(shares))
	for i, in := range shares {
		guest, err := s.loadGuest(ctx, in.GuestID)
		if err != nil {
			return nil, err
		}
		if guest.VisitID != item.VisitID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest does not belong to the order's visit")
		}
		percents[i] = in.Percentage
	}

	amounts := money.AllocateByPercent(item.Total, percents)
	quantity := decimal.NewFromInt(int64(item.Quantity))

	rows := make([]models.GuestOrderShare, len(shares))
	for i, in := range shares {
		pct := in.Percentage
		rows[i] = models.GuestOrderShare{
			OrderItemID:      item.ID,
			VisitGuestID:     in.GuestID,
			QuantityForGuest: quantity.Mul(pct).Div(decimal.NewFromInt(100)).Round(2),
			AmountForGuest:   amounts[i],
			IsSharedItem:     len(shares) > 1,
			SharedPercentage: &pct,
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := s.reverseShares(ctx, repo, item.ID); err != nil {
			return err
		}
		if err := repo.CreateShares(ctx, rows); err != nil {
			return err
		}
		for _, row := range rows {
			if err := s.applyGuestDelta(ctx, repo, row.VisitGuestID, row.AmountForGuest); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *service) ListShares(ctx context.Context, orderItemID uuid.UUID) ([]models.GuestOrderShare, error) {
	if _, err := s.loadOrderItem(ctx, orderItemID); err != nil {
		return nil, err
	}
	return s.repo.ListSharesByOrderItem(ctx, orderItemID)
}

func (s *service) validateShares(shares []ShareInput) error {
	if len(shares) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one share required")
	}
	seen := make(map[uuid.UUID]struct{}, len(shares))
	percents := make([]decimal.Decimal, 0, len(shares))
	for _, in := range shares {
		if in.GuestID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "guest id required on every share")
		}
		if _, dup := seen[in.GuestID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate guest in shares")
		}
		seen[in.GuestID] = struct{}{}
		if in.Percentage.LessThanOrEqual(decimal.Zero) || in.Percentage.GreaterThan(decimal.NewFromInt(100)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "share percentage must be within (0,100]")
		}
		percents = append(percents, in.Percentage)
	}
	if !money.SumsTo100(percents, s.epsilon) {
		sum := decimal.Zero
		for _, pct := range percents {
			sum = sum.Add(pct)
		}
		return pkgerrors.New(pkgerrors.CodeImbalance, "share percentages must sum to 100").
			WithDetails(map[string]any{"sum": sum.String()})
	}
	return nil
}

// VoidAllocations reverses the item's shares inside the caller's transaction,
// backing each amount out of the owning guest's running totals. The order
// correction path uses it when a row is superseded.
func (s *service) VoidAllocations(ctx context.Context, tx *gorm.DB, orderItemID uuid.UUID) error {
	return s.reverseShares(ctx, s.repo.WithTx(tx), orderItemID)
}

// reverseShares backs the prior allocation of an order item out of each
// affected guest's running totals before the replacement set is written.
func (s *service) reverseShares(ctx context.Context, repo Repository, orderItemID uuid.UUID) error {
	prior, err := repo.ListSharesByOrderItem(ctx, orderItemID)
	if err != nil {
		return err
	}
	for _, share := range prior {
		if err := s.applyGuestDelta(ctx, repo, share.VisitGuestID, -share.AmountForGuest); err != nil {
			return err
		}
	}
	return repo.DeleteSharesByOrderItem(ctx, orderItemID)
}

// applyGuestDelta shifts a guest's subtotal and rederives service, tax, and
// total from the new subtotal. Service and tax are each rounded once from the
// full subtotal rather than accumulated per line, so repeated assignments do
// not drift.
func (s *service) applyGuestDelta(ctx context.Context, repo Repository, guestID uuid.UUID, delta int64) error {
	guest, err := repo.FindGuestByID(ctx, guestID)
	if err != nil {
		return err
	}
	guest.Subtotal += delta
	guest.ServiceAmount = money.ApplyRate(guest.Subtotal, s.serviceRate)
	guest.TaxAmount = money.ApplyRate(guest.Subtotal+guest.ServiceAmount, s.taxRate)
	guest.Total = guest.Subtotal + guest.ServiceAmount + guest.TaxAmount
	return repo.UpdateGuestTotals(ctx, guest)
}

func (s *service) loadVisit(ctx context.Context, visitID uuid.UUID) (*models.Visit, error) {
	visit, err := s.visits.FindVisitByID(ctx, visitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "visit not found")
		}
		return nil, err
	}
	return visit, nil
}

func (s *service) loadGuest(ctx context.Context, guestID uuid.UUID) (*models.VisitGuest, error) {
	guest, err := s.repo.FindGuestByID(ctx, guestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "visit guest not found")
		}
		return nil, err
	}
	return guest, nil
}

func (s *service) loadOrderItem(ctx context.Context, orderItemID uuid.UUID) (*models.OrderItem, error) {
	item, err := s.orders.FindByID(ctx, orderItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		return nil, err
	}
	if item.CorrectedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order item has been corrected")
	}
	return item, nil
}
