package visits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kagetora-io/clubledger-backend/internal/pricing"
	"github.com/kagetora-io/clubledger-backend/pkg/db"
	"github.com/kagetora-io/clubledger-backend/pkg/db/models"
	"github.com/kagetora-io/clubledger-backend/pkg/enums"
	pkgerrors "github.com/kagetora-io/clubledger-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CheckInInput opens a new visit.
type CheckInInput struct {
	PrimaryGuestID *uuid.UUID
	GuestName      *string
	GuestPhone     *string
	PlanCode       string
	TableID        uuid.UUID
	GuestCount     int
	IsGroupVisit   bool
}

// EngagementInput assigns a cast member to a visit.
type EngagementInput struct {
	CastID           uuid.UUID
	Role             enums.EngagementRole
	NominationTypeID *uuid.UUID
	FeeAmount        int64
	BackPercentage   decimal.Decimal
}

// Service is the session manager: it owns the visit lifecycle, table-segment
// history, and cast-engagement lifecycle.
type Service interface {
	CheckIn(ctx context.Context, input CheckInInput) (*models.Visit, error)
	Get(ctx context.Context, visitID uuid.UUID) (*models.Visit, error)
	Checkout(ctx context.Context, visitID uuid.UUID) (*models.Visit, error)
	Cancel(ctx context.Context, visitID uuid.UUID) (*models.Visit, error)
	Merge(ctx context.Context, primaryID, secondaryID uuid.UUID) (*models.Visit, error)

	OpenSegment(ctx context.Context, visitID, tableID uuid.UUID) (*models.TableSegment, error)
	ListSegments(ctx context.Context, visitID uuid.UUID) ([]models.TableSegment, error)

	AddEngagement(ctx context.Context, visitID uuid.UUID, input EngagementInput) (*models.CastEngagement, error)
	EndEngagement(ctx context.Context, engagementID uuid.UUID) (*models.CastEngagement, error)
	ListEngagements(ctx context.Context, visitID uuid.UUID, activeOnly bool) ([]models.CastEngagement, error)
}

type service struct {
	tx    txRunner
	repo  Repository
	plans *pricing.Table
	now   func() time.Time
}

// NewService wires the session manager. clock may be nil; it defaults to
// time.Now.
func NewService(tx txRunner, repo Repository, plans *pricing.Table, clock func() time.Time) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("visits repository required")
	}
	if plans == nil {
		return nil, fmt.Errorf("pricing table required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &service{tx: tx, repo: repo, plans: plans, now: clock}, nil
}

func (s *service) CheckIn(ctx context.Context, input CheckInInput) (*models.Visit, error) {
	if input.TableID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table id required")
	}
	if _, err := s.plans.Lookup(input.PlanCode); err != nil {
		return nil, err
	}

	guestCount := input.GuestCount
	if guestCount < 1 {
		guestCount = 1
	}

	now := s.now()
	visit := &models.Visit{
		PrimaryGuestID:  input.PrimaryGuestID,
		SeatingPlanCode: input.PlanCode,
		CheckInAt:       now,
		GuestCount:      guestCount,
		IsGroupVisit:    input.IsGroupVisit,
		Status:          enums.VisitStatusActive,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.CreateVisit(ctx, visit); err != nil {
			return err
		}
		if err := repo.CreateSegment(ctx, &models.TableSegment{
			VisitID:   visit.ID,
			TableID:   input.TableID,
			StartedAt: now,
		}); err != nil {
			return err
		}
		// The main guest row doubles as the default primary payer.
		return repo.CreateGuest(ctx, &models.VisitGuest{
			VisitID:        visit.ID,
			CustomerID:     input.PrimaryGuestID,
			GuestName:      input.GuestName,
			GuestPhone:     input.GuestPhone,
			GuestType:      enums.GuestTypeMain,
			IsPrimaryPayer: true,
		})
	})
	if err != nil {
		return nil, err
	}
	return visit, nil
}

func (s *service) Get(ctx context.Context, visitID uuid.UUID) (*models.Visit, error) {
	visit, err := s.repo.FindVisitByID(ctx, visitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "visit not found")
		}
		return nil, err
	}
	return visit, nil
}

// OpenSegment seats the visit at a table. Closing the previous segment and
// opening the next one happen in the same transaction, so a partial failure
// leaves zero open segments, never two. Callers that observe an active visit
// with no open segment repair it by calling OpenSegment again.
func (s *service) OpenSegment(ctx context.Context, visitID, tableID uuid.UUID) (*models.TableSegment, error) {
	if tableID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table id required")
	}

	now := s.now()
	segment := &models.TableSegment{
		VisitID:   visitID,
		TableID:   tableID,
		StartedAt: now,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		visit, err := s.requireActiveVisit(ctx, repo, visitID)
		if err != nil {
			return err
		}
		if err := repo.CloseOpenSegments(ctx, visit.ID, now); err != nil {
			return err
		}
		return repo.CreateSegment(ctx, segment)
	})
	if err != nil {
		return nil, err
	}
	return segment, nil
}

func (s *service) ListSegments(ctx context.Context, visitID uuid.UUID) ([]models.TableSegment, error) {
	return s.repo.ListSegments(ctx, visitID)
}

func (s *service) Checkout(ctx context.Context, visitID uuid.UUID) (*models.Visit, error) {
	return s.closeVisit(ctx, visitID, enums.VisitStatusCompleted)
}

func (s *service) Cancel(ctx context.Context, visitID uuid.UUID) (*models.Visit, error) {
	return s.closeVisit(ctx, visitID, enums.VisitStatusCancelled)
}

func (s *service) closeVisit(ctx context.Context, visitID uuid.UUID, status enums.VisitStatus) (*models.Visit, error) {
	var visit *models.Visit
	now := s.now()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := s.requireActiveVisit(ctx, repo, visitID)
		if err != nil {
			return err
		}
		if err := repo.CloseOpenSegments(ctx, current.ID, now); err != nil {
			return err
		}

		active, err := repo.ListEngagements(ctx, current.ID, true)
		if err != nil {
			return err
		}
		for _, engagement := range active {
			if err := repo.EndEngagement(ctx, engagement.ID, now); err != nil {
				return err
			}
		}

		current.Status = status
		if status == enums.VisitStatusCompleted {
			current.CheckOutAt = &now
		}
		if err := repo.UpdateVisit(ctx, current); err != nil {
			return err
		}
		visit = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return visit, nil
}

// Merge folds secondary into primary: active engagements move over (or end,
// when the primary already has that cast active), segments close, and the
// secondary keeps a back-reference. There is no unmerge.
func (s *service) Merge(ctx context.Context, primaryID, secondaryID uuid.UUID) (*models.Visit, error) {
	if primaryID == secondaryID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot merge a visit into itself")
	}

	var secondary *models.Visit
	now := s.now()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		primary, err := s.requireActiveVisit(ctx, repo, primaryID)
		if err != nil {
			return err
		}
		current, err := s.requireActiveVisit(ctx, repo, secondaryID)
		if err != nil {
			return err
		}

		active, err := repo.ListEngagements(ctx, current.ID, true)
		if err != nil {
			return err
		}
		for _, engagement := range active {
			_, err := repo.FindActiveEngagement(ctx, primary.ID, engagement.CastID)
			switch {
			case err == nil:
				// Cast already active on the primary; ending the duplicate
				// preserves the one-active-per-pair invariant.
				if err := repo.EndEngagement(ctx, engagement.ID, now); err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := repo.ReassignEngagement(ctx, engagement.ID, primary.ID); err != nil {
					return err
				}
			default:
				return err
			}
		}

		if err := repo.CloseOpenSegments(ctx, current.ID, now); err != nil {
			return err
		}

		current.Status = enums.VisitStatusMerged
		current.MergedIntoVisitID = &primary.ID
		if err := repo.UpdateVisit(ctx, current); err != nil {
			return err
		}

		primary.GuestCount += current.GuestCount
		primary.IsGroupVisit = true
		if err := repo.UpdateVisit(ctx, primary); err != nil {
			return err
		}

		secondary = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return secondary, nil
}

func (s *service) AddEngagement(ctx context.Context, visitID uuid.UUID, input EngagementInput) (*models.CastEngagement, error) {
	if input.CastID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cast id required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid engagement role %q", input.Role))
	}
	if input.FeeAmount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fee amount must not be negative")
	}
	if input.BackPercentage.IsNegative() || input.BackPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "back percentage must be within [0,100]")
	}

	now := s.now()
	engagement := &models.CastEngagement{
		VisitID:          visitID,
		CastID:           input.CastID,
		Role:             input.Role,
		NominationTypeID: input.NominationTypeID,
		StartedAt:        now,
		IsActive:         true,
		FeeAmount:        input.FeeAmount,
		BackPercentage:   input.BackPercentage,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := s.requireActiveVisit(ctx, repo, visitID); err != nil {
			return err
		}

		// Fast-path duplicate check; the partial unique index remains the
		// authoritative guard under concurrent requests.
		_, err := repo.FindActiveEngagement(ctx, visitID, input.CastID)
		if err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "cast is already assigned to this visit")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := repo.CreateEngagement(ctx, engagement); err != nil {
			if db.IsUniqueViolation(err, "cast_engagements_one_active_per_pair") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cast is already assigned to this visit")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return engagement, nil
}

// EndEngagement closes an engagement. Ended engagements are terminal; the row
// is left untouched and the caller gets a state conflict instead.
func (s *service) EndEngagement(ctx context.Context, engagementID uuid.UUID) (*models.CastEngagement, error) {
	var ended *models.CastEngagement
	now := s.now()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		engagement, err := repo.FindEngagementByID(ctx, engagementID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "engagement not found")
			}
			return err
		}
		if !engagement.IsActive || engagement.EndedAt != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "engagement already ended")
		}
		if err := repo.EndEngagement(ctx, engagement.ID, now); err != nil {
			return err
		}
		engagement.EndedAt = &now
		engagement.IsActive = false
		ended = engagement
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ended, nil
}

func (s *service) ListEngagements(ctx context.Context, visitID uuid.UUID, activeOnly bool) ([]models.CastEngagement, error) {
	return s.repo.ListEngagements(ctx, visitID, activeOnly)
}

func (s *service) requireActiveVisit(ctx context.Context, repo Repository, visitID uuid.UUID) (*models.Visit, error) {
	visit, err := repo.FindVisitByID(ctx, visitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "visit not found")
		}
		return nil, err
	}
	if visit.Status != enums.VisitStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("visit is %s", visit.Status))
	}
	return visit, nil
}
