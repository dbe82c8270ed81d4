package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kagetora-io/clubledger-backend/api/responses"
	"github.com/kagetora-io/clubledger-backend/api/validators"
	"github.com/kagetora-io/clubledger-backend/internal/visits"
	"github.com/kagetora-io/clubledger-backend/pkg/db/models"
	"github.com/kagetora-io/clubledger-backend/pkg/enums"
	pkgerrors "github.com/kagetora-io/clubledger-backend/pkg/errors"
	"github.com/kagetora-io/clubledger-backend/pkg/logger"
)

type checkInRequest struct {
	PrimaryGuestID *uuid.UUID `json:"primary_guest_id"`
	GuestName      *string    `json:"guest_name"`
	GuestPhone     *string    `json:"guest_phone"`
	PlanCode       string     `json:"plan_code" validate:"required"`
	TableID        uuid.UUID  `json:"table_id" validate:"required"`
	GuestCount     int        `json:"guest_count" validate:"min=0"`
	IsGroupVisit   bool       `json:"is_group_visit"`
}

type mergeRequest struct {
	SecondaryVisitID uuid.UUID `json:"secondary_visit_id" validate:"required"`
}

type openSegmentRequest struct {
	TableID uuid.UUID `json:"table_id" validate:"required"`
}

type engagementRequest struct {
	CastID           uuid.UUID  `json:"cast_id" validate:"required"`
	Role             string     `json:"role" validate:"required"`
	NominationTypeID *uuid.UUID `json:"nomination_type_id"`
	FeeAmount        int64      `json:"fee_amount" validate:"min=0"`
	BackPercentage   *string    `json:"back_percentage"`
}

func CheckIn(svc visits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body checkInRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if body.GuestName != nil {
			trimmed := validators.SanitizeString(*body.GuestName, 120)
			body.GuestName = &trimmed
		}

		visit, err := svc.CheckIn(r.Context(), visits.CheckInInput{
			PrimaryGuestID: body.PrimaryGuestID,
			GuestName:      body.GuestName,
			GuestPhone:     body.GuestPhone,
			PlanCode:       body.PlanCode,
			TableID:        body.TableID,
			GuestCount:     body.GuestCount,
			IsGroupVisit:   body.IsGroupVisit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, visit)
	}
}

func GetVisit(svc visits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitID, err := uuidParam(r, "visitID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visit, err := svc.Get(r.Context(), visitID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, visit)
	}
}

func CheckoutVisit(svc visits.Service, logg *logger.Logger) http.HandlerFunc {
	return visitTransition(svc.Checkout, logg)
}

func CancelVisit(svc visits.Service, logg *logger.Logger) http.HandlerFunc {
	return visitTransition(svc.Cancel, logg)
}

func MergeVisit(svc visits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		primaryID, err := uuidParam(r, "visitID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body mergeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		merged, err := svc.Merge(r.Context(), primaryID, body.SecondaryVisitID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, merged)
	}
}

func OpenSegment(svc visits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitID, err := uuidParam(r, "visitID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body openSegmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		segment, err := svc.OpenSegment(r.Context(), visitID, body.TableID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, segment)
	}
}

func ListSegments(svc visits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitID, err := uuidParam(r, "visitID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		segments, err := svc.ListSegments(r.Context(), visitID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, segments)
	}
}

func AddEngagement(svc visits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitID, err := uuidParam(r, "visitID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body engagementRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := enums.ParseEngagementRole(body.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid engagement role"))
			return
		}

		back := decimal.Zero
		if body.BackPercentage != nil {
			back, err = decimal.NewFromString(*body.BackPercentage)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid back percentage"))
				return
			}
		}

		engagement, err := svc.AddEngagement(r.Context(), visitID, visits.EngagementInput{
			CastID:           body.CastID,
			Role:             role,
			NominationTypeID: body.NominationTypeID,
			FeeAmount:        body.FeeAmount,
			BackPercentage:   back,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, engagement)
	}
}

func EndEngagement(svc visits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engagementID, err := uuidParam(r, "engagementID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		engagement, err := svc.EndEngagement(r.Context(), engagementID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engagement)
	}
}

func ListEngagements(svc visits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitID, err := uuidParam(r, "visitID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		activeOnly, err := validators.ParseQueryBool(r, "active", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		engagements, err := svc.ListEngagements(r.Context(), visitID, activeOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engagements)
	}
}

func visitTransition(fn func(context.Context, uuid.UUID) (*models.Visit, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitID, err := uuidParam(r, "visitID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visit, err := fn(r.Context(), visitID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, visit)
	}
}
