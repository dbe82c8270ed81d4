package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kagetora-io/clubledger-backend/api/responses"
	"github.com/kagetora-io/clubledger-backend/api/validators"
	"github.com/kagetora-io/clubledger-backend/internal/guestorders"
	"github.com/kagetora-io/clubledger-backend/pkg/enums"
	pkgerrors "github.com/kagetora-io/clubledger-backend/pkg/errors"
	"github.com/kagetora-io/clubledger-backend/pkg/logger"
)

type registerGuestRequest struct {
	CustomerID         *uuid.UUID `json:"customer_id"`
	GuestName          *string    `json:"guest_name"`
	GuestPhone         *string    `json:"guest_phone"`
	GuestType          string     `json:"guest_type" validate:"required"`
	SeatPosition       *string    `json:"seat_position"`
	RelationshipToMain *string    `json:"relationship_to_main"`
	IsPrimaryPayer     bool       `json:"is_primary_payer"`
}

type primaryPayerRequest struct {
	GuestID uuid.UUID `json:"guest_id" validate:"required"`
}

type assignOrderRequest struct {
	GuestID uuid.UUID `json:"guest_id" validate:"required"`
}

type orderShareEntry struct {
	GuestID    uuid.UUID `json:"guest_id" validate:"required"`
	Percentage string    `json:"percentage" validate:"required"`
}

type splitOrderRequest struct {
	Shares []orderShareEntry `json:"shares" validate:"required,min=1,dive"`
}

func RegisterGuest(svc guestorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitID, err := uuidParam(r, "visitID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body registerGuestRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		guestType, err := enums.ParseGuestType(body.GuestType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid guest type"))
			return
		}

		if body.GuestName != nil {
			trimmed := validators.SanitizeString(*body.GuestName, 120)
			body.GuestName = &trimmed
		}

		guest, err := svc.RegisterGuest(r.Context(), visitID, guestorders.RegisterGuestInput{
			CustomerID:         body.CustomerID,
			GuestName:          body.GuestName,
			GuestPhone:         body.GuestPhone,
			GuestType:          guestType,
			SeatPosition:       body.SeatPosition,
			RelationshipToMain: body.RelationshipToMain,
			IsPrimaryPayer:     body.IsPrimaryPayer,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, guest)
	}
}

func ListGuests(svc guestorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitID, err := uuidParam(r, "visitID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		guests, err := svc.ListGuests(r.Context(), visitID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, guests)
	}
}

func SetPrimaryPayer(svc guestorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitID, err := uuidParam(r, "visitID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body primaryPayerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetPrimaryPayer(r.Context(), visitID, body.GuestID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// AssignOrderToGuest puts the entire order item on one guest's bill.
func AssignOrderToGuest(svc guestorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuidParam(r, "orderItemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body assignOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		share, err := svc.AssignToGuest(r.Context(), itemID, body.GuestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, share)
	}
}

// SplitOrderAcrossGuests replaces the item's share set with a percentage split.
func SplitOrderAcrossGuests(svc guestorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuidParam(r, "orderItemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body splitOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shares := make([]guestorders.ShareInput, len(body.Shares))
		for i, entry := range body.Shares {
			pct, err := decimal.NewFromString(entry.Percentage)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid percentage").
						WithDetails(map[string]any{"guest_id": entry.GuestID, "percentage": entry.Percentage}))
				return
			}
			shares[i] = guestorders.ShareInput{GuestID: entry.GuestID, Percentage: pct}
		}

		rows, err := svc.SplitOrder(r.Context(), itemID, shares)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func ListOrderShares(svc guestorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuidParam(r, "orderItemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shares, err := svc.ListShares(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shares)
	}
}
