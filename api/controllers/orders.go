package controllers

import (
	"net/http"

	"github.com/kagetora-io/clubledger-backend/api/responses"
	"github.com/kagetora-io/clubledger-backend/api/validators"
	"github.com/kagetora-io/clubledger-backend/internal/orders"
	"github.com/kagetora-io/clubledger-backend/pkg/logger"
)

type correctionRequest struct {
	Quantity  int   `json:"quantity" validate:"required,min=1"`
	UnitPrice int64 `json:"unit_price" validate:"min=0"`
}

func GetOrderItem(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuidParam(r, "orderItemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Get(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func ListVisitOrderItems(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitID, err := uuidParam(r, "visitID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListByVisit(r.Context(), visitID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
		responses.WriteSuccess(w, items)
	}
}

// CorrectOrderItem supersedes a billed item with a replacement row.
func CorrectOrderItem(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuidParam(r, "orderItemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body correctionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		replacement, err := svc.Correct(r.Context(), itemID, orders.CorrectionInput{
			Quantity:  body.Quantity,
			UnitPrice: body.UnitPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, replacement)
	}
}
