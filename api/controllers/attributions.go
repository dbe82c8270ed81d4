package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kagetora-io/clubledger-backend/api/responses"
	"github.com/kagetora-io/clubledger-backend/api/validators"
	"github.com/kagetora-io/clubledger-backend/internal/attribution"
	pkgerrors "github.com/kagetora-io/clubledger-backend/pkg/errors"
	"github.com/kagetora-io/clubledger-backend/pkg/logger"
)

type attributionEntry struct {
	CastID     uuid.UUID `json:"cast_id" validate:"required"`
	Percentage string    `json:"percentage" validate:"required"`
}

type setAttributionsRequest struct {
	Entries []attributionEntry `json:"entries" validate:"required,min=1,dive"`
}

// SetAttributions replaces an order item's attribution set with the supplied
// manual split.
func SetAttributions(svc attribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuidParam(r, "orderItemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setAttributionsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries := make([]attribution.ManualEntry, len(body.Entries))
		for i, entry := range body.Entries {
			pct, err := decimal.NewFromString(entry.Percentage)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid percentage").
						WithDetails(map[string]any{"cast_id": entry.CastID, "percentage": entry.Percentage}))
				return
			}
			entries[i] = attribution.ManualEntry{CastID: entry.CastID, Percentage: pct}
		}

		rows, err := svc.SetManual(r.Context(), itemID, entries)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// AutoAttributions derives and commits the automatic split for an order item.
func AutoAttributions(svc attribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuidParam(r, "orderItemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.AutoCalculate(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func ListAttributions(svc attribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuidParam(r, "orderItemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.List(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
