package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kagetora-io/clubledger-backend/api/responses"
	"github.com/kagetora-io/clubledger-backend/api/validators"
	"github.com/kagetora-io/clubledger-backend/internal/quote"
	"github.com/kagetora-io/clubledger-backend/pkg/config"
	pkgerrors "github.com/kagetora-io/clubledger-backend/pkg/errors"
	"github.com/kagetora-io/clubledger-backend/pkg/logger"
	"github.com/kagetora-io/clubledger-backend/pkg/metrics"
)

type quoteRequest struct {
	PlanCode        string    `json:"plan_code" validate:"required"`
	Start           time.Time `json:"start" validate:"required"`
	End             time.Time `json:"end" validate:"required"`
	UseRoom         bool      `json:"use_room"`
	NominationCount int       `json:"nomination_count" validate:"min=0"`
	InhouseCount    int       `json:"inhouse_count" validate:"min=0"`
	HouseFee        bool      `json:"house_fee"`
	SingleCharge    bool      `json:"single_charge"`
	DrinkTotal      int64     `json:"drink_total" validate:"min=0"`
	ServiceRate     *float64  `json:"service_rate"`
	TaxRate         *float64  `json:"tax_rate"`
}

type visitQuoteRequest struct {
	UseRoom         bool     `json:"use_room"`
	NominationCount int      `json:"nomination_count" validate:"min=0"`
	InhouseCount    int      `json:"inhouse_count" validate:"min=0"`
	HouseFee        bool     `json:"house_fee"`
	SingleCharge    bool     `json:"single_charge"`
	ServiceRate     *float64 `json:"service_rate"`
	TaxRate         *float64 `json:"tax_rate"`
}

// ComputeQuote prices an itemized bill from raw parameters without touching
// any visit. Rates default from configuration when the body omits them.
func ComputeQuote(engine *quote.Engine, cfg *config.Config, billMetrics *metrics.BillingMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quote engine unavailable"))
			return
		}

		var body quoteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		computed, err := engine.Compute(quote.Input{
			PlanCode:        body.PlanCode,
			Start:           body.Start,
			End:             body.End,
			UseRoom:         body.UseRoom,
			NominationCount: body.NominationCount,
			InhouseCount:    body.InhouseCount,
			HouseFee:        body.HouseFee,
			SingleCharge:    body.SingleCharge,
			DrinkTotal:      body.DrinkTotal,
			ServiceRate:     rateOrDefault(body.ServiceRate, cfg.Billing.DefaultServiceRate),
			TaxRate:         rateOrDefault(body.TaxRate, cfg.Billing.DefaultTaxRate),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		billMetrics.IncQuote()
		responses.WriteSuccess(w, computed)
	}
}

// PreviewVisitQuote recomputes a visit's bill without writing anything.
func PreviewVisitQuote(svc quote.ApplyService, cfg *config.Config, billMetrics *metrics.BillingMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitID, input, err := decodeVisitQuote(r, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		computed, err := svc.Preview(r.Context(), visitID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		billMetrics.IncQuote()
		responses.WriteSuccess(w, computed)
	}
}

// ApplyVisitQuote persists a visit's charge lines as order items.
func ApplyVisitQuote(svc quote.ApplyService, cfg *config.Config, billMetrics *metrics.BillingMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitID, input, err := decodeVisitQuote(r, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		computed, items, err := svc.Apply(r.Context(), visitID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		billMetrics.IncQuote()
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"quote":       computed,
			"order_items": items,
		})
	}
}

func decodeVisitQuote(r *http.Request, cfg *config.Config) (uuid.UUID, quote.ApplyInput, error) {
	id, err := uuidParam(r, "visitID")
	if err != nil {
		return uuid.Nil, quote.ApplyInput{}, err
	}

	var body visitQuoteRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		return uuid.Nil, quote.ApplyInput{}, err
	}

	return id, quote.ApplyInput{
		UseRoom:         body.UseRoom,
		NominationCount: body.NominationCount,
		InhouseCount:    body.InhouseCount,
		HouseFee:        body.HouseFee,
		SingleCharge:    body.SingleCharge,
		ServiceRate:     rateOrDefault(body.ServiceRate, cfg.Billing.DefaultServiceRate),
		TaxRate:         rateOrDefault(body.TaxRate, cfg.Billing.DefaultTaxRate),
	}, nil
}

func rateOrDefault(rate *float64, fallback float64) float64 {
	if rate == nil {
		return fallback
	}
	return *rate
}
