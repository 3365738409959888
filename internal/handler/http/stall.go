package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nushungry/review-service/internal/domain"
	"github.com/nushungry/review-service/internal/service"
	"github.com/nushungry/review-service/pkg/httputil"
)

// StallHandler handles HTTP requests for stall aggregate endpoints.
type StallHandler struct {
	ratings *service.RatingService
	prices  *service.PriceService
	logger  *slog.Logger
}

// NewStallHandler creates a new stall aggregate HTTP handler.
func NewStallHandler(ratings *service.RatingService, prices *service.PriceService, logger *slog.Logger) *StallHandler {
	return &StallHandler{
		ratings: ratings,
		prices:  prices,
		logger:  logger,
	}
}

// StallAggregates is the response body for recomputation endpoints.
type StallAggregates struct {
	StallID int64                  `json:"stall_id"`
	Rating  domain.RatingAggregate `json:"rating"`
	Price   domain.PriceAggregate  `json:"price"`
}

// GetRatingDistribution handles GET /api/v1/stalls/{stallId}/rating-distribution
func (h *StallHandler) GetRatingDistribution(w http.ResponseWriter, r *http.Request) {
	stallID, ok := httputil.ParseInt64(w, chi.URLParam(r, "stallId"))
	if !ok {
		return
	}

	dist, err := h.ratings.Distribution(r.Context(), stallID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: dist})
}

// RecalculateStall handles POST /api/v1/admin/stalls/{stallId}/recalculate.
// Both aggregates are rebuilt; a failure on one side does not block the other.
func (h *StallHandler) RecalculateStall(w http.ResponseWriter, r *http.Request) {
	stallID, ok := httputil.ParseInt64(w, chi.URLParam(r, "stallId"))
	if !ok {
		return
	}

	rating, ratingErr := h.ratings.Recalculate(r.Context(), stallID)
	price, priceErr := h.prices.Recalculate(r.Context(), stallID)

	if ratingErr != nil {
		httputil.WriteError(w, r, ratingErr, h.logger)
		return
	}
	if priceErr != nil {
		httputil.WriteError(w, r, priceErr, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: StallAggregates{
		StallID: stallID,
		Rating:  rating,
		Price:   price,
	}})
}

// RecalculateAll handles POST /api/v1/admin/recalculate. This is the repair
// sweep for aggregates that drifted through lost updates or missed triggers.
func (h *StallHandler) RecalculateAll(w http.ResponseWriter, r *http.Request) {
	ratingErr := h.ratings.RecalculateAll(r.Context())
	priceErr := h.prices.RecalculateAll(r.Context())

	if ratingErr != nil {
		httputil.WriteError(w, r, ratingErr, h.logger)
		return
	}
	if priceErr != nil {
		httputil.WriteError(w, r, priceErr, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "recalculated"}})
}
