package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nushungry/review-service/internal/repository"
	"github.com/nushungry/review-service/internal/service"
	"github.com/nushungry/review-service/pkg/httputil"
	"github.com/nushungry/review-service/pkg/logger"
	"github.com/nushungry/review-service/pkg/pagination"
	"github.com/nushungry/review-service/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON request body for creating a review.
type CreateReviewRequest struct {
	StallID        int64    `json:"stall_id" validate:"required,gt=0"`
	Rating         int      `json:"rating" validate:"required,min=1,max=5"`
	TotalCost      *float64 `json:"total_cost" validate:"omitempty,gt=0"`
	NumberOfPeople *int     `json:"number_of_people" validate:"omitempty,gt=0"`
	Comment        string   `json:"comment" validate:"max=2000"`
	ImageURLs      []string `json:"image_urls" validate:"omitempty,dive,url"`
}

// UpdateReviewRequest is the JSON request body for editing a review.
// Omitted fields keep their current value.
type UpdateReviewRequest struct {
	Rating         *int     `json:"rating" validate:"omitempty,min=1,max=5"`
	TotalCost      *float64 `json:"total_cost" validate:"omitempty,gt=0"`
	NumberOfPeople *int     `json:"number_of_people" validate:"omitempty,gt=0"`
	Comment        *string  `json:"comment" validate:"omitempty,max=2000"`
	ImageURLs      []string `json:"image_urls" validate:"omitempty,dive,url"`
	ClearPriceData bool     `json:"clear_price_data"`
}

// callerID extracts the authenticated user forwarded by the gateway. Requests
// without one are rejected before touching the service layer.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := logger.UserIDFromContext(r.Context())
	if userID == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "missing X-User-ID header"},
		})
		return "", false
	}
	return userID, true
}

// sortFromRequest maps the sort query parameter onto a listing order. Unknown
// values fall back to newest first, like the pagination defaults do.
func sortFromRequest(r *http.Request) repository.ReviewSort {
	if r.URL.Query().Get("sort") == "likes" {
		return repository.SortLikes
	}
	return repository.SortRecent
}

// --- Handlers ---

// CreateReview handles POST /api/v1/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	// Limit request body to 1 MB to prevent abuse.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.CreateReview(r.Context(), userID, service.CreateReviewInput{
		StallID:        req.StallID,
		Rating:         req.Rating,
		TotalCost:      req.TotalCost,
		NumberOfPeople: req.NumberOfPeople,
		Comment:        req.Comment,
		ImageURLs:      req.ImageURLs,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// GetReview handles GET /api/v1/reviews/{id}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	review, err := h.service.GetReview(r.Context(), id.String(), logger.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// UpdateReview handles PUT /api/v1/reviews/{id}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.UpdateReview(r.Context(), id.String(), userID, service.UpdateReviewInput{
		Rating:         req.Rating,
		TotalCost:      req.TotalCost,
		NumberOfPeople: req.NumberOfPeople,
		Comment:        req.Comment,
		ImageURLs:      req.ImageURLs,
		ClearPriceData: req.ClearPriceData,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// DeleteReview handles DELETE /api/v1/reviews/{id}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteReview(r.Context(), id.String(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListStallReviews handles GET /api/v1/stalls/{stallId}/reviews
func (h *ReviewHandler) ListStallReviews(w http.ResponseWriter, r *http.Request) {
	stallID, ok := httputil.ParseInt64(w, chi.URLParam(r, "stallId"))
	if !ok {
		return
	}

	params := pagination.FromRequest(r)
	viewerID := logger.UserIDFromContext(r.Context())
	result, err := h.service.ListStallReviews(r.Context(), stallID, viewerID, sortFromRequest(r), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// GetMyStallReview handles GET /api/v1/stalls/{stallId}/reviews/me
func (h *ReviewHandler) GetMyStallReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	stallID, ok := httputil.ParseInt64(w, chi.URLParam(r, "stallId"))
	if !ok {
		return
	}

	review, err := h.service.GetOwnStallReview(r.Context(), stallID, userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// ListUserReviews handles GET /api/v1/users/{userId}/reviews
func (h *ReviewHandler) ListUserReviews(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParseUUID(w, chi.URLParam(r, "userId"))
	if !ok {
		return
	}

	params := pagination.FromRequest(r)
	result, err := h.service.ListUserReviews(r.Context(), userID.String(), logger.UserIDFromContext(r.Context()), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// LikeReview handles POST /api/v1/reviews/{id}/like
func (h *ReviewHandler) LikeReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.LikeReview(r.Context(), id.String(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnlikeReview handles DELETE /api/v1/reviews/{id}/like
func (h *ReviewHandler) UnlikeReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.UnlikeReview(r.Context(), id.String(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
