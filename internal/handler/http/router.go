package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nushungry/review-service/internal/service"
	"github.com/nushungry/review-service/pkg/health"
	"github.com/nushungry/review-service/pkg/middleware"
)

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(
	reviewService *service.ReviewService,
	ratingService *service.RatingService,
	priceService *service.PriceService,
	healthHandler *health.Handler,
	corsCfg middleware.CORSConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing("review"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("review"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	reviewHandler := NewReviewHandler(reviewService, logger)
	stallHandler := NewStallHandler(ratingService, priceService, logger)

	// Review API endpoints
	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", reviewHandler.CreateReview)
		r.Get("/{id}", reviewHandler.GetReview)
		r.Put("/{id}", reviewHandler.UpdateReview)
		r.Delete("/{id}", reviewHandler.DeleteReview)
		r.Post("/{id}/like", reviewHandler.LikeReview)
		r.Delete("/{id}/like", reviewHandler.UnlikeReview)
	})

	// Stall-scoped read endpoints
	r.Route("/api/v1/stalls/{stallId}", func(r chi.Router) {
		r.Get("/reviews", reviewHandler.ListStallReviews)
		r.Get("/reviews/me", reviewHandler.GetMyStallReview)
		r.With(middleware.CacheControl(60)).Get("/rating-distribution", stallHandler.GetRatingDistribution)
	})

	r.Get("/api/v1/users/{userId}/reviews", reviewHandler.ListUserReviews)

	// Admin recomputation endpoints
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Post("/recalculate", stallHandler.RecalculateAll)
		r.Post("/stalls/{stallId}/recalculate", stallHandler.RecalculateStall)
	})

	return r
}
