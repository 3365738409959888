package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nushungry/review-service/internal/domain"
	"github.com/nushungry/review-service/internal/repository"
	apperrors "github.com/nushungry/review-service/pkg/errors"
	"github.com/nushungry/review-service/pkg/pagination"
)

// RatingRecalculator rebuilds a stall's rating aggregate.
type RatingRecalculator interface {
	Recalculate(ctx context.Context, stallID int64) (domain.RatingAggregate, error)
}

// PriceRecalculator rebuilds a stall's price aggregate.
type PriceRecalculator interface {
	Recalculate(ctx context.Context, stallID int64) (domain.PriceAggregate, error)
}

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	StallID        int64
	Rating         int
	TotalCost      *float64
	NumberOfPeople *int
	Comment        string
	ImageURLs      []string
}

// UpdateReviewInput holds the parameters for editing a review. Nil pointer
// fields keep their current value; ClearPriceData removes price evidence.
type UpdateReviewInput struct {
	Rating         *int
	TotalCost      *float64
	NumberOfPeople *int
	Comment        *string
	ImageURLs      []string
	ClearPriceData bool
}

// ReviewService implements the business logic for review mutations. Every
// successful create, update or delete triggers both aggregate recomputations
// for the affected stall before the call returns.
type ReviewService struct {
	repo    repository.ReviewRepository
	ratings RatingRecalculator
	prices  PriceRecalculator
	logger  *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(repo repository.ReviewRepository, ratings RatingRecalculator, prices PriceRecalculator, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:    repo,
		ratings: ratings,
		prices:  prices,
		logger:  logger,
	}
}

// CreateReview creates a new review for a stall on behalf of userID.
func (s *ReviewService) CreateReview(ctx context.Context, userID string, input CreateReviewInput) (*domain.Review, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user_id is required")
	}
	if input.StallID <= 0 {
		return nil, apperrors.InvalidInput("stall_id is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}
	if err := validatePriceData(input.TotalCost, input.NumberOfPeople); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:             uuid.New().String(),
		StallID:        input.StallID,
		UserID:         userID,
		Rating:         input.Rating,
		TotalCost:      input.TotalCost,
		NumberOfPeople: input.NumberOfPeople,
		Comment:        input.Comment,
		ImageURLs:      input.ImageURLs,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.Int64("stall_id", review.StallID),
		slog.String("user_id", review.UserID),
		slog.Int("rating", review.Rating),
	)

	if err := s.recomputeAggregates(ctx, review.StallID); err != nil {
		return nil, err
	}

	return review, nil
}

// UpdateReview edits an existing review owned by userID.
func (s *ReviewService) UpdateReview(ctx context.Context, reviewID, userID string, input UpdateReviewInput) (*domain.Review, error) {
	review, err := s.repo.GetByID(ctx, reviewID, userID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review.UserID != userID {
		return nil, apperrors.Forbidden("review belongs to another user")
	}

	if input.Rating != nil {
		if *input.Rating < 1 || *input.Rating > 5 {
			return nil, apperrors.InvalidInput("rating must be between 1 and 5")
		}
		review.Rating = *input.Rating
	}
	if input.ClearPriceData {
		review.TotalCost = nil
		review.NumberOfPeople = nil
	} else {
		if input.TotalCost != nil {
			review.TotalCost = input.TotalCost
		}
		if input.NumberOfPeople != nil {
			review.NumberOfPeople = input.NumberOfPeople
		}
	}
	if err := validatePriceData(review.TotalCost, review.NumberOfPeople); err != nil {
		return nil, err
	}
	if input.Comment != nil {
		review.Comment = *input.Comment
	}
	if input.ImageURLs != nil {
		review.ImageURLs = input.ImageURLs
	}

	if err := s.repo.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
		slog.Int64("stall_id", review.StallID),
	)

	if err := s.recomputeAggregates(ctx, review.StallID); err != nil {
		return nil, err
	}

	return review, nil
}

// DeleteReview removes a review owned by userID.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, userID string) error {
	review, err := s.repo.GetByID(ctx, reviewID, userID)
	if err != nil {
		return fmt.Errorf("get review: %w", err)
	}
	if review.UserID != userID {
		return apperrors.Forbidden("review belongs to another user")
	}

	if err := s.repo.Delete(ctx, reviewID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID),
		slog.Int64("stall_id", review.StallID),
	)

	return s.recomputeAggregates(ctx, review.StallID)
}

// GetReview retrieves a single review. The viewerID, which may be empty for
// anonymous reads, drives the liked flag on the result.
func (s *ReviewService) GetReview(ctx context.Context, reviewID, viewerID string) (*domain.Review, error) {
	review, err := s.repo.GetByID(ctx, reviewID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// GetOwnStallReview retrieves the review userID holds for a stall.
func (s *ReviewService) GetOwnStallReview(ctx context.Context, stallID int64, userID string) (*domain.Review, error) {
	review, err := s.repo.GetByStallAndUser(ctx, stallID, userID)
	if err != nil {
		return nil, fmt.Errorf("get own stall review: %w", err)
	}
	return review, nil
}

// ListStallReviews returns a page of reviews for one stall in the requested
// order.
func (s *ReviewService) ListStallReviews(ctx context.Context, stallID int64, viewerID string, sort repository.ReviewSort, params pagination.Params) (*pagination.Result[domain.Review], error) {
	reviews, total, err := s.repo.ListByStallID(ctx, stallID, viewerID, sort, params.Offset, params.PerPage)
	if err != nil {
		return nil, fmt.Errorf("list stall reviews: %w", err)
	}

	result := pagination.NewResult(reviews, total, params)
	return &result, nil
}

// ListUserReviews returns a page of reviews written by one user, newest first.
func (s *ReviewService) ListUserReviews(ctx context.Context, userID, viewerID string, params pagination.Params) (*pagination.Result[domain.Review], error) {
	reviews, total, err := s.repo.ListByUserID(ctx, userID, viewerID, params.Offset, params.PerPage)
	if err != nil {
		return nil, fmt.Errorf("list user reviews: %w", err)
	}

	result := pagination.NewResult(reviews, total, params)
	return &result, nil
}

// LikeReview records userID's like on a review. Likes do not touch the stall
// aggregates, so no recomputation is triggered.
func (s *ReviewService) LikeReview(ctx context.Context, reviewID, userID string) error {
	if err := s.repo.AddLike(ctx, reviewID, userID); err != nil {
		return fmt.Errorf("like review: %w", err)
	}
	return nil
}

// UnlikeReview removes userID's like from a review.
func (s *ReviewService) UnlikeReview(ctx context.Context, reviewID, userID string) error {
	if err := s.repo.RemoveLike(ctx, reviewID, userID); err != nil {
		return fmt.Errorf("unlike review: %w", err)
	}
	return nil
}

// recomputeAggregates triggers both recomputations for a stall. The two run
// concurrently and independently: a failure on one side does not stop the
// other from persisting and announcing its aggregate.
func (s *ReviewService) recomputeAggregates(ctx context.Context, stallID int64) error {
	var (
		wg        sync.WaitGroup
		ratingErr error
		priceErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, ratingErr = s.ratings.Recalculate(ctx, stallID)
	}()
	go func() {
		defer wg.Done()
		_, priceErr = s.prices.Recalculate(ctx, stallID)
	}()
	wg.Wait()

	return errors.Join(ratingErr, priceErr)
}

// validatePriceData rejects non-positive price evidence. Absent fields are
// fine: the review simply contributes nothing to the price aggregate.
func validatePriceData(totalCost *float64, numberOfPeople *int) error {
	if totalCost != nil && *totalCost <= 0 {
		return apperrors.InvalidInput("total_cost must be positive")
	}
	if numberOfPeople != nil && *numberOfPeople <= 0 {
		return apperrors.InvalidInput("number_of_people must be positive")
	}
	return nil
}
