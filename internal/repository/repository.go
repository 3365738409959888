package repository

import (
	"context"

	"github.com/nushungry/review-service/internal/domain"
)

// ReviewSort selects the ordering for paginated stall-review listings.
type ReviewSort string

const (
	// SortRecent orders reviews newest first.
	SortRecent ReviewSort = "recent"
	// SortLikes orders reviews by like count, newest first within ties.
	SortLikes ReviewSort = "likes"
)

// ReviewRepository defines the interface for review persistence operations.
// Read methods take a viewerID so each returned review carries whether that
// caller has liked it; an empty viewerID means an anonymous read.
type ReviewRepository interface {
	// Create inserts a new review into the store.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by its unique identifier.
	GetByID(ctx context.Context, id, viewerID string) (*domain.Review, error)

	// Update modifies an existing review in the store.
	Update(ctx context.Context, review *domain.Review) error

	// Delete removes a review from the store.
	Delete(ctx context.Context, id string) error

	// ListAllByStallID returns every review for a stall, without pagination.
	// This is the full-rescan read used by aggregate recomputation.
	ListAllByStallID(ctx context.Context, stallID int64) ([]domain.Review, error)

	// ListByStallID returns reviews for a stall with pagination and the
	// requested ordering.
	ListByStallID(ctx context.Context, stallID int64, viewerID string, sort ReviewSort, offset, limit int) ([]domain.Review, int, error)

	// ListByUserID returns reviews written by a user with pagination, newest first.
	ListByUserID(ctx context.Context, userID, viewerID string, offset, limit int) ([]domain.Review, int, error)

	// GetByStallAndUser retrieves the single review a user holds for a stall.
	// The liked flag is relative to that same user.
	GetByStallAndUser(ctx context.Context, stallID int64, userID string) (*domain.Review, error)

	// AddLike records that a user liked a review.
	AddLike(ctx context.Context, reviewID, userID string) error

	// RemoveLike removes a user's like from a review.
	RemoveLike(ctx context.Context, reviewID, userID string) error
}

// StallRepository defines the interface for stall persistence operations.
// Only the aggregate fields are written through this interface; the stall
// records themselves are owned by the catalog side.
type StallRepository interface {
	// GetByID retrieves a stall by its identifier.
	GetByID(ctx context.Context, id int64) (*domain.Stall, error)

	// ListIDs returns the identifiers of all stalls, for bulk recomputation.
	ListIDs(ctx context.Context) ([]int64, error)

	// UpdateRatingAggregate overwrites a stall's rating summary fields.
	UpdateRatingAggregate(ctx context.Context, stallID int64, agg domain.RatingAggregate) error

	// UpdatePriceAggregate overwrites a stall's price summary fields.
	UpdatePriceAggregate(ctx context.Context, stallID int64, agg domain.PriceAggregate) error
}
