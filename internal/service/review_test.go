package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nushungry/review-service/internal/domain"
	"github.com/nushungry/review-service/internal/repository"
	apperrors "github.com/nushungry/review-service/pkg/errors"
	"github.com/nushungry/review-service/pkg/pagination"
)

// --- Recalculator fakes ---

type fakeRatingRecalculator struct {
	mu       sync.Mutex
	stallIDs []int64
	err      error
}

func (f *fakeRatingRecalculator) Recalculate(_ context.Context, stallID int64) (domain.RatingAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.RatingAggregate{}, f.err
	}
	f.stallIDs = append(f.stallIDs, stallID)
	return domain.RatingAggregate{}, nil
}

type fakePriceRecalculator struct {
	mu       sync.Mutex
	stallIDs []int64
	err      error
}

func (f *fakePriceRecalculator) Recalculate(_ context.Context, stallID int64) (domain.PriceAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.PriceAggregate{}, f.err
	}
	f.stallIDs = append(f.stallIDs, stallID)
	return domain.PriceAggregate{}, nil
}

func newReviewTestService(repo *mockReviewRepository) (*ReviewService, *fakeRatingRecalculator, *fakePriceRecalculator) {
	ratings := &fakeRatingRecalculator{}
	prices := &fakePriceRecalculator{}
	return NewReviewService(repo, ratings, prices, newTestLogger()), ratings, prices
}

func validCreateInput() CreateReviewInput {
	return CreateReviewInput{
		StallID:        42,
		Rating:         4,
		TotalCost:      floatPtr(24.5),
		NumberOfPeople: intPtr(2),
		Comment:        "Good chicken rice, queue moves fast.",
	}
}

// --- Create ---

func TestCreateReview_Success_TriggersBothRecomputations(t *testing.T) {
	repo := new(mockReviewRepository)
	svc, ratings, prices := newReviewTestService(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.Review")).Return(nil)

	review, err := svc.CreateReview(ctx, "usr-001", validCreateInput())

	require.NoError(t, err)
	assert.NotEmpty(t, review.ID)
	assert.Equal(t, int64(42), review.StallID)
	assert.Equal(t, "usr-001", review.UserID)

	assert.Equal(t, []int64{42}, ratings.stallIDs)
	assert.Equal(t, []int64{42}, prices.stallIDs)
	repo.AssertExpectations(t)
}

func TestCreateReview_ValidationFailures(t *testing.T) {
	repo := new(mockReviewRepository)
	svc, _, _ := newReviewTestService(repo)
	ctx := context.Background()

	cases := []struct {
		name   string
		userID string
		mutate func(*CreateReviewInput)
	}{
		{"missing user", "", func(*CreateReviewInput) {}},
		{"missing stall", "usr-001", func(in *CreateReviewInput) { in.StallID = 0 }},
		{"rating too low", "usr-001", func(in *CreateReviewInput) { in.Rating = 0 }},
		{"rating too high", "usr-001", func(in *CreateReviewInput) { in.Rating = 6 }},
		{"non-positive cost", "usr-001", func(in *CreateReviewInput) { in.TotalCost = floatPtr(-1) }},
		{"non-positive group", "usr-001", func(in *CreateReviewInput) { in.NumberOfPeople = intPtr(0) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validCreateInput()
			tc.mutate(&input)

			_, err := svc.CreateReview(ctx, tc.userID, input)

			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateReview_DuplicatePerStall(t *testing.T) {
	repo := new(mockReviewRepository)
	svc, ratings, prices := newReviewTestService(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.Review")).
		Return(apperrors.AlreadyExists("review", "user", "usr-001"))

	_, err := svc.CreateReview(ctx, "usr-001", validCreateInput())

	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Empty(t, ratings.stallIDs)
	assert.Empty(t, prices.stallIDs)
}

// --- Update ---

func TestUpdateReview_Success(t *testing.T) {
	repo := new(mockReviewRepository)
	svc, ratings, prices := newReviewTestService(repo)
	ctx := context.Background()

	existing := &domain.Review{ID: "rev-001", StallID: 42, UserID: "usr-001", Rating: 3}
	repo.On("GetByID", ctx, "rev-001", "usr-001").Return(existing, nil)
	repo.On("Update", ctx, mock.AnythingOfType("*domain.Review")).Return(nil)

	updated, err := svc.UpdateReview(ctx, "rev-001", "usr-001", UpdateReviewInput{
		Rating:         intPtr(5),
		TotalCost:      floatPtr(18),
		NumberOfPeople: intPtr(3),
	})

	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, 18.0, *updated.TotalCost)
	assert.Equal(t, 3, *updated.NumberOfPeople)

	assert.Equal(t, []int64{42}, ratings.stallIDs)
	assert.Equal(t, []int64{42}, prices.stallIDs)
}

func TestUpdateReview_ClearPriceData(t *testing.T) {
	repo := new(mockReviewRepository)
	svc, _, _ := newReviewTestService(repo)
	ctx := context.Background()

	existing := &domain.Review{
		ID: "rev-001", StallID: 42, UserID: "usr-001", Rating: 3,
		TotalCost: floatPtr(24.5), NumberOfPeople: intPtr(2),
	}
	repo.On("GetByID", ctx, "rev-001", "usr-001").Return(existing, nil)
	repo.On("Update", ctx, mock.AnythingOfType("*domain.Review")).Return(nil)

	updated, err := svc.UpdateReview(ctx, "rev-001", "usr-001", UpdateReviewInput{ClearPriceData: true})

	require.NoError(t, err)
	assert.Nil(t, updated.TotalCost)
	assert.Nil(t, updated.NumberOfPeople)
}

func TestUpdateReview_WrongOwner(t *testing.T) {
	repo := new(mockReviewRepository)
	svc, ratings, prices := newReviewTestService(repo)
	ctx := context.Background()

	existing := &domain.Review{ID: "rev-001", StallID: 42, UserID: "usr-001", Rating: 3}
	repo.On("GetByID", ctx, "rev-001", "usr-999").Return(existing, nil)

	_, err := svc.UpdateReview(ctx, "rev-001", "usr-999", UpdateReviewInput{Rating: intPtr(1)})

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	assert.Empty(t, ratings.stallIDs)
	assert.Empty(t, prices.stallIDs)
}

func TestUpdateReview_NotFound(t *testing.T) {
	repo := new(mockReviewRepository)
	svc, _, _ := newReviewTestService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "missing", "usr-001").Return(nil, apperrors.ErrNotFound)

	_, err := svc.UpdateReview(ctx, "missing", "usr-001", UpdateReviewInput{})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- Delete ---

func TestDeleteReview_Success_TriggersBothRecomputations(t *testing.T) {
	repo := new(mockReviewRepository)
	svc, ratings, prices := newReviewTestService(repo)
	ctx := context.Background()

	existing := &domain.Review{ID: "rev-001", StallID: 42, UserID: "usr-001", Rating: 3}
	repo.On("GetByID", ctx, "rev-001", "usr-001").Return(existing, nil)
	repo.On("Delete", ctx, "rev-001").Return(nil)

	err := svc.DeleteReview(ctx, "rev-001", "usr-001")

	require.NoError(t, err)
	assert.Equal(t, []int64{42}, ratings.stallIDs)
	assert.Equal(t, []int64{42}, prices.stallIDs)
}

func TestDeleteReview_WrongOwner(t *testing.T) {
	repo := new(mockReviewRepository)
	svc, _, _ := newReviewTestService(repo)
	ctx := context.Background()

	existing := &domain.Review{ID: "rev-001", StallID: 42, UserID: "usr-001"}
	repo.On("GetByID", ctx, "rev-001", "usr-999").Return(existing, nil)

	err := svc.DeleteReview(ctx, "rev-001", "usr-999")

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// --- Failure isolation between the two recomputations ---

func TestRecomputeAggregates_RatingFailureDoesNotStopPrice(t *testing.T) {
	repo := new(mockReviewRepository)
	ratings := &fakeRatingRecalculator{err: errors.New("connection refused")}
	prices := &fakePriceRecalculator{}
	svc := NewReviewService(repo, ratings, prices, newTestLogger())
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.Review")).Return(nil)

	_, err := svc.CreateReview(ctx, "usr-001", validCreateInput())

	// The mutation surfaces the rating failure, but the price side still ran.
	assert.Error(t, err)
	assert.Equal(t, []int64{42}, prices.stallIDs)
}

func TestRecomputeAggregates_PriceFailureDoesNotStopRating(t *testing.T) {
	repo := new(mockReviewRepository)
	ratings := &fakeRatingRecalculator{}
	prices := &fakePriceRecalculator{err: errors.New("connection refused")}
	svc := NewReviewService(repo, ratings, prices, newTestLogger())
	ctx := context.Background()

	existing := &domain.Review{ID: "rev-001", StallID: 42, UserID: "usr-001"}
	repo.On("GetByID", ctx, "rev-001", "usr-001").Return(existing, nil)
	repo.On("Delete", ctx, "rev-001").Return(nil)

	err := svc.DeleteReview(ctx, "rev-001", "usr-001")

	assert.Error(t, err)
	assert.Equal(t, []int64{42}, ratings.stallIDs)
}

// --- Reads and likes ---

func TestListStallReviews(t *testing.T) {
	repo := new(mockReviewRepository)
	svc, _, _ := newReviewTestService(repo)
	ctx := context.Background()

	stored := []domain.Review{{ID: "rev-001", StallID: 42}, {ID: "rev-002", StallID: 42}}
	repo.On("ListByStallID", ctx, int64(42), "", repository.SortRecent, 0, 20).Return(stored, 2, nil)

	result, err := svc.ListStallReviews(ctx, 42, "", repository.SortRecent, pagination.DefaultParams())

	require.NoError(t, err)
	assert.Equal(t, stored, result.Data)
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, 1, result.TotalPages)
}

func TestListStallReviews_SortAndViewerReachTheStore(t *testing.T) {
	repo := new(mockReviewRepository)
	svc, _, _ := newReviewTestService(repo)
	ctx := context.Background()

	stored := []domain.Review{{ID: "rev-001", StallID: 42, LikesCount: 9, LikedByUser: true}}
	repo.On("ListByStallID", ctx, int64(42), "usr-002", repository.SortLikes, 0, 20).Return(stored, 1, nil)

	result, err := svc.ListStallReviews(ctx, 42, "usr-002", repository.SortLikes, pagination.DefaultParams())

	require.NoError(t, err)
	assert.True(t, result.Data[0].LikedByUser)
	repo.AssertExpectations(t)
}

func TestGetOwnStallReview(t *testing.T) {
	repo := new(mockReviewRepository)
	svc, _, _ := newReviewTestService(repo)
	ctx := context.Background()

	mine := &domain.Review{ID: "rev-001", StallID: 42, UserID: "usr-001"}
	repo.On("GetByStallAndUser", ctx, int64(42), "usr-001").Return(mine, nil)

	got, err := svc.GetOwnStallReview(ctx, 42, "usr-001")

	require.NoError(t, err)
	assert.Equal(t, mine, got)
}

func TestGetOwnStallReview_NoneYet(t *testing.T) {
	repo := new(mockReviewRepository)
	svc, _, _ := newReviewTestService(repo)
	ctx := context.Background()

	repo.On("GetByStallAndUser", ctx, int64(42), "usr-001").Return(nil, apperrors.ErrNotFound)

	_, err := svc.GetOwnStallReview(ctx, 42, "usr-001")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLikeReview_PassesThrough(t *testing.T) {
	repo := new(mockReviewRepository)
	svc, ratings, prices := newReviewTestService(repo)
	ctx := context.Background()

	repo.On("AddLike", ctx, "rev-001", "usr-002").Return(nil)
	repo.On("RemoveLike", ctx, "rev-001", "usr-002").Return(nil)

	require.NoError(t, svc.LikeReview(ctx, "rev-001", "usr-002"))
	require.NoError(t, svc.UnlikeReview(ctx, "rev-001", "usr-002"))

	// Likes never touch the aggregates.
	assert.Empty(t, ratings.stallIDs)
	assert.Empty(t, prices.stallIDs)
}
