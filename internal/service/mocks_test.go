package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/nushungry/review-service/internal/domain"
	"github.com/nushungry/review-service/internal/repository"
)

// --- Mock Repositories ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id, viewerID string) (*domain.Review, error) {
	args := m.Called(ctx, id, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepository) ListAllByStallID(ctx context.Context, stallID int64) ([]domain.Review, error) {
	args := m.Called(ctx, stallID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) ListByStallID(ctx context.Context, stallID int64, viewerID string, sort repository.ReviewSort, offset, limit int) ([]domain.Review, int, error) {
	args := m.Called(ctx, stallID, viewerID, sort, offset, limit)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) ListByUserID(ctx context.Context, userID, viewerID string, offset, limit int) ([]domain.Review, int, error) {
	args := m.Called(ctx, userID, viewerID, offset, limit)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) GetByStallAndUser(ctx context.Context, stallID int64, userID string) (*domain.Review, error) {
	args := m.Called(ctx, stallID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) AddLike(ctx context.Context, reviewID, userID string) error {
	args := m.Called(ctx, reviewID, userID)
	return args.Error(0)
}

func (m *mockReviewRepository) RemoveLike(ctx context.Context, reviewID, userID string) error {
	args := m.Called(ctx, reviewID, userID)
	return args.Error(0)
}

type mockStallRepository struct {
	mock.Mock
}

func (m *mockStallRepository) GetByID(ctx context.Context, id int64) (*domain.Stall, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stall), args.Error(1)
}

func (m *mockStallRepository) ListIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *mockStallRepository) UpdateRatingAggregate(ctx context.Context, stallID int64, agg domain.RatingAggregate) error {
	args := m.Called(ctx, stallID, agg)
	return args.Error(0)
}

func (m *mockStallRepository) UpdatePriceAggregate(ctx context.Context, stallID int64, agg domain.PriceAggregate) error {
	args := m.Called(ctx, stallID, agg)
	return args.Error(0)
}

// --- Capturing Publisher ---

type publishedRating struct {
	StallID int64
	Agg     domain.RatingAggregate
}

type publishedPrice struct {
	StallID int64
	Agg     domain.PriceAggregate
}

// capturePublisher records published aggregates for assertions. Safe for the
// concurrent dual-trigger path because each test inspects it only after the
// service call returns.
type capturePublisher struct {
	ratings []publishedRating
	prices  []publishedPrice
}

func (p *capturePublisher) PublishRatingChanged(_ context.Context, stallID int64, agg domain.RatingAggregate) {
	p.ratings = append(p.ratings, publishedRating{StallID: stallID, Agg: agg})
}

func (p *capturePublisher) PublishPriceChanged(_ context.Context, stallID int64, agg domain.PriceAggregate) {
	p.prices = append(p.prices, publishedPrice{StallID: stallID, Agg: agg})
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func testStall(id int64) *domain.Stall {
	return &domain.Stall{ID: id, Name: "Ah Huat Chicken Rice", CafeteriaID: 3}
}
