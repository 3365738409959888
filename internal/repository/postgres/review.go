package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nushungry/review-service/internal/domain"
	"github.com/nushungry/review-service/internal/repository"
	"github.com/nushungry/review-service/pkg/database"
	apperrors "github.com/nushungry/review-service/pkg/errors"
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// reviewColumns is the column list shared by every review SELECT. The likes
// count is derived from review_likes so it can never drift out of sync.
const reviewColumns = `
	r.id, r.stall_id, r.user_id, r.rating, r.total_cost, r.number_of_people,
	r.comment, r.image_urls,
	(SELECT count(*) FROM review_likes l WHERE l.review_id = r.id) AS likes_count,
	r.created_at, r.updated_at`

// likedByViewer derives the caller's own like state as an extra column. The
// viewer's placeholder position varies per query.
func likedByViewer(arg int) string {
	return fmt.Sprintf(`,
	EXISTS (SELECT 1 FROM review_likes v WHERE v.review_id = r.id AND v.user_id = $%d) AS liked_by_user`, arg)
}

// Create inserts a new review into the database.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, stall_id, user_id, rating, total_cost, number_of_people, comment, image_urls, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		review.ID,
		review.StallID,
		review.UserID,
		review.Rating,
		review.TotalCost,
		review.NumberOfPeople,
		review.Comment,
		review.ImageURLs,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("review", "user", review.UserID)
		}
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id, viewerID string) (*domain.Review, error) {
	query := `SELECT` + reviewColumns + likedByViewer(2) + `
		FROM reviews r
		WHERE r.id = $1`

	return r.scanReview(ctx, query, id, viewerID)
}

// Update modifies an existing review in the database.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	review.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE reviews
		SET rating = $1, total_cost = $2, number_of_people = $3, comment = $4,
		    image_urls = $5, updated_at = $6
		WHERE id = $7`

	ct, err := r.pool.Exec(ctx, query,
		review.Rating,
		review.TotalCost,
		review.NumberOfPeople,
		review.Comment,
		review.ImageURLs,
		review.UpdatedAt,
		review.ID,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", review.ID)
	}

	return nil
}

// Delete removes a review from the database.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}

	return nil
}

// ListAllByStallID returns every review for a stall. Recomputation reads the
// full set, so no pagination is applied here.
func (r *ReviewRepository) ListAllByStallID(ctx context.Context, stallID int64) ([]domain.Review, error) {
	query := `SELECT` + reviewColumns + `,
	FALSE AS liked_by_user
		FROM reviews r
		WHERE r.stall_id = $1`

	ctx, end := database.TraceQuery(ctx, "ListAllByStallID", query)
	reviews, err := r.scanReviews(ctx, query, stallID)
	end(err)

	return reviews, err
}

// ListByStallID returns reviews for a stall with pagination. SortLikes orders
// by like count with recency breaking ties; anything else is newest first.
func (r *ReviewRepository) ListByStallID(ctx context.Context, stallID int64, viewerID string, sort repository.ReviewSort, offset, limit int) ([]domain.Review, int, error) {
	orderBy := "r.created_at DESC"
	if sort == repository.SortLikes {
		orderBy = "likes_count DESC, r.created_at DESC"
	}

	query := `SELECT` + reviewColumns + likedByViewer(4) + `,
		       count(*) OVER() AS total_count
		FROM reviews r
		WHERE r.stall_id = $1
		ORDER BY ` + orderBy + `
		LIMIT $2 OFFSET $3`

	return r.scanReviewPage(ctx, query, stallID, limit, offset, viewerID)
}

// ListByUserID returns reviews written by a user with pagination, newest first.
func (r *ReviewRepository) ListByUserID(ctx context.Context, userID, viewerID string, offset, limit int) ([]domain.Review, int, error) {
	query := `SELECT` + reviewColumns + likedByViewer(4) + `,
		       count(*) OVER() AS total_count
		FROM reviews r
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3`

	return r.scanReviewPage(ctx, query, userID, limit, offset, viewerID)
}

// GetByStallAndUser retrieves the single review a user holds for a stall. The
// liked flag is computed against that same user.
func (r *ReviewRepository) GetByStallAndUser(ctx context.Context, stallID int64, userID string) (*domain.Review, error) {
	query := `SELECT` + reviewColumns + likedByViewer(2) + `
		FROM reviews r
		WHERE r.stall_id = $1 AND r.user_id = $2`

	return r.scanReview(ctx, query, stallID, userID)
}

// AddLike records a like. Liking the same review twice is a conflict.
func (r *ReviewRepository) AddLike(ctx context.Context, reviewID, userID string) error {
	query := `
		INSERT INTO review_likes (review_id, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (review_id, user_id) DO NOTHING`

	ct, err := r.pool.Exec(ctx, query, reviewID, userID, time.Now().UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NotFound("review", reviewID)
		}
		return fmt.Errorf("insert review like: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.AlreadyExists("like", "user", userID)
	}

	return nil
}

// RemoveLike removes a user's like from a review.
func (r *ReviewRepository) RemoveLike(ctx context.Context, reviewID, userID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM review_likes WHERE review_id = $1 AND user_id = $2`, reviewID, userID)
	if err != nil {
		return fmt.Errorf("delete review like: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("like", reviewID)
	}

	return nil
}

// scanReview is a helper that executes a query expected to return a single review row.
func (r *ReviewRepository) scanReview(ctx context.Context, query string, args ...any) (*domain.Review, error) {
	var rev domain.Review

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&rev.ID,
		&rev.StallID,
		&rev.UserID,
		&rev.Rating,
		&rev.TotalCost,
		&rev.NumberOfPeople,
		&rev.Comment,
		&rev.ImageURLs,
		&rev.LikesCount,
		&rev.CreatedAt,
		&rev.UpdatedAt,
		&rev.LikedByUser,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	return &rev, nil
}

// scanReviews is a helper that executes a query expected to return multiple review rows.
func (r *ReviewRepository) scanReviews(ctx context.Context, query string, args ...any) ([]domain.Review, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)

	for rows.Next() {
		var rev domain.Review
		if err := rows.Scan(
			&rev.ID,
			&rev.StallID,
			&rev.UserID,
			&rev.Rating,
			&rev.TotalCost,
			&rev.NumberOfPeople,
			&rev.Comment,
			&rev.ImageURLs,
			&rev.LikesCount,
			&rev.CreatedAt,
			&rev.UpdatedAt,
			&rev.LikedByUser,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}

// scanReviewPage is a helper for paginated queries carrying a window total.
func (r *ReviewRepository) scanReviewPage(ctx context.Context, query string, args ...any) ([]domain.Review, int, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var totalCount int
	reviews := make([]domain.Review, 0)

	for rows.Next() {
		var rev domain.Review
		if err := rows.Scan(
			&rev.ID,
			&rev.StallID,
			&rev.UserID,
			&rev.Rating,
			&rev.TotalCost,
			&rev.NumberOfPeople,
			&rev.Comment,
			&rev.ImageURLs,
			&rev.LikesCount,
			&rev.CreatedAt,
			&rev.UpdatedAt,
			&rev.LikedByUser,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, totalCount, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}

// isForeignKeyViolation checks if the error is a PostgreSQL foreign key violation (SQLSTATE 23503).
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23503")
}
