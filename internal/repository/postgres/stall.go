package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nushungry/review-service/internal/domain"
	"github.com/nushungry/review-service/pkg/database"
	apperrors "github.com/nushungry/review-service/pkg/errors"
)

// StallRepository implements repository.StallRepository using PostgreSQL.
type StallRepository struct {
	pool database.DBTX
}

// NewStallRepository creates a new PostgreSQL-backed stall repository.
func NewStallRepository(pool database.DBTX) *StallRepository {
	return &StallRepository{pool: pool}
}

// GetByID retrieves a stall by its ID.
func (r *StallRepository) GetByID(ctx context.Context, id int64) (*domain.Stall, error) {
	query := `
		SELECT id, name, cafeteria_id, average_rating, review_count, average_price, price_count, created_at, updated_at
		FROM stalls
		WHERE id = $1`

	var s domain.Stall
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.Name,
		&s.CafeteriaID,
		&s.AverageRating,
		&s.ReviewCount,
		&s.AveragePrice,
		&s.PriceCount,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan stall: %w", err)
	}

	return &s, nil
}

// ListIDs returns the identifiers of all stalls.
func (r *StallRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM stalls ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query stall ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stall id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stall id rows: %w", err)
	}

	return ids, nil
}

// UpdateRatingAggregate overwrites a stall's rating summary fields.
func (r *StallRepository) UpdateRatingAggregate(ctx context.Context, stallID int64, agg domain.RatingAggregate) error {
	query := `
		UPDATE stalls
		SET average_rating = $1, review_count = $2, updated_at = $3
		WHERE id = $4`

	ctx, end := database.TraceQuery(ctx, "UpdateRatingAggregate", query)
	ct, err := r.pool.Exec(ctx, query, agg.AverageRating, agg.ReviewCount, time.Now().UTC(), stallID)
	end(err)
	if err != nil {
		return fmt.Errorf("update rating aggregate: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("stall", fmt.Sprintf("%d", stallID))
	}

	return nil
}

// UpdatePriceAggregate overwrites a stall's price summary fields.
func (r *StallRepository) UpdatePriceAggregate(ctx context.Context, stallID int64, agg domain.PriceAggregate) error {
	query := `
		UPDATE stalls
		SET average_price = $1, price_count = $2, updated_at = $3
		WHERE id = $4`

	ctx, end := database.TraceQuery(ctx, "UpdatePriceAggregate", query)
	ct, err := r.pool.Exec(ctx, query, agg.AveragePrice, agg.PriceCount, time.Now().UTC(), stallID)
	end(err)
	if err != nil {
		return fmt.Errorf("update price aggregate: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("stall", fmt.Sprintf("%d", stallID))
	}

	return nil
}
