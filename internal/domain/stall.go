package domain

import (
	"time"
)

// Stall represents a food stall whose review set is summarized into
// denormalized aggregate fields. The aggregate fields are always rewritten
// from a full rescan of the stall's reviews, never incrementally patched.
type Stall struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	CafeteriaID   int64     `json:"cafeteria_id"`
	AverageRating float64   `json:"average_rating"`
	ReviewCount   int64     `json:"review_count"`
	AveragePrice  float64   `json:"average_price"`
	PriceCount    int64     `json:"price_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RatingAggregate is the derived rating summary for one stall.
type RatingAggregate struct {
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int64   `json:"review_count"`
}

// PriceAggregate is the derived per-capita price summary for one stall.
// ReviewCount on the rating side and PriceCount here may differ: only reviews
// with valid price data contribute to the price aggregate.
type PriceAggregate struct {
	AveragePrice float64 `json:"average_price"`
	PriceCount   int64   `json:"price_count"`
}
