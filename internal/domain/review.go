package domain

import (
	"time"
)

// Review represents one user's opinion of one food stall. A user may hold at
// most one review per stall at any time; the uniqueness is enforced at the
// mutation entry points and by a database constraint.
type Review struct {
	ID             string    `json:"id"`
	StallID        int64     `json:"stall_id"`
	UserID         string    `json:"user_id"`
	Rating         int       `json:"rating"`
	TotalCost      *float64  `json:"total_cost,omitempty"`
	NumberOfPeople *int      `json:"number_of_people,omitempty"`
	Comment        string    `json:"comment"`
	ImageURLs      []string  `json:"image_urls,omitempty"`
	LikesCount     int       `json:"likes_count"`
	LikedByUser    bool      `json:"liked_by_user"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasPriceData reports whether the review carries usable price evidence:
// a positive total cost and a positive group size. Reviews without both are
// excluded from the price aggregate entirely.
func (r Review) HasPriceData() bool {
	return r.TotalCost != nil && *r.TotalCost > 0 &&
		r.NumberOfPeople != nil && *r.NumberOfPeople > 0
}

// PerCapitaCost returns the cost per person for this review. Only meaningful
// when HasPriceData is true.
func (r Review) PerCapitaCost() float64 {
	return *r.TotalCost / float64(*r.NumberOfPeople)
}

// RatingDistribution maps each rating value (1-5) to the number of reviews
// carrying that rating.
type RatingDistribution map[int]int64
