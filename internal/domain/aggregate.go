package domain

import (
	"math"
)

// roundTo rounds v to the given number of decimal places using half-up
// rounding, so 7.5917 at 2 places becomes 7.59 and 4.25 at 1 place becomes 4.3.
// The epsilon keeps decimal quantities whose float64 form lands a hair under
// the tie, such as 2.01/2 = 1.00499999..., on the half-up side (1.01).
func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Floor(v*p+0.5+1e-9) / p
}

// ComputeRatingAggregate derives the rating summary from a stall's full review
// set. Every review counts, regardless of whether its rating value is in the
// expected 1-5 range. An empty set yields a zero aggregate.
func ComputeRatingAggregate(reviews []Review) RatingAggregate {
	if len(reviews) == 0 {
		return RatingAggregate{}
	}
	var sum int64
	for _, r := range reviews {
		sum += int64(r.Rating)
	}
	return RatingAggregate{
		AverageRating: roundTo(float64(sum)/float64(len(reviews)), 1),
		ReviewCount:   int64(len(reviews)),
	}
}

// ComputePriceAggregate derives the per-capita price summary from a stall's
// full review set. Reviews without valid price data are excluded from both the
// numerator and the denominator. The result is the mean of per-review
// per-capita prices, not a cost-weighted pooled average, so one expensive
// group meal does not dominate.
func ComputePriceAggregate(reviews []Review) PriceAggregate {
	var sum float64
	var count int64
	for _, r := range reviews {
		if !r.HasPriceData() {
			continue
		}
		sum += r.PerCapitaCost()
		count++
	}
	if count == 0 {
		return PriceAggregate{}
	}
	return PriceAggregate{
		AveragePrice: roundTo(sum/float64(count), 2),
		PriceCount:   count,
	}
}

// ComputeRatingDistribution counts reviews per rating value 1 through 5.
// Out-of-range ratings are ignored; all five buckets are always present.
func ComputeRatingDistribution(reviews []Review) RatingDistribution {
	dist := RatingDistribution{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	for _, r := range reviews {
		if r.Rating >= 1 && r.Rating <= 5 {
			dist[r.Rating]++
		}
	}
	return dist
}
