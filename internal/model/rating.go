package model

// Rating 单题评分档位
type Rating string

const (
	RatingExcellent        Rating = "excellent"
	RatingVeryGood         Rating = "very_good"
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needs_improvement"
)

// Ratings 全部评分档位，按从高到低排列
var Ratings = []Rating{RatingExcellent, RatingVeryGood, RatingGood, RatingNeedsImprovement}

// Valid 是否为四个合法档位之一
func (r Rating) Valid() bool {
	switch r {
	case RatingExcellent, RatingVeryGood, RatingGood, RatingNeedsImprovement:
		return true
	}
	return false
}
