// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SentimentBucket classifies a compound score into a polarity band.
type SentimentBucket string

const (
	BucketNegative SentimentBucket = "neg"
	BucketMixed    SentimentBucket = "mixed"
	BucketPositive SentimentBucket = "pos"
)

// Polarity band edges on the compound scale. Bands are right-closed:
// (-1, -0.2] is negative, (-0.2, 0.2] is mixed, (0.2, 1] is positive.
const (
	NegativeThreshold = -0.2
	PositiveThreshold = 0.2
)

// BucketOf returns the polarity band for a compound score. A score of
// exactly -1 falls in the negative band.
func BucketOf(compound float64) SentimentBucket {
	switch {
	case compound <= NegativeThreshold:
		return BucketNegative
	case compound <= PositiveThreshold:
		return BucketMixed
	default:
		return BucketPositive
	}
}

// ScoredReview is one row of sentiment_results.csv.
type ScoredReview struct {
	ReviewID        string  `json:"review_id" yaml:"review_id"`
	Review          string  `json:"review" yaml:"review"`
	VotedUp         bool    `json:"voted_up" yaml:"voted_up"`
	Sentiment       float64 `json:"sentiment" yaml:"sentiment"`
	Pos             float64 `json:"pos" yaml:"pos"`
	Neu             float64 `json:"neu" yaml:"neu"`
	Neg             float64 `json:"neg" yaml:"neg"`
	VotesUp         int     `json:"votes_up" yaml:"votes_up"`
	VotesFunny      int     `json:"votes_funny" yaml:"votes_funny"`
	PlaytimeForever int     `json:"playtime_forever" yaml:"playtime_forever"`
}

// Bucket returns the review's polarity band.
func (r ScoredReview) Bucket() SentimentBucket {
	return BucketOf(r.Sentiment)
}
