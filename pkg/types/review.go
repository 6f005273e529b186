// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the review-insights pipeline:
// fetch (Review, QuerySummary), score (ScoredReview, SentimentBucket),
// and aggregate (Task, CategoryAggregate).
package types

// Review is one Steam review as returned by the storefront appreviews
// endpoint. Fetch writes the raw JSON object, so fields not listed here
// survive on disk.
type Review struct {
	// RecommendationID is the Steam review identifier.
	RecommendationID string `json:"recommendationid" yaml:"recommendationid"`

	// Author carries the reviewer's playtime and library stats.
	Author ReviewAuthor `json:"author" yaml:"author"`

	// Language is the Steam language code of the review (e.g. "english").
	Language string `json:"language" yaml:"language"`

	// Text is the review body.
	Text string `json:"review" yaml:"review"`

	// TimestampCreated is the creation time as a Unix timestamp.
	TimestampCreated int64 `json:"timestamp_created" yaml:"timestamp_created"`

	// TimestampUpdated is the last edit time as a Unix timestamp.
	TimestampUpdated int64 `json:"timestamp_updated" yaml:"timestamp_updated"`

	// VotedUp is true for a positive (recommended) review.
	VotedUp bool `json:"voted_up" yaml:"voted_up"`

	// VotesUp counts users who found the review helpful.
	VotesUp int `json:"votes_up" yaml:"votes_up"`

	// VotesFunny counts users who found the review funny.
	VotesFunny int `json:"votes_funny" yaml:"votes_funny"`
}

// ReviewAuthor holds reviewer metadata. Playtimes are in minutes.
type ReviewAuthor struct {
	SteamID          string `json:"steamid" yaml:"steamid"`
	NumGamesOwned    int    `json:"num_games_owned" yaml:"num_games_owned"`
	NumReviews       int    `json:"num_reviews" yaml:"num_reviews"`
	PlaytimeForever  int    `json:"playtime_forever" yaml:"playtime_forever"`
	PlaytimeAtReview int    `json:"playtime_at_review" yaml:"playtime_at_review"`
}

// QuerySummary is the review totals block returned with the first page.
type QuerySummary struct {
	NumReviews      int    `json:"num_reviews" yaml:"num_reviews"`
	ReviewScore     int    `json:"review_score" yaml:"review_score"`
	ReviewScoreDesc string `json:"review_score_desc" yaml:"review_score_desc"`
	TotalPositive   int    `json:"total_positive" yaml:"total_positive"`
	TotalNegative   int    `json:"total_negative" yaml:"total_negative"`
	TotalReviews    int    `json:"total_reviews" yaml:"total_reviews"`
}
