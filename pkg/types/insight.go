// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// CategoryOther labels tasks that match no category pattern.
const CategoryOther = "other"

// Task is an accepted developer task: one row of task_examples.csv.
type Task struct {
	Category       string  `json:"category" yaml:"category"`
	Task           string  `json:"task" yaml:"task"`
	Confidence     float64 `json:"confidence" yaml:"confidence"`
	OriginalReview string  `json:"original_review" yaml:"original_review"`
}

// CategoryAggregate is one ranked row of insights_aggregate.csv.
type CategoryAggregate struct {
	Category      string  `json:"category" yaml:"category"`
	Count         int     `json:"count" yaml:"count"`
	AvgConfidence float64 `json:"avg_confidence" yaml:"avg_confidence"`

	// Examples holds up to three distinct tasks joined by "; ".
	Examples string `json:"examples" yaml:"examples"`
}
