// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sentiment scores review text with the VADER rule set and writes
// the per-review scores and corpus statistics used by later stages.
package sentiment

import (
	"math"

	"github.com/jonreiter/govader"
)

// Scores holds the polarity of one text. Pos, Neu and Neg are ratios
// that sum to about 1; Compound is the normalized sum in [-1, 1].
type Scores struct {
	Neg      float64
	Neu      float64
	Pos      float64
	Compound float64
}

// Scorer assigns polarity scores to a text.
type Scorer interface {
	PolarityScores(text string) Scores
}

// VaderScorer implements Scorer with govader's port of the VADER analyzer
// and its full lexicon. Building one parses the lexicon, so create it once
// per run.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer returns a scorer over the bundled VADER and emoji lexicons.
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// PolarityScores scores text. Compound is rounded to 4 places and the
// ratios to 3, matching the reference VADER output. Text
// with no scorable tokens scores all zeros.
func (s *VaderScorer) PolarityScores(text string) Scores {
	v := s.analyzer.PolarityScores(text)
	return Scores{
		Neg:      round(v.Negative, 3),
		Neu:      round(v.Neutral, 3),
		Pos:      round(v.Positive, 3),
		Compound: round(v.Compound, 4),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
