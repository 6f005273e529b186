// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package topics extracts the main themes of positive and negative reviews
// with TF-IDF vectors clustered by KMeans, and derives a recommended
// developer focus from the negative themes.
package topics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/review-insights/internal/sentiment"
	"github.com/pdiddy/review-insights/pkg/types"
)

// ReportFile is the insight report inside the analysis directory.
const ReportFile = "review_insights.txt"

const (
	defaultClusters    = 8
	defaultTopTerms    = 10
	defaultMaxFeatures = 6000
	defaultNInit       = 10
	defaultSeed        = 42
	defaultTitle       = "Review Insights"
)

// Focus areas, checked in order against the negative topic terms.
var focusRules = []struct {
	focus    string
	keywords []string
}{
	{"performance optimization / stability", []string{"performance", "fps", "lag", "stutter", "crash", "server"}},
	{"gameplay balance and content depth", []string{"balance", "mission", "progression", "content"}},
}

const defaultFocus = "general polish and UX"

func withDefaults(cfg types.TopicConfig) types.TopicConfig {
	if cfg.Clusters <= 0 {
		cfg.Clusters = defaultClusters
	}
	if cfg.TopTerms <= 0 {
		cfg.TopTerms = defaultTopTerms
	}
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = defaultMaxFeatures
	}
	if cfg.NInit <= 0 {
		cfg.NInit = defaultNInit
	}
	if cfg.Seed == 0 {
		cfg.Seed = defaultSeed
	}
	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}
	return cfg
}

// Extract clusters texts and returns one topic per non-empty cluster: its
// top terms by centroid weight joined with ", ". Terms with zero weight
// are never reported.
func Extract(texts []string, cfg types.TopicConfig) []string {
	cfg = withDefaults(cfg)
	if len(texts) == 0 {
		return nil
	}

	vec := &Vectorizer{MaxFeatures: cfg.MaxFeatures, NGramMax: 2}
	xs := vec.FitTransform(texts)
	terms := vec.Terms()
	if len(terms) == 0 {
		return nil
	}

	cl := KMeans{K: cfg.Clusters, NInit: cfg.NInit, Seed: cfg.Seed}.Fit(xs, len(terms))

	var topics []string
	for _, c := range cl.Centroids {
		if top := topTerms(c, terms, cfg.TopTerms); len(top) > 0 {
			topics = append(topics, strings.Join(top, ", "))
		}
	}
	return topics
}

func topTerms(centroid []float64, terms []string, n int) []string {
	order := make([]int, 0, len(centroid))
	for i, w := range centroid {
		if w > 0 {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return centroid[order[a]] > centroid[order[b]]
	})
	if len(order) > n {
		order = order[:n]
	}
	out := make([]string, len(order))
	for i, idx := range order {
		out[i] = terms[idx]
	}
	return out
}

// Focus picks the recommended developer focus from negative topic terms.
func Focus(negTopics []string) string {
	joined := strings.ToLower(strings.Join(negTopics, " "))
	for _, rule := range focusRules {
		for _, kw := range rule.keywords {
			if strings.Contains(joined, kw) {
				return rule.focus
			}
		}
	}
	return defaultFocus
}

// Insights is the content of the insight report.
type Insights struct {
	Title          string
	Total          int
	MeanSentiment  float64
	PositiveShare  float64
	NegativeShare  float64
	PositiveTopics []string
	NegativeTopics []string
	Focus          string
}

// Analyze filters rows to English reviews and extracts topics from the
// positive (> 0.2) and negative (< -0.2) subsets separately.
func Analyze(rows []types.ScoredReview, cfg types.TopicConfig) Insights {
	cfg = withDefaults(cfg)

	var english []types.ScoredReview
	for _, r := range rows {
		if IsEnglish(r.Review) {
			english = append(english, r)
		}
	}

	var pos, neg []string
	for _, r := range english {
		switch {
		case r.Sentiment > types.PositiveThreshold:
			pos = append(pos, r.Review)
		case r.Sentiment < types.NegativeThreshold:
			neg = append(neg, r.Review)
		}
	}

	st := sentiment.Summarize(english)
	in := Insights{
		Title:          cfg.Title,
		Total:          st.Total,
		MeanSentiment:  st.MeanSentiment,
		PositiveShare:  st.PositiveShare,
		NegativeShare:  st.NegativeShare,
		PositiveTopics: Extract(pos, cfg),
		NegativeTopics: Extract(neg, cfg),
	}
	in.Focus = Focus(in.NegativeTopics)
	return in
}

// WriteReport renders the insight report.
func WriteReport(w io.Writer, in Insights) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", in.Title, strings.Repeat("=", 40))
	fmt.Fprintf(&b, "Total reviews analyzed: %s\n", sentiment.FormatCount(in.Total))
	fmt.Fprintf(&b, "Average sentiment: %.3f\n", in.MeanSentiment)
	fmt.Fprintf(&b, "Positive share (>0.2): %.1f%%\n", in.PositiveShare*100)
	fmt.Fprintf(&b, "Negative share (<-0.2): %.1f%%\n\n", in.NegativeShare*100)

	b.WriteString("Top Positive Topics\n-------------------\n")
	for _, t := range in.PositiveTopics {
		fmt.Fprintf(&b, "- %s\n", t)
	}
	b.WriteString("\nTop Negative Topics\n-------------------\n")
	for _, t := range in.NegativeTopics {
		fmt.Fprintf(&b, "- %s\n", t)
	}
	b.WriteString("\nRecommended Developer Focus\n---------------------------\n")
	fmt.Fprintf(&b, "Next sprint should prioritize **%s** based on most frequent negative topic terms.\n", in.Focus)

	_, err := io.WriteString(w, b.String())
	return err
}

// Run reads sentiment_results.csv from cfg.AnalysisDir, analyzes it, and
// writes review_insights.txt next to it.
func Run(cfg types.TopicConfig, w io.Writer) (Insights, error) {
	rows, err := sentiment.ReadCSV(filepath.Join(cfg.AnalysisDir, sentiment.ResultsFile))
	if err != nil {
		return Insights{}, err
	}

	in := Analyze(rows, cfg)
	fmt.Fprintf(w, "remaining English reviews: %d\n", in.Total)

	path := filepath.Join(cfg.AnalysisDir, ReportFile)
	f, err := os.Create(path)
	if err != nil {
		return in, fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := WriteReport(f, in); err != nil {
		return in, fmt.Errorf("writing %s: %w", path, err)
	}

	fmt.Fprintf(w, "insight report written to %s\n", path)
	return in, f.Close()
}
