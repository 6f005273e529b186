// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report builds the developer report and dashboard KPIs from the
// sentiment and aggregate tables.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/pdiddy/review-insights/internal/insights"
	"github.com/pdiddy/review-insights/internal/sentiment"
	"github.com/pdiddy/review-insights/pkg/types"
)

// File is the developer report inside the analysis directory.
const File = "dev_report.md"

const (
	defaultTitle = "Developer Report"
	defaultTopN  = 5
	renderWidth  = 100
)

// KPIs is the headline row of the dashboard.
type KPIs struct {
	TotalReviews     int
	AvgSentiment     float64
	UniqueCategories int
	ActionableTasks  int
	Buckets          map[types.SentimentBucket]int
}

// ComputeKPIs derives the dashboard headline figures.
func ComputeKPIs(rows []types.ScoredReview, tasks []types.Task) KPIs {
	k := KPIs{
		TotalReviews: len(rows),
		Buckets: map[types.SentimentBucket]int{
			types.BucketNegative: 0,
			types.BucketMixed:    0,
			types.BucketPositive: 0,
		},
	}
	for _, r := range rows {
		k.AvgSentiment += r.Sentiment
		k.Buckets[r.Bucket()]++
	}
	if len(rows) > 0 {
		k.AvgSentiment /= float64(len(rows))
	}
	cats := make(map[string]bool)
	for _, t := range tasks {
		cats[t.Category] = true
	}
	k.UniqueCategories = len(cats)
	k.ActionableTasks = len(tasks)
	return k
}

// Lines renders the KPIs for the terminal.
func (k KPIs) Lines() []string {
	return []string{
		fmt.Sprintf("Total analyzed reviews: %s", sentiment.FormatCount(k.TotalReviews)),
		fmt.Sprintf("Average sentiment: %.3f", k.AvgSentiment),
		fmt.Sprintf("Unique categories: %d", k.UniqueCategories),
		fmt.Sprintf("Total actionable tasks: %s", sentiment.FormatCount(k.ActionableTasks)),
		fmt.Sprintf("Sentiment buckets: neg %d | mixed %d | pos %d",
			k.Buckets[types.BucketNegative], k.Buckets[types.BucketMixed], k.Buckets[types.BucketPositive]),
	}
}

// Build renders the developer report: corpus totals followed by the top
// topN priorities, or a note when no task passed the threshold.
func Build(title string, st sentiment.Stats, aggs []types.CategoryAggregate, topN int) string {
	if title == "" {
		title = defaultTitle
	}
	if topN <= 0 {
		topN = defaultTopN
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- Total reviews analyzed: **%s**\n", sentiment.FormatCount(st.Total))
	fmt.Fprintf(&b, "- Average sentiment: **%.3f**  | Positive share (>0.2): **%.1f%%**  | Negative share (<-0.2): **%.1f%%**\n\n",
		st.MeanSentiment, st.PositiveShare*100, st.NegativeShare*100)

	if len(aggs) == 0 {
		b.WriteString("_No confident tasks found at current threshold._\n")
		return b.String()
	}

	b.WriteString("## Top Priorities (confidence-weighted)\n")
	for i, a := range aggs {
		if i == topN {
			break
		}
		fmt.Fprintf(&b, "- **%s**: %d items (avg conf %.2f)\n", a.Category, a.Count, a.AvgConfidence)
		if a.Examples != "" {
			fmt.Fprintf(&b, "  - Examples: %s\n", a.Examples)
		}
	}
	return b.String()
}

// Render formats markdown for the terminal. style is a glamour style name
// or path; empty selects one from the terminal background.
func Render(md, style string) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(renderWidth)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStylePath(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}

// Result is the outcome of a report run.
type Result struct {
	Markdown string
	Path     string
	KPIs     KPIs
}

// Run reads sentiment_results.csv, insights_aggregate.csv and, when
// present, task_examples.csv from cfg.AnalysisDir and writes dev_report.md.
func Run(cfg types.ReportConfig, w io.Writer) (Result, error) {
	rows, err := sentiment.ReadCSV(filepath.Join(cfg.AnalysisDir, sentiment.ResultsFile))
	if err != nil {
		return Result{}, err
	}
	aggs, err := insights.ReadAggregateCSV(filepath.Join(cfg.AnalysisDir, insights.AggregateFile))
	if err != nil {
		return Result{}, err
	}
	insights.SortAggregates(aggs)

	var tasks []types.Task
	tasksPath := filepath.Join(cfg.AnalysisDir, insights.TasksFile)
	if _, err := os.Stat(tasksPath); err == nil {
		if tasks, err = insights.ReadTasksCSV(tasksPath); err != nil {
			return Result{}, err
		}
	}

	md := Build(cfg.Title, sentiment.Summarize(rows), aggs, cfg.TopN)
	path := filepath.Join(cfg.AnalysisDir, File)
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return Result{}, fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(w, "wrote %s\n", path)
	return Result{Markdown: md, Path: path, KPIs: ComputeKPIs(rows, tasks)}, nil
}
