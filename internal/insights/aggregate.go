// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package insights turns per-review summary records into a ranked,
// confidence-weighted list of developer priorities.
//
// Tasks below the confidence threshold or without a concrete action are
// dropped, the rest are bucketed into categories by regular expression,
// and categories are ranked by task count, then mean confidence, then
// name, so repeated runs over the same input produce identical output.
package insights

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/review-insights/internal/summarize"
	"github.com/pdiddy/review-insights/pkg/types"
)

const (
	// AggregateFile is the category ranking inside the analysis directory.
	AggregateFile = "insights_aggregate.csv"

	// TasksFile lists every accepted task inside the analysis directory.
	TasksFile = "task_examples.csv"
)

const (
	defaultMinConfidence = 0.6
	defaultMaxExamples   = 3
	exampleSep           = "; "
)

var (
	aggregateHeader = []string{"category", "count", "avg_confidence", "examples"}
	tasksHeader     = []string{"category", "task", "confidence", "original_review"}
)

// Aggregate groups tasks by category. Examples holds up to maxExamples
// distinct tasks (compared case-insensitively) in descending confidence,
// ties in input order. The result is ranked by count, then mean
// confidence, both descending, then category name.
func Aggregate(tasks []types.Task, maxExamples int) []types.CategoryAggregate {
	if maxExamples <= 0 {
		maxExamples = defaultMaxExamples
	}

	groups := make(map[string][]types.Task)
	var order []string
	for _, t := range tasks {
		if _, ok := groups[t.Category]; !ok {
			order = append(order, t.Category)
		}
		groups[t.Category] = append(groups[t.Category], t)
	}

	aggs := make([]types.CategoryAggregate, 0, len(order))
	for _, cat := range order {
		g := groups[cat]
		var sum float64
		for _, t := range g {
			sum += t.Confidence
		}
		aggs = append(aggs, types.CategoryAggregate{
			Category:      cat,
			Count:         len(g),
			AvgConfidence: sum / float64(len(g)),
			Examples:      strings.Join(examples(g, maxExamples), exampleSep),
		})
	}

	SortAggregates(aggs)
	return aggs
}

// SortAggregates orders aggregates by count and mean confidence, both
// descending, then by category name.
func SortAggregates(aggs []types.CategoryAggregate) {
	sort.SliceStable(aggs, func(i, j int) bool {
		a, b := aggs[i], aggs[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.AvgConfidence != b.AvgConfidence {
			return a.AvgConfidence > b.AvgConfidence
		}
		return a.Category < b.Category
	})
}

func examples(g []types.Task, n int) []string {
	sorted := append([]types.Task(nil), g...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	seen := make(map[string]bool)
	var out []string
	for _, t := range sorted {
		key := strings.ToLower(t.Task)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t.Task)
		if len(out) == n {
			break
		}
	}
	return out
}

// Recommendation renders the top-ranked category as the data-driven focus.
func Recommendation(aggs []types.CategoryAggregate) string {
	if len(aggs) == 0 {
		return "No confident tasks found at or above the threshold."
	}
	top := aggs[0]
	return fmt.Sprintf("=== Recommended Dev Focus (data-driven) ===\n"+
		"- Top category: %s  | items: %d  | avg confidence: %.2f\n"+
		"- Example tasks: %s", top.Category, top.Count, top.AvgConfidence, top.Examples)
}

// Result is the outcome of an aggregate run.
type Result struct {
	Records    int
	Dropped    int
	Errors     int
	Tasks      []types.Task
	Aggregates []types.CategoryAggregate
}

// Run loads the summary records, extracts and aggregates the confident
// tasks, and writes insights_aggregate.csv and task_examples.csv. Both
// files are written, header only, when no task qualifies.
func Run(cfg types.AggregateConfig, w io.Writer) (Result, error) {
	minConf := cfg.MinConfidence
	if minConf <= 0 {
		minConf = defaultMinConfidence
	}
	summariesPath := cfg.SummariesPath
	if summariesPath == "" {
		summariesPath = summarize.OutputPath(cfg.AnalysisDir)
	}

	cats := DefaultCategories()
	if cfg.CategoriesFile != "" {
		var err error
		if cats, err = LoadCategories(cfg.CategoriesFile); err != nil {
			return Result{}, err
		}
	}
	categorizer, err := NewCategorizer(cats)
	if err != nil {
		return Result{}, err
	}

	recs, dropped, err := LoadSummaries(summariesPath)
	if err != nil {
		return Result{}, err
	}
	res := Result{Records: len(recs), Dropped: dropped}
	for _, r := range recs {
		if r.ErrorKind() != "" {
			res.Errors++
		}
	}
	res.Tasks = ExtractTasks(recs, categorizer, minConf)
	res.Aggregates = Aggregate(res.Tasks, cfg.MaxExamples)

	if err := os.MkdirAll(cfg.AnalysisDir, 0o755); err != nil {
		return res, fmt.Errorf("creating analysis directory: %w", err)
	}
	aggPath := filepath.Join(cfg.AnalysisDir, AggregateFile)
	tasksPath := filepath.Join(cfg.AnalysisDir, TasksFile)
	if err := WriteAggregateCSV(aggPath, res.Aggregates); err != nil {
		return res, err
	}
	if err := WriteTasksCSV(tasksPath, res.Tasks); err != nil {
		return res, err
	}

	fmt.Fprintf(w, "loaded %d records (%d error records, %d unreadable blocks)\n", res.Records, res.Errors, res.Dropped)
	fmt.Fprintf(w, "accepted %d tasks at confidence >= %.2f\n", len(res.Tasks), minConf)
	fmt.Fprintln(w, Recommendation(res.Aggregates))
	fmt.Fprintf(w, "wrote %s and %s\n", aggPath, tasksPath)
	return res, nil
}

// WriteAggregateCSV writes the category ranking.
func WriteAggregateCSV(path string, aggs []types.CategoryAggregate) error {
	rows := make([][]string, len(aggs))
	for i, a := range aggs {
		rows[i] = []string{a.Category, strconv.Itoa(a.Count), formatFloat(a.AvgConfidence), a.Examples}
	}
	return writeCSV(path, aggregateHeader, rows)
}

// WriteTasksCSV writes the accepted tasks.
func WriteTasksCSV(path string, tasks []types.Task) error {
	rows := make([][]string, len(tasks))
	for i, t := range tasks {
		rows[i] = []string{t.Category, t.Task, formatFloat(t.Confidence), t.OriginalReview}
	}
	return writeCSV(path, tasksHeader, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// ReadAggregateCSV loads insights_aggregate.csv. A missing examples column
// is tolerated.
func ReadAggregateCSV(path string) ([]types.CategoryAggregate, error) {
	recs, col, err := readCSV(path, "category", "count", "avg_confidence")
	if err != nil {
		return nil, err
	}
	aggs := make([]types.CategoryAggregate, 0, len(recs))
	for i, rec := range recs {
		count, err := strconv.Atoi(field(rec, col, "count"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad count: %w", path, i+1, err)
		}
		avg, err := strconv.ParseFloat(field(rec, col, "avg_confidence"), 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad avg_confidence: %w", path, i+1, err)
		}
		aggs = append(aggs, types.CategoryAggregate{
			Category:      field(rec, col, "category"),
			Count:         count,
			AvgConfidence: avg,
			Examples:      field(rec, col, "examples"),
		})
	}
	return aggs, nil
}

// ReadTasksCSV loads task_examples.csv.
func ReadTasksCSV(path string) ([]types.Task, error) {
	recs, col, err := readCSV(path, "category", "task", "confidence")
	if err != nil {
		return nil, err
	}
	tasks := make([]types.Task, 0, len(recs))
	for i, rec := range recs {
		conf, err := strconv.ParseFloat(field(rec, col, "confidence"), 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad confidence: %w", path, i+1, err)
		}
		tasks = append(tasks, types.Task{
			Category:       field(rec, col, "category"),
			Task:           field(rec, col, "task"),
			Confidence:     conf,
			OriginalReview: field(rec, col, "original_review"),
		})
	}
	return tasks, nil
}

func readCSV(path string, required ...string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%s: empty file", path)
	}
	col := make(map[string]int, len(all[0]))
	for i, h := range all[0] {
		col[strings.TrimSpace(h)] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, nil, fmt.Errorf("%s must include %q column", path, name)
		}
	}
	return all[1:], col, nil
}

func field(rec []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
