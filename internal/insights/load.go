// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package insights

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pdiddy/review-insights/internal/summarize"
	"github.com/pdiddy/review-insights/pkg/types"
)

// Record is one decoded summary record. Model output varies too much in
// shape for a fixed struct, so fields are read through accessors.
type Record map[string]any

// LoadSummaries reads a summary JSONL file. Besides one record per line it
// accepts pretty-printed records spread over several lines: trimmed lines
// accumulate until one ends with "}". A block that fails to decode is
// retried once with code fences stripped and bare literals rewritten, and
// dropped if it still fails. The second return value counts dropped blocks.
func LoadSummaries(path string) ([]Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var (
		recs    []Record
		dropped int
		buf     strings.Builder
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(strings.ToValidUTF8(sc.Text(), "�"))
		if line == "" {
			continue
		}
		buf.WriteString(line)
		if !strings.HasSuffix(line, "}") {
			continue
		}
		if rec, ok := decodeBlock(buf.String()); ok {
			recs = append(recs, rec)
		} else {
			dropped++
		}
		buf.Reset()
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return recs, dropped, nil
}

func decodeBlock(block string) (Record, bool) {
	var rec Record
	if err := json.Unmarshal([]byte(block), &rec); err == nil {
		return rec, true
	}
	s := strings.ReplaceAll(block, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = summarize.FixBareLiterals(s)
	if err := json.Unmarshal([]byte(s), &rec); err == nil {
		return rec, true
	}
	return nil, false
}

// Text returns the first of keys holding a non-empty string, trimmed.
func (r Record) Text(keys ...string) string {
	for _, k := range keys {
		if s, ok := r[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// Float returns the first of keys set to a value other than null, false,
// 0 or "", converted to a number: numbers as is, true as 1, numeric
// strings parsed. A value that does not convert reads as 0 and later keys
// are not consulted.
func (r Record) Float(keys ...string) float64 {
	for _, k := range keys {
		if v := r[k]; truthy(v) {
			return toFloat(v)
		}
	}
	return 0
}

func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	return true
}

func toFloat(v any) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case bool:
		if v {
			return 1
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return 0
}

// Review returns the review text a record was produced from.
func (r Record) Review() string { return r.Text("original_review", "review") }

// Task returns the suggested developer task.
func (r Record) Task() string { return r.Text("task") }

// Confidence returns the task confidence.
func (r Record) Confidence() float64 { return r.Float("confidence", "self_confidence") }

// ErrorKind returns the error kind of an error record.
func (r Record) ErrorKind() string { return r.Text("error") }

// Actionable reports whether task carries a developer action.
func Actionable(task string) bool {
	return task != "" && !strings.EqualFold(task, "none")
}

// ExtractTasks keeps the records with an actionable task at or above
// minConf and assigns each a category.
func ExtractTasks(recs []Record, cat *Categorizer, minConf float64) []types.Task {
	var tasks []types.Task
	for _, r := range recs {
		task := r.Task()
		conf := r.Confidence()
		if !Actionable(task) || conf < minConf {
			continue
		}
		tasks = append(tasks, types.Task{
			Category:       cat.Categorize(task),
			Task:           task,
			Confidence:     conf,
			OriginalReview: r.Review(),
		})
	}
	return tasks
}
