// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package insights

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/pdiddy/review-insights/internal/summarize"
)

// ReportFile is the model-written narrative inside the analysis directory.
const ReportFile = "aggregate_report.md"

// DefaultTopTasks is the length of the task frequency list in the prompt.
const DefaultTopTasks = 20

// TaskCount is a lowercased task and the number of records suggesting it.
type TaskCount struct {
	Task  string
	Count int
}

// TopTasks counts the actionable tasks across recs, lowercased, and returns
// the n most frequent. Ties keep first-seen order.
func TopTasks(recs []Record, n int) []TaskCount {
	counts := make(map[string]int)
	var order []string
	for _, r := range recs {
		task := strings.ToLower(r.Task())
		if !Actionable(task) {
			continue
		}
		if counts[task] == 0 {
			order = append(order, task)
		}
		counts[task]++
	}
	out := make([]TaskCount, len(order))
	for i, t := range order {
		out[i] = TaskCount{Task: t, Count: counts[t]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

var synthesisPromptTmpl = template.Must(template.New("synthesis").Parse(`You are analyzing summarized Steam reviews for a video game.
Each entry contains what players like, dislike, and the dev task suggested.

TASK LIST (most common first):
{{range .}}- {{.Task}} ({{.Count}})
{{else}}- (no actionable tasks)
{{end}}
GOAL:
1. Synthesize the 3-5 most critical actionable themes.
2. Write concrete sprint objectives developers could implement.
3. Provide one-paragraph executive summary.

Respond in Markdown.
`))

// RenderSynthesisPrompt builds the developer-report prompt.
func RenderSynthesisPrompt(top []TaskCount) (string, error) {
	var buf bytes.Buffer
	if err := synthesisPromptTmpl.Execute(&buf, top); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Synthesize asks the backend for a narrative developer report over the
// most frequent tasks in the summaries at summariesPath and writes it to
// analysisDir/aggregate_report.md.
func Synthesize(ctx context.Context, backend summarize.Backend, summariesPath, analysisDir string, w io.Writer) (string, error) {
	recs, _, err := LoadSummaries(summariesPath)
	if err != nil {
		return "", err
	}
	prompt, err := RenderSynthesisPrompt(TopTasks(recs, DefaultTopTasks))
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	fmt.Fprintln(w, "generating aggregate developer report")
	report, err := backend.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generating report: %w", err)
	}
	report = strings.TrimSpace(report) + "\n"

	path := filepath.Join(analysisDir, ReportFile)
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(w, "report written to %s\n", path)
	return report, nil
}
