// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize asks a language model for a structured summary of
// each review and appends the normalized records to a JSONL file. Runs
// resume: reviews already summarized in the output are skipped.
package summarize

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/review-insights/internal/sentiment"
	"github.com/pdiddy/review-insights/pkg/types"
)

// OutputFile is the summary JSONL inside the analysis directory.
const OutputFile = "review_summaries.jsonl"

const (
	defaultWorkers     = 6
	defaultCallTimeout = 90 * time.Second
	defaultMaxRetries  = 3
	progressEvery      = 100
)

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// Summary holds counts from a summarize run.
type Summary struct {
	Summarized int
	Skipped    int
	Failed     int
}

// Total returns the number of reviews considered.
func (s Summary) Total() int {
	return s.Summarized + s.Skipped + s.Failed
}

// HasFailures reports whether any review produced an error record.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// OutputPath returns the summary JSONL path for an analysis directory.
func OutputPath(analysisDir string) string {
	return filepath.Join(analysisDir, OutputFile)
}

// Run summarizes every review in cfg.AnalysisDir/sentiment_results.csv that
// has no successful record in the output yet. Calls run on a pool of
// cfg.Workers goroutines; each record is appended as soon as it is ready.
// A failed call yields an error record and never aborts the run.
func Run(ctx context.Context, backend Backend, cfg types.SummarizeConfig, log *zap.Logger, w io.Writer) (Summary, error) {
	if log == nil {
		log = zap.NewNop()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	rows, err := sentiment.ReadCSV(filepath.Join(cfg.AnalysisDir, sentiment.ResultsFile))
	if err != nil {
		return Summary{}, err
	}

	outPath := OutputPath(cfg.AnalysisDir)
	done, err := Completed(outPath)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	var pending []string
	for _, r := range rows {
		text := strings.TrimSpace(r.Review)
		if text == "" {
			continue
		}
		if done[text] {
			summary.Skipped++
			continue
		}
		pending = append(pending, text)
	}
	if cfg.Limit > 0 && len(pending) > cfg.Limit {
		pending = pending[:cfg.Limit]
	}
	fmt.Fprintf(w, "%d reviews pending, %d already summarized\n", len(pending), summary.Skipped)
	if len(pending) == 0 {
		return summary, nil
	}

	f, err := os.OpenFile(outPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return summary, fmt.Errorf("opening %s: %w", outPath, err)
	}
	defer f.Close()

	var (
		mu       sync.Mutex
		writeErr error
	)
	emit := func(line string, failed bool) {
		mu.Lock()
		defer mu.Unlock()
		if _, err := f.WriteString(line + "\n"); err != nil && writeErr == nil {
			writeErr = fmt.Errorf("writing %s: %w", outPath, err)
		}
		if failed {
			summary.Failed++
		} else {
			summary.Summarized++
		}
		if n := summary.Summarized + summary.Failed; n%progressEvery == 0 || n == len(pending) {
			fmt.Fprintf(w, "summarized %d/%d\n", n, len(pending))
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for _, review := range pending {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			line, failed := summarizeOne(ctx, backend, review, cfg.AIConfig, log)
			if ctx.Err() != nil && failed {
				// Cancelled mid-call: leave the review pending for the next run.
				return nil
			}
			emit(line, failed)
			return nil
		})
	}
	g.Wait()

	if writeErr != nil {
		return summary, writeErr
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, f.Close()
}

// summarizeOne produces the record line for one review and reports
// whether it is an error record.
func summarizeOne(ctx context.Context, backend Backend, review string, cfg types.AIConfig, log *zap.Logger) (string, bool) {
	prompt, err := RenderPrompt(review)
	if err != nil {
		return withReview(errorRecord(ErrCallFailed, err.Error()), review), true
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	raw, err := callWithRetry(ctx, backend, prompt, maxRetries, timeout)
	if err != nil {
		kind := ErrCallFailed
		if errors.Is(err, context.DeadlineExceeded) {
			kind = ErrCallTimeout
		}
		log.Warn("summarize call failed", zap.String("kind", kind), zap.Error(err))
		return withReview(errorRecord(kind, err.Error()), review), true
	}

	line := withReview(Normalize(raw), review)
	failed := isErrorRecord(line)
	if failed {
		log.Debug("unparseable model output", zap.String("review", preview(review)))
	}
	return line, failed
}

// callWithRetry calls the backend with exponential backoff. Each attempt
// gets its own timeout.
func callWithRetry(ctx context.Context, backend Backend, prompt string, maxRetries int, timeout time.Duration) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		out, err := backend.Generate(callCtx, prompt)
		cancel()
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// withReview sets original_review on a record line to the review text the
// record was produced from, so resume matches exactly.
func withReview(line, review string) string {
	var obj map[string]any
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		return line
	}
	obj["original_review"] = review
	return compact(obj)
}

func isErrorRecord(line string) bool {
	var rec struct {
		Error json.RawMessage `json:"error"`
	}
	return json.Unmarshal([]byte(line), &rec) != nil || hasValue(rec.Error)
}

// hasValue reports whether a raw JSON field is present and not null,
// false or an empty string.
func hasValue(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "false", `""`:
		return false
	}
	return true
}

// Completed returns the original_review texts of the successful records in
// a summary JSONL file. A missing file yields an empty set. Error records
// and unreadable lines do not count, so those reviews are retried.
func Completed(path string) (map[string]bool, error) {
	done := make(map[string]bool)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return done, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var rec struct {
			OriginalReview string          `json:"original_review"`
			Error          json.RawMessage `json:"error"`
		}
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			continue
		}
		if hasValue(rec.Error) || rec.OriginalReview == "" {
			continue
		}
		done[strings.TrimSpace(rec.OriginalReview)] = true
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return done, nil
}
