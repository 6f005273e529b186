// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/review-insights/internal/sentiment"
	"github.com/pdiddy/review-insights/pkg/types"
)

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	backoffBase = time.Millisecond
	os.Exit(m.Run())
}

// funcBackend adapts a function to Backend.
type funcBackend func(ctx context.Context, prompt string) (string, error)

func (f funcBackend) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// reviewOf extracts the review text embedded in a rendered prompt.
func reviewOf(prompt string) string {
	_, after, _ := strings.Cut(prompt, "HERE IS THE REVIEW:\n")
	review, _, _ := strings.Cut(after, "\nEND REVIEW.")
	return review
}

func writeScores(t *testing.T, dir string, reviews ...string) {
	t.Helper()
	rows := make([]types.ScoredReview, len(reviews))
	for i, r := range reviews {
		rows[i] = types.ScoredReview{ReviewID: fmt.Sprint(i), Review: r}
	}
	require.NoError(t, sentiment.WriteCSV(filepath.Join(dir, sentiment.ResultsFile), rows))
}

func readRecords(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var recs []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec), sc.Text())
		recs = append(recs, rec)
	}
	require.NoError(t, sc.Err())
	return recs
}

func TestRun_SummarizesAndResumes(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	writeScores(t, dir, "servers crash", "great fun", "", "lag in missions")

	var calls int32
	backend := funcBackend(func(_ context.Context, prompt string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return fmt.Sprintf(`{"original_review": "paraphrased", "task": "handle %s", "confidence": 0.9}`, reviewOf(prompt)), nil
	})

	cfg := types.SummarizeConfig{AnalysisDir: dir, Workers: 2}
	var buf bytes.Buffer
	sum, err := Run(context.Background(), backend, cfg, zaptest.NewLogger(t), &buf)
	require.NoError(t, err)
	assert.Equal(t, Summary{Summarized: 3}, sum)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Contains(t, buf.String(), "summarized 3/3")

	recs := readRecords(t, OutputPath(dir))
	require.Len(t, recs, 3)
	reviews := map[string]string{}
	for _, r := range recs {
		reviews[r["original_review"].(string)] = r["task"].(string)
	}
	assert.Equal(t, map[string]string{
		"servers crash":   "handle servers crash",
		"great fun":       "handle great fun",
		"lag in missions": "handle lag in missions",
	}, reviews)

	// Second run finds everything done.
	sum, err = Run(context.Background(), backend, cfg, nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, Summary{Skipped: 3}, sum)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRun_FailuresBecomeErrorRecordsAndRetryLater(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	writeScores(t, dir, "broken output", "call fails", "fine")

	backend := funcBackend(func(_ context.Context, prompt string) (string, error) {
		switch reviewOf(prompt) {
		case "broken output":
			return "no json at all", nil
		case "call fails":
			return "", errors.New("connection refused")
		}
		return `{"task": None, "confidence": 0.0}`, nil
	})

	cfg := types.SummarizeConfig{AnalysisDir: dir, AIConfig: types.AIConfig{MaxRetries: 1}}
	sum, err := Run(context.Background(), backend, cfg, zaptest.NewLogger(t), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, Summary{Summarized: 1, Failed: 2}, sum)
	assert.True(t, sum.HasFailures())
	assert.Equal(t, 3, sum.Total())

	errs := map[string]string{}
	for _, r := range readRecords(t, OutputPath(dir)) {
		if e, ok := r["error"].(string); ok {
			errs[r["original_review"].(string)] = e
		}
	}
	assert.Equal(t, map[string]string{
		"broken output": ErrNoJSON,
		"call fails":    ErrCallFailed,
	}, errs)

	// Error records are not treated as done.
	done, err := Completed(OutputPath(dir))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"fine": true}, done)
}

func TestRun_Limit(t *testing.T) {
	dir := t.TempDir()
	writeScores(t, dir, "a review", "b review", "c review")

	backend := funcBackend(func(context.Context, string) (string, error) { return `{"task":"x"}`, nil })
	sum, err := Run(context.Background(), backend, types.SummarizeConfig{AnalysisDir: dir, Limit: 2}, nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Summarized)
}

func TestRun_BoundedConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	var reviews []string
	for i := 0; i < 20; i++ {
		reviews = append(reviews, fmt.Sprintf("review number %d", i))
	}
	writeScores(t, dir, reviews...)

	var mu sync.Mutex
	inFlight, peak := 0, 0
	backend := funcBackend(func(context.Context, string) (string, error) {
		mu.Lock()
		inFlight++
		peak = max(peak, inFlight)
		mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return `{"task":"x"}`, nil
	})

	sum, err := Run(context.Background(), backend, types.SummarizeConfig{AnalysisDir: dir, Workers: 3}, nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 20, sum.Summarized)
	assert.LessOrEqual(t, peak, 3)
}

func TestRun_MissingScores(t *testing.T) {
	_, err := Run(context.Background(), funcBackend(nil), types.SummarizeConfig{AnalysisDir: t.TempDir()}, nil, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestCallWithRetry(t *testing.T) {
	var n int
	backend := funcBackend(func(context.Context, string) (string, error) {
		n++
		if n < 3 {
			return "", fmt.Errorf("transient %d", n)
		}
		return "ok", nil
	})
	out, err := callWithRetry(context.Background(), backend, "p", 3, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, n)

	n = -10
	_, err = callWithRetry(context.Background(), backend, "p", 2, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
}

func TestCallWithRetry_PerCallTimeout(t *testing.T) {
	backend := funcBackend(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	_, err := callWithRetry(context.Background(), backend, "p", 1, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCompleted_MissingFile(t *testing.T) {
	done, err := Completed(filepath.Join(t.TempDir(), "none.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, done)
}
