// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/review-insights/internal/httputil"
	"github.com/pdiddy/review-insights/pkg/types"
)

func TestMain(m *testing.M) {
	httputil.RetryBaseDelay = time.Millisecond
	httputil.RetryJitter = 0
	os.Exit(m.Run())
}

// pageBody builds a reviews response with n reviews numbered from start.
func pageBody(start, n int, cursor string, withSummary bool) string {
	reviews := make([]string, n)
	for i := range reviews {
		id := start + i
		reviews[i] = fmt.Sprintf(`{"recommendationid":"%d","review":"review %d","voted_up":true,"votes_up":%d,"author":{"steamid":"s%d","playtime_forever":120}}`, id, id, id%3, id)
	}
	summary := ""
	if withSummary {
		summary = `"query_summary":{"num_reviews":100,"review_score":8,"review_score_desc":"Very Positive","total_positive":90,"total_negative":10,"total_reviews":100},`
	}
	return fmt.Sprintf(`{"success":1,%s"cursor":%q,"reviews":[%s]}`, summary, cursor, strings.Join(reviews, ","))
}

func newTestClient(t *testing.T, ts *httptest.Server, cfg types.FetchConfig) *Client {
	t.Helper()
	old := reviewsBase
	reviewsBase = ts.URL + "/appreviews/"
	t.Cleanup(func() { reviewsBase = old })

	if cfg.AppID == 0 {
		cfg.AppID = 1808500
	}
	if cfg.OutDir == "" {
		cfg.OutDir = t.TempDir()
	}
	return &Client{HTTP: ts.Client(), Cfg: cfg, Log: zaptest.NewLogger(t)}
}

func TestFetchPage_QueryParameters(t *testing.T) {
	var got *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		fmt.Fprint(w, pageBody(0, 1, "next", false))
	}))
	defer ts.Close()

	c := newTestClient(t, ts, types.FetchConfig{AppID: 42, FilterOfftopic: true, Language: "all"})
	page, err := c.FetchPage(context.Background(), "*")
	require.NoError(t, err)

	assert.Equal(t, "/appreviews/42", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "1", q.Get("json"))
	assert.Equal(t, "recent", q.Get("filter"))
	assert.Equal(t, "all", q.Get("language"))
	assert.Equal(t, "1", q.Get("filter_offtopic_activity"))
	assert.Equal(t, "100", q.Get("num_per_page"))
	assert.Equal(t, "*", q.Get("cursor"))
	assert.Equal(t, "next", page.Cursor)
	assert.Len(t, page.Reviews, 1)
}

func TestFetchPage_RetriesRateLimitAndUnsuccessful(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			fmt.Fprint(w, `{"success":2}`)
		case 3:
			fmt.Fprint(w, `not json`)
		default:
			fmt.Fprint(w, pageBody(0, 2, "c", false))
		}
	}))
	defer ts.Close()

	c := newTestClient(t, ts, types.FetchConfig{})
	page, err := c.FetchPage(context.Background(), "*")
	require.NoError(t, err)
	assert.Len(t, page.Reviews, 2)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestFetchPage_ExhaustsAttempts(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := newTestClient(t, ts, types.FetchConfig{MaxRetries: 3})
	_, err := c.FetchPage(context.Background(), "*")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchAll_PagesUntilShortPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("cursor") {
		case "*":
			fmt.Fprint(w, pageBody(0, 100, "p2", true))
		case "p2":
			fmt.Fprint(w, pageBody(100, 100, "p3", false))
		case "p3":
			fmt.Fprint(w, pageBody(200, 7, "p4", false))
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	}))
	defer ts.Close()

	c := newTestClient(t, ts, types.FetchConfig{})
	var buf bytes.Buffer
	res, err := c.FetchAll(context.Background(), &buf)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 207, res.Reviews)
	assert.Equal(t, StopLastPage, res.Stop)

	var ids []string
	require.NoError(t, ReadReviews(res.OutputPath, func(rv types.Review) error {
		ids = append(ids, rv.RecommendationID)
		return nil
	}))
	require.Len(t, ids, 207)
	assert.Equal(t, "0", ids[0])
	assert.Equal(t, "206", ids[206])

	meta, err := os.ReadFile(res.MetaPath)
	require.NoError(t, err)
	var qs types.QuerySummary
	require.NoError(t, json.Unmarshal(meta, &qs))
	assert.Equal(t, "Very Positive", qs.ReviewScoreDesc)
	assert.Equal(t, 100, qs.TotalReviews)
}

func TestFetchAll_StopsOnRepeatedCursor(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pageBody(0, 100, "same", false))
	}))
	defer ts.Close()

	c := newTestClient(t, ts, types.FetchConfig{})
	res, err := c.FetchAll(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	// "*" then "same" once; the second "same" is the loop guard.
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, StopCursorRepeated, res.Stop)
}

func TestFetchAll_StopsAtMax(t *testing.T) {
	var n int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := atomic.AddInt32(&n, 1)
		fmt.Fprint(w, pageBody(int(i)*100, 100, fmt.Sprintf("c%d", i), false))
	}))
	defer ts.Close()

	c := newTestClient(t, ts, types.FetchConfig{MaxReviews: 150})
	res, err := c.FetchAll(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 200, res.Reviews)
	assert.Equal(t, StopMaxReached, res.Stop)
}

func TestFetchAll_EmptyPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":1,"cursor":"x","reviews":[]}`)
	}))
	defer ts.Close()

	c := newTestClient(t, ts, types.FetchConfig{})
	res, err := c.FetchAll(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, StopEmptyPage, res.Stop)
	assert.Equal(t, 0, res.Reviews)
	_, err = os.Stat(res.MetaPath)
	assert.True(t, os.IsNotExist(err))
}

func TestFetchAll_ExistingOutputSkipped(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, pageBody(0, 1, "", false))
	}))
	defer ts.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "reviews_1808500.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	c := newTestClient(t, ts, types.FetchConfig{OutDir: dir})
	var buf bytes.Buffer
	res, err := c.FetchAll(context.Background(), &buf)
	require.NoError(t, err)
	assert.True(t, res.Skipped())
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Contains(t, buf.String(), "--overwrite")

	c.Cfg.Overwrite = true
	res, err = c.FetchAll(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reviews)
}

func TestFetchAll_FailureLeavesNoOutput(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "p2" && failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		switch r.URL.Query().Get("cursor") {
		case "*":
			fmt.Fprint(w, pageBody(0, 100, "p2", true))
		default:
			fmt.Fprint(w, pageBody(100, 5, "", false))
		}
	}))
	defer ts.Close()

	c := newTestClient(t, ts, types.FetchConfig{MaxRetries: 2})
	res, err := c.FetchAll(context.Background(), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching page 2")
	assert.NoFileExists(t, res.OutputPath)
	assert.NoFileExists(t, res.OutputPath+".tmp")
	assert.NoFileExists(t, res.MetaPath)

	// A rerun without --overwrite fetches again instead of skipping.
	failing.Store(false)
	res, err = c.FetchAll(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	assert.False(t, res.Skipped())
	assert.Equal(t, 105, res.Reviews)
	assert.FileExists(t, res.OutputPath)
	assert.NoFileExists(t, res.OutputPath+".tmp")
}

func TestFetchAll_MetaKeepsUnknownFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":1,"query_summary":{"num_reviews":1,"review_score_desc":"Mixed","extra_field":"kept"},"cursor":"","reviews":[{"recommendationid":"1","review":"ok"}]}`)
	}))
	defer ts.Close()

	c := newTestClient(t, ts, types.FetchConfig{})
	res, err := c.FetchAll(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)

	meta, err := os.ReadFile(res.MetaPath)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(meta, &fields))
	assert.Equal(t, "kept", fields["extra_field"])
	assert.Equal(t, "Mixed", fields["review_score_desc"])
}

func TestReadReviews_MalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"review\":\"ok\"}\n\n{broken\n"), 0o644))

	var n int
	err := ReadReviews(path, func(types.Review) error { n++; return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":3:")
	assert.Equal(t, 1, n)
}
