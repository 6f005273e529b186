// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads Steam reviews page by page and stores them as
// line-delimited JSON.
package fetch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/pdiddy/review-insights/internal/httputil"
	"github.com/pdiddy/review-insights/pkg/types"
)

// MaxPerPage is the largest page the storefront endpoint serves.
const MaxPerPage = 100

const defaultMaxAttempts = 5

// reviewsBase is the storefront reviews endpoint. Declared as a var so
// tests can substitute an httptest server.
var reviewsBase = "https://store.steampowered.com/appreviews/"

// Page is one decoded response from the reviews endpoint. Reviews are
// kept as raw JSON so every field Steam sends is written to disk.
type Page struct {
	Success      int               `json:"success"`
	QuerySummary *json.RawMessage  `json:"query_summary,omitempty"`
	Reviews      []json.RawMessage `json:"reviews"`
	Cursor       string            `json:"cursor"`
}

// StopReason explains why FetchAll stopped paging.
type StopReason string

const (
	StopMaxReached     StopReason = "max reviews reached"
	StopCursorRepeated StopReason = "cursor repeated"
	StopEmptyPage      StopReason = "no more reviews"
	StopLastPage       StopReason = "last page"
	StopExists         StopReason = "output exists"
)

// Result holds the outcome of a FetchAll run.
type Result struct {
	Pages      int
	Reviews    int
	Stop       StopReason
	OutputPath string
	MetaPath   string
}

// Skipped reports whether the run did nothing because output already existed.
func (r Result) Skipped() bool {
	return r.Stop == StopExists
}

// Client fetches review pages for one app.
type Client struct {
	HTTP *http.Client
	Cfg  types.FetchConfig
	Log  *zap.Logger
}

// OutputPath returns the reviews JSONL path for appID under outDir.
func OutputPath(outDir string, appID int) string {
	return filepath.Join(outDir, fmt.Sprintf("reviews_%d.jsonl", appID))
}

// MetaPath returns the query-summary JSON path for appID under outDir.
func MetaPath(outDir string, appID int) string {
	return filepath.Join(outDir, fmt.Sprintf("meta_%d.json", appID))
}

func (c *Client) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

func (c *Client) pageURL(cursor string) string {
	offtopic := "0"
	if c.Cfg.FilterOfftopic {
		offtopic = "1"
	}
	filter := c.Cfg.Filter
	if filter == "" {
		filter = "recent"
	}
	language := c.Cfg.Language
	if language == "" {
		language = "english"
	}
	params := url.Values{
		"json":                     {"1"},
		"filter":                   {filter},
		"language":                 {language},
		"review_type":              {"all"},
		"purchase_type":            {"all"},
		"filter_offtopic_activity": {offtopic},
		"num_per_page":             {strconv.Itoa(MaxPerPage)},
		"cursor":                   {cursor},
	}
	return reviewsBase + strconv.Itoa(c.Cfg.AppID) + "?" + params.Encode()
}

// FetchPage retrieves one page at cursor. HTTP 429, transport or decode
// errors, and bodies whose success flag is not 1 are retried with
// httputil.Backoff up to the configured attempt count.
func (c *Client) FetchPage(ctx context.Context, cursor string) (*Page, error) {
	attempts := c.Cfg.MaxRetries
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	log := c.logger()

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		page, err := c.fetchOnce(ctx, cursor)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		log.Debug("page fetch failed", zap.String("cursor", cursor), zap.Int("attempt", attempt+1), zap.Error(err))
		if err := httputil.Sleep(ctx, httputil.Backoff(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, cursor string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(cursor), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.Cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.Cfg.UserAgent)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reviews request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("reviews endpoint returned HTTP %d", resp.StatusCode)
	}

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding reviews page: %w", err)
	}
	if page.Success != 1 {
		return nil, fmt.Errorf("reviews endpoint reported success=%d", page.Success)
	}
	return &page, nil
}

// FetchAll pages through the app's reviews and writes them to
// OutputPath(cfg.OutDir, cfg.AppID), one JSON object per line. The first
// page's query summary is written to MetaPath. An existing output file is
// left untouched unless cfg.Overwrite is set.
//
// Reviews are written to a temporary file that is renamed into place only
// after the last page, so a failed run never leaves a partial output that
// a later run would mistake for a finished one.
func (c *Client) FetchAll(ctx context.Context, w io.Writer) (Result, error) {
	cfg := c.Cfg
	res := Result{
		OutputPath: OutputPath(cfg.OutDir, cfg.AppID),
		MetaPath:   MetaPath(cfg.OutDir, cfg.AppID),
	}

	if _, err := os.Stat(res.OutputPath); err == nil && !cfg.Overwrite {
		fmt.Fprintf(w, "skipped %s (already exists, use --overwrite to refetch)\n", res.OutputPath)
		res.Stop = StopExists
		return res, nil
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return res, fmt.Errorf("creating output directory: %w", err)
	}

	tmpPath := res.OutputPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return res, fmt.Errorf("creating %s: %w", tmpPath, err)
	}

	meta, err := c.writePages(ctx, f, &res, w)
	if err == nil {
		if err = f.Sync(); err != nil {
			err = fmt.Errorf("syncing %s: %w", tmpPath, err)
		}
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing %s: %w", tmpPath, cerr)
	}
	if err == nil {
		if err = os.Rename(tmpPath, res.OutputPath); err != nil {
			err = fmt.Errorf("renaming %s: %w", tmpPath, err)
		}
	}
	if err != nil {
		os.Remove(tmpPath)
		return res, err
	}

	if meta != nil {
		if err := writeMeta(res.MetaPath, meta); err != nil {
			c.logger().Warn("writing query summary", zap.String("path", res.MetaPath), zap.Error(err))
		}
	}

	fmt.Fprintf(w, "\ndone: %d reviews saved to %s (%s)\n", res.Reviews, res.OutputPath, res.Stop)
	return res, nil
}

// writePages runs the paging loop, writing each review as one line to dst.
// It returns the first page's query summary, if any.
func (c *Client) writePages(ctx context.Context, dst io.Writer, res *Result, w io.Writer) (json.RawMessage, error) {
	out := bufio.NewWriter(dst)

	maxReviews := c.Cfg.MaxReviews
	if maxReviews <= 0 {
		maxReviews = 80000
	}

	var meta json.RawMessage
	cursor := "*"
	seen := make(map[string]bool)

	for {
		if res.Reviews >= maxReviews {
			res.Stop = StopMaxReached
			break
		}
		if seen[cursor] {
			res.Stop = StopCursorRepeated
			break
		}
		seen[cursor] = true

		page, err := c.FetchPage(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", res.Pages+1, err)
		}
		res.Pages++

		if len(page.Reviews) == 0 {
			res.Stop = StopEmptyPage
			break
		}

		for _, rv := range page.Reviews {
			if _, err := out.Write(rv); err != nil {
				return nil, fmt.Errorf("writing review: %w", err)
			}
			if err := out.WriteByte('\n'); err != nil {
				return nil, fmt.Errorf("writing review: %w", err)
			}
		}
		res.Reviews += len(page.Reviews)
		fmt.Fprintf(w, "fetched page %d (%d reviews, %d total)\n", res.Pages, len(page.Reviews), res.Reviews)

		if res.Pages == 1 && page.QuerySummary != nil {
			meta = *page.QuerySummary
		}

		cursor = page.Cursor
		if cursor == "" || len(page.Reviews) < MaxPerPage {
			res.Stop = StopLastPage
			break
		}

		if err := httputil.Sleep(ctx, c.Cfg.PageDelay); err != nil {
			return nil, err
		}
	}

	if err := out.Flush(); err != nil {
		return nil, fmt.Errorf("writing reviews: %w", err)
	}
	return meta, nil
}

// writeMeta stores the query summary indented, with every field Steam sent.
func writeMeta(path string, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("formatting query summary: %w", err)
	}
	buf.WriteByte('\n')
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadReviews streams the reviews JSONL at path and calls fn for each
// decoded record. Blank lines are ignored; a malformed line is an error
// naming its line number.
func ReadReviews(path string, fn func(types.Review) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening reviews %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var rv types.Review
		if err := json.Unmarshal(b, &rv); err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if err := fn(rv); err != nil {
			return err
		}
	}
	return sc.Err()
}
