// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sentiment

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/review-insights/internal/fetch"
	"github.com/pdiddy/review-insights/pkg/types"
)

const (
	// ResultsFile is the per-review score table inside the analysis directory.
	ResultsFile = "sentiment_results.csv"

	// SummaryFile is the corpus statistics report inside the analysis directory.
	SummaryFile = "summary.txt"
)

// csvHeader is the column order of sentiment_results.csv.
var csvHeader = []string{
	"review_id", "review", "voted_up", "sentiment", "pos", "neu", "neg",
	"votes_up", "votes_funny", "playtime_forever",
}

// ScoreFile scores every non-empty review in the fetch JSONL at cfg.InputPath,
// writes cfg.AnalysisDir/sentiment_results.csv and summary.txt, and returns
// the scored rows.
func ScoreFile(scorer Scorer, cfg types.SentimentConfig, w io.Writer) ([]types.ScoredReview, error) {
	if err := os.MkdirAll(cfg.AnalysisDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating analysis directory: %w", err)
	}

	var rows []types.ScoredReview
	err := fetch.ReadReviews(cfg.InputPath, func(rv types.Review) error {
		text := strings.TrimSpace(rv.Text)
		if text == "" {
			return nil
		}
		s := scorer.PolarityScores(text)
		rows = append(rows, types.ScoredReview{
			ReviewID:        rv.RecommendationID,
			Review:          text,
			VotedUp:         rv.VotedUp,
			Sentiment:       s.Compound,
			Pos:             s.Pos,
			Neu:             s.Neu,
			Neg:             s.Neg,
			VotesUp:         rv.VotesUp,
			VotesFunny:      rv.VotesFunny,
			PlaytimeForever: rv.Author.PlaytimeForever,
		})
		if len(rows)%1000 == 0 {
			fmt.Fprintf(w, "scored %d reviews\n", len(rows))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resultsPath := filepath.Join(cfg.AnalysisDir, ResultsFile)
	if err := WriteCSV(resultsPath, rows); err != nil {
		return nil, err
	}

	summaryPath := filepath.Join(cfg.AnalysisDir, SummaryFile)
	if err := WriteSummary(summaryPath, Summarize(rows)); err != nil {
		return nil, err
	}

	fmt.Fprintf(w, "summary written to %s\n", summaryPath)
	fmt.Fprintf(w, "saved %d analyzed reviews to %s\n", len(rows), resultsPath)
	return rows, nil
}

// WriteCSV writes rows to path with the sentiment_results.csv header.
func WriteCSV(path string, rows []types.ScoredReview) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.ReviewID,
			r.Review,
			strconv.FormatBool(r.VotedUp),
			formatFloat(r.Sentiment),
			formatFloat(r.Pos),
			formatFloat(r.Neu),
			formatFloat(r.Neg),
			strconv.Itoa(r.VotesUp),
			strconv.Itoa(r.VotesFunny),
			strconv.Itoa(r.PlaytimeForever),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row %s: %w", r.ReviewID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}

// ReadCSV loads sentiment_results.csv. Columns are located by header name,
// so extra or reordered columns are tolerated; review and sentiment are
// required.
func ReadCSV(path string) ([]types.ScoredReview, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%s: empty file", path)
		}
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{"review", "sentiment"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("%s must include %q column", path, required)
		}
	}

	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var rows []types.ScoredReview
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		sent, err := strconv.ParseFloat(get(rec, "sentiment"), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad sentiment %q", len(rows)+1, get(rec, "sentiment"))
		}
		votedUp, _ := strconv.ParseBool(get(rec, "voted_up"))
		rows = append(rows, types.ScoredReview{
			ReviewID:        get(rec, "review_id"),
			Review:          get(rec, "review"),
			VotedUp:         votedUp,
			Sentiment:       sent,
			Pos:             parseFloat(get(rec, "pos")),
			Neu:             parseFloat(get(rec, "neu")),
			Neg:             parseFloat(get(rec, "neg")),
			VotesUp:         int(parseFloat(get(rec, "votes_up"))),
			VotesFunny:      int(parseFloat(get(rec, "votes_funny"))),
			PlaytimeForever: int(parseFloat(get(rec, "playtime_forever"))),
		})
	}
	return rows, nil
}

// Stats summarizes a scored corpus.
type Stats struct {
	Total            int
	MeanSentiment    float64
	PositiveShare    float64 // fraction with compound > 0.2
	NegativeShare    float64 // fraction with compound < -0.2
	MeanPos          float64
	MeanNeu          float64
	MeanNeg          float64
	MeanVotesUp      float64
	MeanVotesFunny   float64
	MedianPlaytimeHr float64
	StdDev           float64
	Min              float64
	Max              float64
}

// Summarize computes corpus statistics. An empty corpus yields zero Stats.
// StdDev is the sample standard deviation (n-1), zero for one review.
func Summarize(rows []types.ScoredReview) Stats {
	n := len(rows)
	if n == 0 {
		return Stats{}
	}
	st := Stats{Total: n, Min: math.Inf(1), Max: math.Inf(-1)}
	playtimes := make([]float64, n)
	var pos, neg int
	for i, r := range rows {
		st.MeanSentiment += r.Sentiment
		st.MeanPos += r.Pos
		st.MeanNeu += r.Neu
		st.MeanNeg += r.Neg
		st.MeanVotesUp += float64(r.VotesUp)
		st.MeanVotesFunny += float64(r.VotesFunny)
		st.Min = math.Min(st.Min, r.Sentiment)
		st.Max = math.Max(st.Max, r.Sentiment)
		playtimes[i] = float64(r.PlaytimeForever)
		if r.Sentiment > types.PositiveThreshold {
			pos++
		}
		if r.Sentiment < types.NegativeThreshold {
			neg++
		}
	}
	fn := float64(n)
	st.MeanSentiment /= fn
	st.MeanPos /= fn
	st.MeanNeu /= fn
	st.MeanNeg /= fn
	st.MeanVotesUp /= fn
	st.MeanVotesFunny /= fn
	st.PositiveShare = float64(pos) / fn
	st.NegativeShare = float64(neg) / fn
	st.MedianPlaytimeHr = median(playtimes) / 60

	if n > 1 {
		var ss float64
		for _, r := range rows {
			d := r.Sentiment - st.MeanSentiment
			ss += d * d
		}
		st.StdDev = math.Sqrt(ss / float64(n-1))
	}
	return st
}

// Lines renders the statistics as the summary.txt report lines.
func (st Stats) Lines() []string {
	return []string{
		fmt.Sprintf("Total analyzed reviews: %s", FormatCount(st.Total)),
		fmt.Sprintf("Average sentiment: %.3f", st.MeanSentiment),
		fmt.Sprintf("Positive share (>0.2): %.1f%%", st.PositiveShare*100),
		fmt.Sprintf("Negative share (<-0.2): %.1f%%", st.NegativeShare*100),
		"",
		fmt.Sprintf("Mean positive word ratio: %.3f", st.MeanPos),
		fmt.Sprintf("Mean neutral ratio: %.3f", st.MeanNeu),
		fmt.Sprintf("Mean negative ratio: %.3f", st.MeanNeg),
		"",
		fmt.Sprintf("Average upvotes per review: %.2f", st.MeanVotesUp),
		fmt.Sprintf("Average funny votes per review: %.2f", st.MeanVotesFunny),
		fmt.Sprintf("Median playtime before review (hrs): %.1f", st.MedianPlaytimeHr),
		"",
		fmt.Sprintf("Sentiment std deviation: %.3f (spread of opinions)", st.StdDev),
		fmt.Sprintf("Most negative review sentiment: %.3f", st.Min),
		fmt.Sprintf("Most positive review sentiment: %.3f", st.Max),
	}
}

// WriteSummary writes the statistics report to path.
func WriteSummary(path string, st Stats) error {
	return os.WriteFile(path, []byte(strings.Join(st.Lines(), "\n")+"\n"), 0o644)
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatCount formats n with comma separators (18000 -> "18,000").
func FormatCount(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
