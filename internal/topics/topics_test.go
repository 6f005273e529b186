// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package topics

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/review-insights/internal/sentiment"
	"github.com/pdiddy/review-insights/pkg/types"
)

func TestIsEnglish(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"short", "great game", false},
		{"exactly twenty runes", "this is a game of it", false},
		{"english prose", "The servers crash every time I join a mission with friends.", true},
		{"cyrillic", "Отличная игра, всем советую поиграть с друзьями вечером", false},
		{"no stop words", "graphics graphics graphics graphics graphics", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsEnglish(tc.text))
		})
	}
}

func TestVectorizer_UnigramsAndBigrams(t *testing.T) {
	v := &Vectorizer{}
	xs := v.FitTransform([]string{"the servers crash", "servers lag"})

	assert.Equal(t, []string{"crash", "lag", "servers", "servers crash", "servers lag"}, v.Terms())
	require.Len(t, xs, 2)

	for _, x := range xs {
		var norm float64
		for _, w := range x.Val {
			norm += w * w
		}
		assert.InDelta(t, 1.0, norm, 1e-9)
	}
	// "servers" appears in both documents, so it weighs less than "crash".
	crash := xs[0].Val[0]
	servers := xs[0].Val[1]
	assert.Greater(t, crash, servers)
}

func TestVectorizer_MaxFeatures(t *testing.T) {
	v := &Vectorizer{MaxFeatures: 2, NGramMax: 1}
	v.Fit([]string{"lag lag lag crash crash fun", "lag crash bugs"})
	assert.Equal(t, []string{"crash", "lag"}, v.Terms())

	xs := v.Transform([]string{"fun bugs"})
	assert.Empty(t, xs[0].Idx)
}

func TestKMeans_SeparatesGroups(t *testing.T) {
	xs := []SparseVec{
		{Idx: []int{0}, Val: []float64{1}},
		{Idx: []int{0, 1}, Val: []float64{0.99, 0.1}},
		{Idx: []int{2}, Val: []float64{1}},
		{Idx: []int{1, 2}, Val: []float64{0.1, 0.99}},
	}

	cl := KMeans{K: 2, NInit: 5, Seed: 42}.Fit(xs, 3)
	require.Len(t, cl.Labels, 4)
	assert.Equal(t, cl.Labels[0], cl.Labels[1])
	assert.Equal(t, cl.Labels[2], cl.Labels[3])
	assert.NotEqual(t, cl.Labels[0], cl.Labels[2])
	assert.Less(t, cl.Inertia, 0.1)
}

func TestKMeans_ClampsAndDeterministic(t *testing.T) {
	xs := []SparseVec{
		{Idx: []int{0}, Val: []float64{1}},
		{Idx: []int{1}, Val: []float64{1}},
	}
	a := KMeans{K: 8, NInit: 3, Seed: 7}.Fit(xs, 2)
	b := KMeans{K: 8, NInit: 3, Seed: 7}.Fit(xs, 2)
	assert.Len(t, a.Centroids, 2)
	assert.Equal(t, a, b)

	assert.Equal(t, Clustering{}, KMeans{K: 3}.Fit(nil, 2))
}

func TestExtract(t *testing.T) {
	texts := []string{
		"servers crash constantly",
		"servers crash after patch",
		"crash servers again",
		"great music soundtrack",
		"music soundtrack amazing",
		"soundtrack music wonderful",
	}
	got := Extract(texts, types.TopicConfig{Clusters: 2, TopTerms: 3})
	require.Len(t, got, 2)
	joined := strings.Join(got, " | ")
	assert.Contains(t, joined, "crash")
	assert.Contains(t, joined, "music")
	for _, topic := range got {
		assert.LessOrEqual(t, len(strings.Split(topic, ", ")), 3)
	}

	assert.Nil(t, Extract(nil, types.TopicConfig{}))
}

func TestFocus(t *testing.T) {
	assert.Equal(t, "performance optimization / stability",
		Focus([]string{"game, fun", "servers, crash, lag"}))
	assert.Equal(t, "performance optimization / stability",
		Focus([]string{"FPS drops"}))
	assert.Equal(t, "gameplay balance and content depth",
		Focus([]string{"missions, progression"}))
	assert.Equal(t, "general polish and UX", Focus([]string{"price, refund"}))
	assert.Equal(t, "general polish and UX", Focus(nil))
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, Insights{
		Title:          "Helldivers 2",
		Total:          18000,
		MeanSentiment:  0.1234,
		PositiveShare:  0.5,
		NegativeShare:  0.25,
		PositiveTopics: []string{"fun, friends"},
		NegativeTopics: []string{"servers, crash"},
		Focus:          "performance optimization / stability",
	}))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Helldivers 2\n====="))
	assert.Contains(t, out, "Total reviews analyzed: 18,000")
	assert.Contains(t, out, "Average sentiment: 0.123")
	assert.Contains(t, out, "Positive share (>0.2): 50.0%")
	assert.Contains(t, out, "- fun, friends\n")
	assert.Contains(t, out, "- servers, crash\n")
	assert.Contains(t, out, "Next sprint should prioritize **performance optimization / stability**")
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	rows := []types.ScoredReview{
		{ReviewID: "1", Review: "The servers crash and the game is unplayable for me", Sentiment: -0.8},
		{ReviewID: "2", Review: "I love this game and the co-op with my friends", Sentiment: 0.9},
		{ReviewID: "3", Review: "короткий отзыв на русском языке без английского", Sentiment: 0.5},
		{ReviewID: "4", Review: "It is a game that exists on my computer", Sentiment: 0},
	}
	require.NoError(t, sentiment.WriteCSV(filepath.Join(dir, sentiment.ResultsFile), rows))

	var buf bytes.Buffer
	in, err := Run(types.TopicConfig{AnalysisDir: dir, Clusters: 2}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, in.Total)
	assert.Len(t, in.PositiveTopics, 1)
	assert.Len(t, in.NegativeTopics, 1)
	assert.Equal(t, "performance optimization / stability", in.Focus)

	report, err := os.ReadFile(filepath.Join(dir, ReportFile))
	require.NoError(t, err)
	assert.Contains(t, string(report), "Review Insights")
	assert.Contains(t, buf.String(), "remaining English reviews: 3")
}

func TestRun_MissingInput(t *testing.T) {
	_, err := Run(types.TopicConfig{AnalysisDir: t.TempDir()}, &bytes.Buffer{})
	assert.Error(t, err)
}
