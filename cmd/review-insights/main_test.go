// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/review-insights/internal/insights"
	"github.com/pdiddy/review-insights/internal/secrets"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "review-insights dev\n", out)
}

func TestAggregateCommand(t *testing.T) {
	dir := t.TempDir()
	lines := []string{
		`{"original_review":"crashes","task":"Fix crash on startup","confidence":0.9}`,
		`{"original_review":"fine","task":"None","confidence":0.0}`,
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "review_summaries.jsonl"),
		[]byte(strings.Join(lines, "\n")+"\n"), 0o644))

	out, err := execute(t, "aggregate", "--analysis-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Top category: stability/crashes")
	assert.FileExists(t, filepath.Join(dir, insights.AggregateFile))
	assert.FileExists(t, filepath.Join(dir, insights.TasksFile))
}

func TestSynthesizeHelpMatchesPrompt(t *testing.T) {
	prompt, err := insights.RenderSynthesisPrompt(nil)
	require.NoError(t, err)
	for _, want := range []string{"actionable themes", "sprint objectives", "executive summary"} {
		assert.Contains(t, prompt, want)
		assert.Contains(t, strings.Join(strings.Fields(synthesizeCmd.Long), " "), want)
	}
	assert.NotContains(t, synthesizeCmd.Long, "highlights")
}

func TestBindFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("max-things", 7, "")
	bindFlags(fs, "bindtest")
	assert.Equal(t, 7, viper.GetInt("bindtest.max-things"))

	require.NoError(t, fs.Set("max-things", "9"))
	assert.Equal(t, 9, viper.GetInt("bindtest.max-things"))
}

func TestAPIKeyFor(t *testing.T) {
	loadedSecrets = secrets.Set{
		secrets.AnthropicAPIKey: "sk-ant",
		secrets.GeminiAPIKey:    "gm-key",
	}
	t.Cleanup(func() { loadedSecrets = nil })

	assert.Equal(t, "sk-ant", apiKeyFor("claude", ""))
	assert.Equal(t, "gm-key", apiKeyFor("gemini", ""))
	assert.Equal(t, "explicit", apiKeyFor("claude", "explicit"))
	assert.Empty(t, apiKeyFor("ollama", ""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "a b", truncate("a\nb", 10))
}
