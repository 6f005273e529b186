// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-insights/internal/secrets"
	"github.com/pdiddy/review-insights/internal/summarize"
	"github.com/pdiddy/review-insights/pkg/types"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize each review with a language model",
	Long: `Summarize sends every review in sentiment_results.csv to a language
model and appends one JSON record per review (summary, likes, dislikes,
task, confidence) to review_summaries.jsonl. Reviews that already have a
successful record are skipped, so an interrupted run resumes where it
stopped. Unparseable output is kept as an error record and retried on
the next run.

Backends: ollama (local server, default), ollama-cli (runs "ollama run"),
claude (needs anthropic-api-key), gemini (needs gemini-api-key).`,
	RunE: runSummarize,
}

func init() {
	addAIFlags(summarizeCmd.Flags())
	summarizeCmd.Flags().Int("workers", 6, "concurrent model calls")
	summarizeCmd.Flags().Int("limit", 0, "summarize at most this many pending reviews (0 = all)")
	bindFlags(summarizeCmd.Flags(), "summarize")

	rootCmd.AddCommand(summarizeCmd)
}

// addAIFlags registers the model selection flags shared by the stages
// that call a language model.
func addAIFlags(fs *pflag.FlagSet) {
	fs.String("backend", summarize.BackendOllama, "model backend: ollama, ollama-cli, claude or gemini")
	fs.String("model", "", "model name (default depends on backend)")
	fs.String("endpoint", "", "Ollama server URL (default http://localhost:11434)")
	fs.String("api-key", "", "API key for hosted backends (default from the secrets directory)")
	fs.Int("retries", 3, "retries per failed call")
	fs.Duration("call-timeout", 0, "timeout for one model call (default 90s)")
}

// aiConfig reads the model flags bound under prefix.
func aiConfig(prefix string) types.AIConfig {
	backend := viper.GetString(prefix + ".backend")
	return types.AIConfig{
		Backend:     backend,
		Model:       viper.GetString(prefix + ".model"),
		Endpoint:    viper.GetString(prefix + ".endpoint"),
		APIKey:      apiKeyFor(backend, viper.GetString(prefix+".api-key")),
		MaxRetries:  viper.GetInt(prefix + ".retries"),
		CallTimeout: viper.GetDuration(prefix + ".call-timeout"),
	}
}

// apiKeyFor returns explicit when set, otherwise the secret for the
// backend's provider.
func apiKeyFor(backend, explicit string) string {
	if explicit != "" {
		return explicit
	}
	switch backend {
	case summarize.BackendClaude:
		return loadedSecrets.Get(secrets.AnthropicAPIKey)
	case summarize.BackendGemini:
		return loadedSecrets.Get(secrets.GeminiAPIKey)
	}
	return ""
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg := types.SummarizeConfig{
		AIConfig:    aiConfig("summarize"),
		AnalysisDir: analysisDir(),
		Workers:     viper.GetInt("summarize.workers"),
		Limit:       viper.GetInt("summarize.limit"),
	}

	backend, err := summarize.NewBackend(cmd.Context(), cfg.AIConfig, logger)
	if err != nil {
		return err
	}

	result, err := summarize.Run(cmd.Context(), backend, cfg, logger, cmd.OutOrStdout())
	fmt.Fprintf(cmd.OutOrStdout(), "\nsummarized %d, skipped %d, failed %d (%d total)\n",
		result.Summarized, result.Skipped, result.Failed, result.Total())
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d review(s) produced error records; re-run to retry them", result.Failed)
	}
	return nil
}
