package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-insights/internal/sentiment"
	"github.com/pdiddy/review-insights/pkg/types"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score review sentiment with VADER",
	Long: `Score reads a fetched reviews file, computes VADER polarity
scores for every non-empty review, and writes sentiment_results.csv and
summary.txt to the analysis directory.`,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().String("input", "", "reviews JSONL file (required, e.g. out_reviews/reviews_<appid>.jsonl)")
	bindFlags(scoreCmd.Flags(), "score")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	input := viper.GetString("score.input")
	if input == "" {
		return fmt.Errorf("--input is required")
	}

	cfg := types.SentimentConfig{
		InputPath:   input,
		AnalysisDir: analysisDir(),
	}
	rows, err := sentiment.ScoreFile(sentiment.NewVaderScorer(), cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "wrote %s\n\n", filepath.Join(cfg.AnalysisDir, sentiment.ResultsFile))
	fmt.Fprintln(out, strings.Join(sentiment.Summarize(rows).Lines(), "\n"))
	return nil
}
