// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-insights/internal/insights"
	"github.com/pdiddy/review-insights/internal/summarize"
	"github.com/pdiddy/review-insights/pkg/types"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Rank developer task categories from the review summaries",
	Long: `Aggregate reads review_summaries.jsonl, keeps the actionable tasks at
or above the confidence threshold, assigns each to a category, and ranks
the categories by task count and mean confidence. It writes
insights_aggregate.csv (the ranking) and task_examples.csv (the accepted
tasks) to the analysis directory.`,
	RunE: runAggregate,
}

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Write a narrative developer report with a language model",
	Long: `Synthesize counts the most frequent tasks in review_summaries.jsonl and
asks a language model for a markdown report: the 3-5 most critical
actionable themes, concrete sprint objectives for developers, and a
one-paragraph executive summary. The report is written to
aggregate_report.md.`,
	RunE: runSynthesize,
}

func init() {
	aggregateCmd.Flags().String("summaries", "", "summary JSONL (default <analysis-dir>/review_summaries.jsonl)")
	aggregateCmd.Flags().Float64("min-conf", 0.6, "only count tasks at or above this confidence")
	aggregateCmd.Flags().Int("examples", 3, "example tasks kept per category")
	aggregateCmd.Flags().String("categories", "", "YAML file replacing the built-in category patterns")
	bindFlags(aggregateCmd.Flags(), "aggregate")

	addAIFlags(synthesizeCmd.Flags())
	synthesizeCmd.Flags().String("summaries", "", "summary JSONL (default <analysis-dir>/review_summaries.jsonl)")
	bindFlags(synthesizeCmd.Flags(), "synthesize")

	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(synthesizeCmd)
}

func runAggregate(cmd *cobra.Command, args []string) error {
	cfg := types.AggregateConfig{
		SummariesPath:  viper.GetString("aggregate.summaries"),
		AnalysisDir:    analysisDir(),
		MinConfidence:  viper.GetFloat64("aggregate.min-conf"),
		MaxExamples:    viper.GetInt("aggregate.examples"),
		CategoriesFile: viper.GetString("aggregate.categories"),
	}
	_, err := insights.Run(cfg, cmd.OutOrStdout())
	return err
}

func runSynthesize(cmd *cobra.Command, args []string) error {
	cfg := aiConfig("synthesize")
	backend, err := summarize.NewBackend(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	dir := analysisDir()
	path := viper.GetString("synthesize.summaries")
	if path == "" {
		path = summarize.OutputPath(dir)
	}
	report, err := insights.Synthesize(cmd.Context(), backend, path, dir, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), report)
	return nil
}
