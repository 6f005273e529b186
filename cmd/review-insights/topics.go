package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-insights/internal/topics"
	"github.com/pdiddy/review-insights/pkg/types"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Extract positive and negative review topics",
	Long: `Topics keeps the English reviews from sentiment_results.csv, clusters
the positive and negative subsets with TF-IDF and KMeans, and writes the
top terms per cluster plus a recommended developer focus to
review_insights.txt.`,
	RunE: runTopics,
}

func init() {
	topicsCmd.Flags().Int("clusters", 8, "KMeans clusters per polarity")
	topicsCmd.Flags().Int("top-terms", 10, "terms reported per cluster")
	topicsCmd.Flags().Int("max-features", 6000, "TF-IDF vocabulary cap")
	topicsCmd.Flags().Int64("seed", 42, "KMeans seed")
	topicsCmd.Flags().String("title", "Review Insights", "report title")
	bindFlags(topicsCmd.Flags(), "topics")

	rootCmd.AddCommand(topicsCmd)
}

func runTopics(cmd *cobra.Command, args []string) error {
	cfg := types.TopicConfig{
		AnalysisDir: analysisDir(),
		Clusters:    viper.GetInt("topics.clusters"),
		TopTerms:    viper.GetInt("topics.top-terms"),
		MaxFeatures: viper.GetInt("topics.max-features"),
		Seed:        viper.GetInt64("topics.seed"),
		Title:       viper.GetString("topics.title"),
	}
	_, err := topics.Run(cfg, cmd.OutOrStdout())
	return err
}
