// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-insights/internal/sentiment"
	"github.com/pdiddy/review-insights/internal/store"
	"github.com/pdiddy/review-insights/pkg/types"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Load the analysis tables into SQLite and drill down",
	Long: `Store keeps a SQLite snapshot of the score and aggregate outputs in
<analysis-dir>/index/insights.db. Use subcommands to refresh the snapshot,
query tasks by category, confidence or text, list the category ranking,
show the dashboard KPIs, or export the snapshot.`,
}

// --- ingest subcommand ---

var storeIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Replace the snapshot with the current stage outputs",
	Long: `Ingest reads sentiment_results.csv, task_examples.csv and
insights_aggregate.csv and replaces the stored snapshot in one
transaction. Each ingest is recorded as a run.`,
	RunE: runStoreIngest,
}

func runStoreIngest(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	_, err = s.Ingest(cmd.Context(), cmd.OutOrStdout())
	return err
}

// --- tasks subcommand ---

var storeTasksCmd = &cobra.Command{
	Use:   "tasks [query]",
	Short: "List tasks, highest confidence first",
	Long: `Tasks lists accepted developer tasks from the snapshot. Filter by
category (repeatable), minimum confidence, or a text query matched
against the task and its review. The catch-all "other" category is left
out unless --include-other is given.`,
	RunE: runStoreTasks,
}

func runStoreTasks(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	tasks, err := s.Tasks(cmd.Context(), queryOptsFromFlags("store.tasks", args))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if viper.GetBool("store.tasks.json") {
		return writeJSON(out, tasks)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks found.")
		return nil
	}

	fmt.Fprintf(out, "%-4s  %-24s  %-5s  %-50s  %s\n", "Rank", "Category", "Conf", "Task", "Review")
	fmt.Fprintln(out, strings.Repeat("-", 120))
	for i, t := range tasks {
		fmt.Fprintf(out, "%-4d  %-24s  %.2f   %-50s  %s\n",
			i+1, truncate(t.Category, 24), t.Confidence, truncate(t.Task, 50), truncate(t.OriginalReview, 30))
	}
	fmt.Fprintf(out, "\n%d tasks\n", len(tasks))
	return nil
}

// --- categories subcommand ---

var storeCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Show the category ranking",
	RunE:  runStoreCategories,
}

func runStoreCategories(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	cats, err := s.Categories(cmd.Context(), viper.GetBool("store.categories.include-other"))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if viper.GetBool("store.categories.json") {
		return writeJSON(out, cats)
	}
	if len(cats) == 0 {
		fmt.Fprintln(out, "No categories found.")
		return nil
	}
	fmt.Fprintf(out, "%-4s  %-24s  %-6s  %-8s  %s\n", "Rank", "Category", "Count", "AvgConf", "Examples")
	fmt.Fprintln(out, strings.Repeat("-", 110))
	for i, c := range cats {
		fmt.Fprintf(out, "%-4d  %-24s  %-6d  %-8.2f  %s\n",
			i+1, truncate(c.Category, 24), c.Count, c.AvgConfidence, truncate(c.Examples, 60))
	}
	return nil
}

// --- kpis subcommand ---

var storeKPIsCmd = &cobra.Command{
	Use:   "kpis",
	Short: "Show the headline dashboard figures",
	RunE:  runStoreKPIs,
}

func runStoreKPIs(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ov, err := s.Overview(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Total analyzed reviews: %s\n", sentiment.FormatCount(ov.Reviews))
	fmt.Fprintf(out, "Average sentiment: %.3f\n", ov.AvgSentiment)
	fmt.Fprintf(out, "Unique categories: %d\n", ov.Categories)
	fmt.Fprintf(out, "Total actionable tasks: %s\n", sentiment.FormatCount(ov.Tasks))
	fmt.Fprintf(out, "Sentiment buckets: neg %d | mixed %d | pos %d\n",
		ov.Buckets[types.BucketNegative], ov.Buckets[types.BucketMixed], ov.Buckets[types.BucketPositive])
	return nil
}

// --- export subcommand ---

var storeExportCmd = &cobra.Command{
	Use:   "export [query]",
	Short: "Export the snapshot to YAML or JSON",
	Long: `Export writes the category ranking and the tasks matching the filter
flags to <analysis-dir>/index/export.yaml or export.json.`,
	RunE: runStoreExport,
}

func runStoreExport(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	path, err := s.Export(cmd.Context(), viper.GetString("store.export.format"), queryOptsFromFlags("store.export", args))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
	return nil
}

// --- runs subcommand ---

var storeRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded ingests, newest first",
	RunE:  runStoreRuns,
}

func runStoreRuns(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.Runs(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded. Run 'review-insights store ingest' first.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(out, "%s  %s  %d reviews, %d tasks, %d categories\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Reviews, r.Tasks, r.Categories)
	}
	return nil
}

// --- shared helpers ---

func openStore() (*store.Store, error) {
	return store.Open(types.StoreConfig{
		AnalysisDir: analysisDir(),
		MaxResults:  viper.GetInt("store.max-results"),
	})
}

func queryOptsFromFlags(prefix string, args []string) store.QueryOptions {
	query := viper.GetString(prefix + ".query")
	if query == "" && len(args) > 0 {
		query = strings.Join(args, " ")
	}
	return store.QueryOptions{
		Query:         query,
		Categories:    viper.GetStringSlice(prefix + ".category"),
		MinConfidence: viper.GetFloat64(prefix + ".min-conf"),
		IncludeOther:  viper.GetBool(prefix + ".include-other"),
		MaxResults:    viper.GetInt(prefix + ".limit"),
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-3]) + "..."
}

func init() {
	storeCmd.PersistentFlags().Int("max-results", 20, "default maximum number of query results")
	bindFlags(storeCmd.PersistentFlags(), "store")

	for _, c := range []*cobra.Command{storeTasksCmd, storeExportCmd} {
		c.Flags().String("query", "", "text matched against task and review")
		c.Flags().StringSlice("category", nil, "restrict to these categories (repeatable)")
		c.Flags().Float64("min-conf", 0, "minimum task confidence")
		c.Flags().Bool("include-other", false, `include the catch-all "other" category`)
	}
	storeTasksCmd.Flags().Int("limit", 0, "maximum results (0 = use --max-results)")
	storeTasksCmd.Flags().Bool("json", false, "output results as JSON")
	storeExportCmd.Flags().String("format", store.FormatYAML, "export format: yaml or json")
	storeCategoriesCmd.Flags().Bool("include-other", false, `include the catch-all "other" category`)
	storeCategoriesCmd.Flags().Bool("json", false, "output results as JSON")

	for _, c := range []*cobra.Command{storeIngestCmd, storeTasksCmd, storeCategoriesCmd, storeKPIsCmd, storeExportCmd, storeRunsCmd} {
		bindFlags(c.Flags(), "store."+c.Name())
		storeCmd.AddCommand(c)
	}

	rootCmd.AddCommand(storeCmd)
}
