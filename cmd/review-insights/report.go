// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-insights/internal/report"
	"github.com/pdiddy/review-insights/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the developer report and show the dashboard KPIs",
	Long: `Report combines sentiment_results.csv with the aggregate ranking into
dev_report.md: headline sentiment figures followed by the top priorities
with their example tasks. The report and the KPI row are printed to the
terminal unless --quiet is given.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("title", "Developer Report", "report title")
	reportCmd.Flags().Int("top", 5, "number of priorities listed")
	reportCmd.Flags().String("style", "", "glamour style name or path (default: detect from terminal)")
	reportCmd.Flags().Bool("quiet", false, "only write the file")
	bindFlags(reportCmd.Flags(), "report")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := types.ReportConfig{
		AnalysisDir: analysisDir(),
		Title:       viper.GetString("report.title"),
		TopN:        viper.GetInt("report.top"),
	}
	out := cmd.OutOrStdout()
	res, err := report.Run(cfg, out)
	if err != nil {
		return err
	}
	if viper.GetBool("report.quiet") {
		return nil
	}

	rendered, err := report.Render(res.Markdown, viper.GetString("report.style"))
	if err != nil {
		return err
	}
	fmt.Fprint(out, rendered)
	for _, line := range res.KPIs.Lines() {
		fmt.Fprintln(out, line)
	}
	return nil
}
