// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-insights/internal/fetch"
	"github.com/pdiddy/review-insights/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultPageDelay = 500 * time.Millisecond
	defaultUserAgent = "review-insights/0.1"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download Steam reviews for an app",
	Long: `Fetch pages through the Steam storefront reviews feed with a cursor
and writes one review per line to out_reviews/reviews_<appid>.jsonl. The
first page's review totals go to meta_<appid>.json. An existing output
file is kept unless --overwrite is given.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Int("appid", 0, "Steam application ID (required)")
	fetchCmd.Flags().Int("max", 80000, "maximum number of reviews to fetch")
	fetchCmd.Flags().String("lang", "english", "review language filter: a Steam language name or all")
	fetchCmd.Flags().String("filter", "recent", "feed order: recent or updated")
	fetchCmd.Flags().Bool("offtopic", true, "filter off-topic review activity (review bombs)")
	fetchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 30s)")
	fetchCmd.Flags().Duration("delay", 0, "delay between pages (default 500ms)")
	fetchCmd.Flags().Int("retries", 5, "attempts per page")
	fetchCmd.Flags().String("out-dir", "out_reviews", "directory for the reviews file")
	fetchCmd.Flags().Bool("overwrite", false, "replace an existing reviews file")
	bindFlags(fetchCmd.Flags(), "fetch")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	appID := viper.GetInt("fetch.appid")
	if appID <= 0 {
		return fmt.Errorf("--appid is required")
	}

	timeout := viper.GetDuration("fetch.timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	delay := viper.GetDuration("fetch.delay")
	if delay == 0 {
		delay = defaultPageDelay
	}

	cfg := types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		AppID:          appID,
		MaxReviews:     viper.GetInt("fetch.max"),
		Language:       viper.GetString("fetch.lang"),
		Filter:         viper.GetString("fetch.filter"),
		FilterOfftopic: viper.GetBool("fetch.offtopic"),
		PageDelay:      delay,
		MaxRetries:     viper.GetInt("fetch.retries"),
		OutDir:         viper.GetString("fetch.out-dir"),
		Overwrite:      viper.GetBool("fetch.overwrite"),
	}

	client := &fetch.Client{
		HTTP: &http.Client{Timeout: cfg.Timeout},
		Cfg:  cfg,
		Log:  logger,
	}
	_, err := client.FetchAll(cmd.Context(), cmd.OutOrStdout())
	return err
}
