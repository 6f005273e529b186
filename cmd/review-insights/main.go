// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the review-insights CLI. Each
// pipeline stage is a subcommand: fetch, score, topics, summarize,
// aggregate, synthesize, report and store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/review-insights/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// Set in PersistentPreRunE before any stage runs.
var (
	logger        = zap.NewNop()
	loadedSecrets secrets.Set
)

var rootCmd = &cobra.Command{
	Use:   "review-insights",
	Short: "Turn game reviews into ranked developer priorities",
	Long: `review-insights runs a batch pipeline over a snapshot of Steam reviews:
fetch the reviews, score their sentiment, extract topics, summarize each
review with a language model, aggregate the suggested tasks into a
confidence-weighted category ranking, and report on the result.

Each stage is a subcommand that reads and writes flat files in the
analysis directory, so stages compose by invocation order and can be
re-run at any time.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(viper.GetBool("verbose"))
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		logger = log

		s, err := secrets.Load(viper.GetString("secrets-dir"), logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if keys := s.Keys(); len(keys) > 0 {
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./review-insights.yaml or ~/.config/review-insights/review-insights.yaml)")
	pf.Bool("verbose", false, "log debug diagnostics to stderr")
	pf.String("analysis-dir", "analysis_out", "directory for stage outputs")
	pf.String("secrets-dir", ".secrets", "directory of API key files")
	bindFlags(pf, "")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("review-insights")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "review-insights"))
		}
	}

	viper.SetEnvPrefix("REVIEW_INSIGHTS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindFlags binds every flag in fs to the viper key "<prefix>.<name>" (or
// "<name>" at the root) so values may come from flags, the config file or
// the environment.
func bindFlags(fs *pflag.FlagSet, prefix string) {
	fs.VisitAll(func(f *pflag.Flag) {
		key := f.Name
		if prefix != "" {
			key = prefix + "." + f.Name
		}
		if err := viper.BindPFlag(key, f); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", f.Name, err))
		}
	})
}

// newLogger builds the production zap logger. verbose lowers the level to
// debug.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func analysisDir() string {
	return viper.GetString("analysis-dir")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
