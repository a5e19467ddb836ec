// Package cmd implements the cscjobs command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"csc-scraper/config"
	"csc-scraper/db"
	"csc-scraper/logging"
	"csc-scraper/pipeline"
	"csc-scraper/sheets"

	"github.com/spf13/cobra"
)

// Flag variables shared by every subcommand.
var (
	flagConfig   string
	flagDataDir  string
	flagLogLevel string
	flagLogFile  string
	flagPages    int
	flagHeadless bool
	flagCSV      bool
	flagFetcher  string
)

// state opened in PersistentPreRunE; closeState releases it once the
// command finishes, whether or not it succeeded
var (
	cfg      *config.Config
	database *db.DB
	closers  []io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "cscjobs",
	Short: "cscjobs harvests job postings from the CSC career board",
	Long: `cscjobs scrapes the Civil Service Commission career board, downloads the
PDF posting of every job, extracts the posting fields and joins them with the
board listings into a processed dataset.

Usage:
  cscjobs run [flags]
  cscjobs scrape --pages 3 --csv
  cscjobs download --fetcher http`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	cobra.OnFinalize(closeState)

	f := rootCmd.PersistentFlags()
	f.StringVar(&flagConfig, "config", "config.yaml", "Path to the YAML config (optional)")
	f.StringVar(&flagDataDir, "data-dir", "", "Root directory for raw, interim and processed data")
	f.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&flagLogFile, "log-file", "", "Also write JSON logs to this rotating file")
	f.IntVar(&flagPages, "pages", -1, "Number of board pages to scrape (-1 for all)")
	f.BoolVar(&flagHeadless, "headless", true, "Run the browser headless")
	f.BoolVar(&flagCSV, "csv", false, "Also write CSV files")
	f.StringVar(&flagFetcher, "fetcher", "", "How to download PDFs: rod or http")
}

// Execute runs the root command. Ctrl-C cancels the running stage.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if pipeline.IsInterrupted(err) {
		slog.Warn("interrupted by user")
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	logCloser, err := logging.Setup(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	closers = append(closers, logCloser)

	database, err = db.NewDB(cfg.Database.Driver, cfg.DatabaseDSN())
	if err != nil {
		return err
	}
	closers = append(closers, database)
	slog.Debug("opened database", "driver", cfg.Database.Driver)
	return nil
}

// closeState closes what setup opened, newest first. The log file goes last
// so close errors still reach it.
func closeState() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			slog.Warn("failed to close", "err", err)
		}
	}
	closers = nil
	database = nil
}

// applyFlags lets explicitly set flags override the config file and environment
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		c.Paths.DataDir = flagDataDir
	}
	if flags.Changed("log-level") {
		c.Log.Level = flagLogLevel
	}
	if flags.Changed("log-file") {
		c.Log.File = flagLogFile
	}
	if flags.Changed("pages") {
		c.Scrape.MaxPages = flagPages
	}
	if flags.Changed("headless") {
		c.Scrape.Headless = flagHeadless
	}
	if flags.Changed("csv") {
		c.Scrape.WriteCSV = flagCSV
		c.Output.CSV = flagCSV
	}
	if flags.Changed("fetcher") {
		c.Download.Fetcher = flagFetcher
	}
	return c.Validate()
}

// newPipeline wires the stages to the opened config and database
func newPipeline(ctx context.Context) *pipeline.Pipeline {
	opts := pipeline.Options{Progress: os.Stderr}

	if cfg.Output.SpreadsheetURL != "" {
		id := sheets.ExtractSpreadsheetID(cfg.Output.SpreadsheetURL)
		w, err := sheets.NewWriter(ctx, id, cfg.Output.Credentials)
		if err != nil {
			slog.Warn("Google Sheets output disabled", "err", err)
		} else {
			opts.Sheets = w
		}
	}

	return pipeline.New(cfg, database, opts)
}
