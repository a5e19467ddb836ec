package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"csc-scraper/fetcher"
)

// Summary collects the outcome of every stage of one run
type Summary struct {
	Started    time.Time
	Duration   time.Duration
	Scrape     ScrapeResult
	ScrapeErr  error
	Download   fetcher.DownloadStats
	Extract    ExtractResult
	Preprocess PreprocessResult
}

// Run executes scrape, download, extract and preprocess in order.
// A failed scrape is logged and the later stages still run on whatever
// listings are stored; any other stage error ends the run.
func (p *Pipeline) Run(ctx context.Context) (summary Summary, err error) {
	summary.Started = time.Now()
	defer func() { summary.Duration = time.Since(summary.Started) }()

	scrape, err := p.Scrape(ctx)
	summary.Scrape = scrape
	if err != nil {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		slog.Error("scrape stopped early, continuing with stored listings", "err", err)
		summary.ScrapeErr = err
	}

	if summary.Download, err = p.Download(ctx); err != nil {
		return summary, fmt.Errorf("download: %w", err)
	}
	if summary.Extract, err = p.Extract(ctx); err != nil {
		return summary, fmt.Errorf("extract: %w", err)
	}
	if summary.Preprocess, err = p.Preprocess(ctx); err != nil {
		return summary, fmt.Errorf("preprocess: %w", err)
	}
	return summary, nil
}

// Text renders the summary as a short multi-line report
func (s Summary) Text(board string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s run finished in %s\n", board, s.Duration.Round(time.Second))
	fmt.Fprintf(&b, "Pages scraped: %d (%d listings)\n", s.Scrape.Pages, s.Scrape.Listings)
	if s.ScrapeErr != nil {
		fmt.Fprintf(&b, "Scrape stopped early: %v\n", s.ScrapeErr)
	}
	fmt.Fprintf(&b, "PDFs downloaded: %d, skipped: %d, failed: %d\n",
		s.Download.Downloaded, s.Download.Skipped, s.Download.Failed)
	fmt.Fprintf(&b, "Postings inserted: %d (%d duplicates)\n", s.Extract.Inserted, s.Extract.Duplicates)
	fmt.Fprintf(&b, "Processed records: %d", s.Preprocess.Records)
	if s.Preprocess.SheetURL != "" {
		fmt.Fprintf(&b, "\nSheet: %s", s.Preprocess.SheetURL)
	}
	return b.String()
}

// IsInterrupted reports whether err comes from the user cancelling the run
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}
