package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"csc-scraper/db"
	"csc-scraper/export"
	"csc-scraper/fetcher"
	"csc-scraper/filter"
	"csc-scraper/pdftext"
	"csc-scraper/scraper"
	"csc-scraper/transform"

	"github.com/schollz/progressbar/v3"
)

// ScrapeResult summarizes one pass over the board
type ScrapeResult struct {
	RunID        string
	Pages        int
	Listings     int
	SkippedPages int
}

// ExtractResult summarizes one pass over the PDF directory
type ExtractResult struct {
	Files      int
	Inserted   int
	Duplicates int
	Skipped    int
}

// PreprocessResult summarizes the processed dataset
type PreprocessResult struct {
	Join        transform.Stats
	Records     int // after filtering
	ParquetPath string
	CSVPath     string
	SheetURL    string
}

// Scrape walks the board and stores every listing. Pages already stored stay
// stored when a later page fails; the failure is recorded on the run.
func (p *Pipeline) Scrape(ctx context.Context) (ScrapeResult, error) {
	var result ScrapeResult

	if err := scraper.ValidateBoardName(p.cfg.Board.Name); err != nil {
		return result, err
	}

	s, err := p.boardScraper()
	if err != nil {
		return result, err
	}

	scraper.LogPublicIP(ctx, p.cfg.Scrape.IPLookupURL)

	runID, err := p.db.CreateRun(ctx, p.cfg.Board.Name)
	if err != nil {
		return result, err
	}
	result.RunID = runID
	slog.Info("scrape run started", "run_id", runID, "board", p.cfg.Board.Name)

	csvPath := filepath.Join(p.cfg.RawDir(), p.cfg.Board.Name+".csv")

	pages, scrapeErr := s.Scrape(ctx, p.cfg.Scrape.MaxPages, func(page int, html string) error {
		listings, err := p.boards.ParsePage(html)
		if err != nil {
			slog.Warn("skipping board page", "page", page, "err", err)
			result.SkippedPages++
			return nil
		}
		for i := range listings {
			listings[i].Page = page
			listings[i].RunID = runID
		}

		if err := p.db.SaveListings(ctx, runID, page, listings); err != nil {
			return err
		}
		if p.cfg.Scrape.WriteCSV {
			if err := export.AppendListingsCSV(csvPath, listings); err != nil {
				return err
			}
		}
		result.Listings += len(listings)
		return nil
	})
	result.Pages = pages

	// the run row has to be closed even when ctx is already cancelled
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.db.FinishRun(finishCtx, runID, result.Pages, result.Listings, scrapeErr); err != nil {
		slog.Error("failed to record run outcome", "run_id", runID, "err", err)
	}

	slog.Info("scrape finished", "run_id", runID, "pages", result.Pages, "listings", result.Listings)
	return result, scrapeErr
}

// Download fetches the PDF of every job ID seen on the board
func (p *Pipeline) Download(ctx context.Context) (fetcher.DownloadStats, error) {
	ids, err := p.db.ListingIDs(ctx)
	if err != nil {
		return fetcher.DownloadStats{}, fmt.Errorf("failed to load job ids: %w", err)
	}
	if len(ids) == 0 {
		slog.Warn("no listings stored yet, nothing to download")
		return fetcher.DownloadStats{}, nil
	}

	f, err := p.postingFetcher()
	if err != nil {
		return fetcher.DownloadStats{}, err
	}

	d := fetcher.NewDownloader(f, fetcher.DownloaderOptions{
		Dir:      p.cfg.PDFDir(),
		Delay:    p.cfg.Download.Delay,
		Validate: p.opts.Validate,
		Progress: p.opts.Progress,
	})

	slog.Info("downloading postings", "jobs", len(ids), "dir", p.cfg.PDFDir())
	stats, err := d.Run(ctx, ids)
	slog.Info("download finished", "downloaded", stats.Downloaded, "skipped", stats.Skipped, "failed", stats.Failed)
	return stats, err
}

// Extract parses every downloaded PDF and stores one posting per job ID.
// Unreadable files and already stored job IDs are logged and skipped.
func (p *Pipeline) Extract(ctx context.Context) (ExtractResult, error) {
	var result ExtractResult

	paths, err := pdftext.ListPDFs(p.cfg.PDFDir())
	if err != nil {
		return result, err
	}
	result.Files = len(paths)

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetWriter(p.opts.Progress),
		progressbar.OptionSetDescription("extracting"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Finish()

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		bar.Add(1)

		jobID, err := pdftext.JobIDFromPath(path)
		if err != nil {
			slog.Warn("skipping file", "path", path, "err", err)
			result.Skipped++
			continue
		}

		lines, err := p.opts.Reader.Lines(path)
		if err != nil {
			slog.Warn("skipping unreadable PDF", "job_id", jobID, "err", err)
			result.Skipped++
			continue
		}

		posting := p.postings.Parse(jobID, lines)
		if err := p.db.InsertPosting(ctx, posting); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				slog.Warn("duplicate job id, skipping", "job_id", jobID)
				result.Duplicates++
				continue
			}
			return result, err
		}
		result.Inserted++
	}

	slog.Info("extraction finished", "files", result.Files, "inserted", result.Inserted,
		"duplicates", result.Duplicates, "skipped", result.Skipped)
	return result, nil
}

// Preprocess joins listings with postings and writes the processed dataset
func (p *Pipeline) Preprocess(ctx context.Context) (PreprocessResult, error) {
	var result PreprocessResult

	listings, err := p.db.Listings(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load listings: %w", err)
	}
	postings, err := p.db.Postings(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load postings: %w", err)
	}

	records, stats := transform.Join(listings, postings)
	result.Join = stats
	slog.Info("joined listings with postings", "listings", stats.Listings, "postings", stats.Postings,
		"records", stats.Records, "unmatched", stats.Unmatched, "bad_dates", stats.BadDates)

	f := filter.NewFilter(p.criteria())
	if f.Active() {
		before := len(records)
		records = f.ApplyFilters(records)
		slog.Info("applied filters", "before", before, "after", len(records))
	}
	result.Records = len(records)

	base := filepath.Join(p.cfg.ProcessedDir(), p.cfg.Board.Name)
	if p.cfg.Output.Parquet {
		result.ParquetPath = base + ".parquet"
		if err := export.WriteParquet(result.ParquetPath, records); err != nil {
			return result, err
		}
		slog.Info("wrote parquet", "path", result.ParquetPath, "records", len(records))
	}
	if p.cfg.Output.CSV {
		result.CSVPath = base + ".csv"
		if err := export.WriteRecordsCSV(result.CSVPath, records); err != nil {
			return result, err
		}
		slog.Info("wrote csv", "path", result.CSVPath, "records", len(records))
	}

	if p.cfg.Output.PreviewRows > 0 {
		export.PrintTable(p.opts.Out, records, p.cfg.Output.PreviewRows)
	}

	if p.opts.Sheets != nil {
		sheetName := fmt.Sprintf("%s_%s", p.cfg.Board.Name, time.Now().Format("20060102_150405"))
		_, gid, err := p.opts.Sheets.CreateSheetAndWriteRecords(ctx, sheetName, records, p.cfg.Board.URL, p.filterInfo())
		if err != nil {
			// local outputs are already written
			slog.Warn("failed to publish to Google Sheets", "err", err)
		} else {
			result.SheetURL = p.opts.Sheets.SheetURL(gid)
		}
	}

	return result, nil
}

func (p *Pipeline) criteria() filter.Criteria {
	fc := p.cfg.Filters
	return filter.Criteria{
		OpenOnly:  fc.OpenOnly,
		Regions:   fc.Regions,
		MinSalary: fc.MinSalary,
		MaxSalary: fc.MaxSalary,
	}
}

// filterInfo describes the active filters for the sheet metadata row
func (p *Pipeline) filterInfo() string {
	fc := p.cfg.Filters
	var parts []string
	if fc.OpenOnly {
		parts = append(parts, "open only")
	}
	if len(fc.Regions) > 0 {
		parts = append(parts, "regions: "+strings.Join(fc.Regions, ", "))
	}
	if fc.MinSalary > 0 {
		parts = append(parts, fmt.Sprintf("min salary: %d", fc.MinSalary))
	}
	if fc.MaxSalary > 0 {
		parts = append(parts, fmt.Sprintf("max salary: %d", fc.MaxSalary))
	}
	return strings.Join(parts, "; ")
}
