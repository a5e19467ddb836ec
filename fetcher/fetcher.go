package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Fetcher interface defines the contract for downloading a posting
type Fetcher interface {
	// Fetch returns the raw PDF bytes of the posting with the given job ID
	Fetch(ctx context.Context, jobID string) ([]byte, error)
}

// DownloadStats counts the outcome of a download pass
type DownloadStats struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Downloader saves one <jobID>.pdf per job into a directory
type Downloader struct {
	fetcher  Fetcher
	dir      string
	delay    time.Duration
	validate func([]byte) error
	progress io.Writer
}

// DownloaderOptions configure a Downloader
type DownloaderOptions struct {
	Dir      string
	Delay    time.Duration      // pause after each fetched file
	Validate func([]byte) error // rejects bodies that aren't PDFs; nil accepts anything
	Progress io.Writer          // progress bar output; nil disables it
}

// NewDownloader creates a Downloader
func NewDownloader(f Fetcher, opts DownloaderOptions) *Downloader {
	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}
	return &Downloader{
		fetcher:  f,
		dir:      opts.Dir,
		delay:    opts.Delay,
		validate: opts.Validate,
		progress: progress,
	}
}

// Path returns where the PDF of jobID is stored
func (d *Downloader) Path(jobID string) string {
	return filepath.Join(d.dir, jobID+".pdf")
}

// Run downloads every job not already on disk. Per-job failures are logged
// and counted; only cancellation or an unusable directory stop the loop.
func (d *Downloader) Run(ctx context.Context, jobIDs []string) (DownloadStats, error) {
	var stats DownloadStats

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return stats, fmt.Errorf("failed to create pdf directory: %w", err)
	}

	bar := progressbar.NewOptions(len(jobIDs),
		progressbar.OptionSetWriter(d.progress),
		progressbar.OptionSetDescription("downloading"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Finish()

	for _, id := range jobIDs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		bar.Add(1)

		path := d.Path(id)
		if _, err := os.Stat(path); err == nil {
			slog.Info("pdf already exists, skipping", "job_id", id)
			stats.Skipped++
			continue
		}

		if err := d.download(ctx, id, path); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			slog.Warn("failed to download posting", "job_id", id, "err", err)
			stats.Failed++
			continue
		}
		stats.Downloaded++
		slog.Info("downloaded posting", "job_id", id, "path", path)

		if d.delay > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(d.delay):
			}
		}
	}

	return stats, nil
}

func (d *Downloader) download(ctx context.Context, id, path string) error {
	data, err := d.fetcher.Fetch(ctx, id)
	if err != nil {
		return err
	}
	if d.validate != nil {
		if err := d.validate(data); err != nil {
			return fmt.Errorf("response is not a PDF: %w", err)
		}
	}
	return writeFileAtomic(path, data)
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// into place, so an interrupted run never leaves a truncated PDF behind
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}
