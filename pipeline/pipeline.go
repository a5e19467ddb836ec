// Package pipeline chains the harvester stages: scrape the board, download
// the PDF postings, extract their fields and build the processed dataset.
package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"csc-scraper/config"
	"csc-scraper/db"
	"csc-scraper/fetcher"
	"csc-scraper/parser"
	"csc-scraper/pdftext"
	"csc-scraper/scraper"
	"csc-scraper/sheets"

	"github.com/go-rod/rod"
)

// LineReader turns a PDF file into text lines
type LineReader interface {
	Lines(path string) ([]string, error)
}

// Options let callers swap the network-facing pieces, mainly for tests.
// Nil fields are built from the config on first use.
type Options struct {
	Scraper  scraper.Scraper
	Fetcher  fetcher.Fetcher
	Reader   LineReader
	Validate func([]byte) error
	Sheets   *sheets.Writer
	Out      io.Writer // console table output
	Progress io.Writer // progress bars
}

// Pipeline runs the harvester stages against one board
type Pipeline struct {
	cfg      *config.Config
	db       *db.DB
	opts     Options
	boards   *parser.BoardParser
	postings *parser.PostingParser

	mu      sync.Mutex
	browser *rod.Browser
	closers []io.Closer
}

// New creates a Pipeline
func New(cfg *config.Config, database *db.DB, opts Options) *Pipeline {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	if opts.Reader == nil || opts.Validate == nil {
		extractor := pdftext.NewExtractor(true)
		if opts.Reader == nil {
			opts.Reader = extractor
		}
		if opts.Validate == nil {
			opts.Validate = extractor.IsPDF
		}
	}
	return &Pipeline{
		cfg:      cfg,
		db:       database,
		opts:     opts,
		boards:   parser.NewBoardParser(),
		postings: parser.NewPostingParser(),
	}
}

// Close releases the browser and anything opened with it
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.closers = nil

	if p.browser != nil {
		slog.Debug("closing browser")
		if err := p.browser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.browser = nil
	}
	return firstErr
}

// sharedBrowser launches Chromium on first use so stages that don't need it
// never pay for it
func (p *Pipeline) sharedBrowser() (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil {
		return p.browser, nil
	}
	slog.Info("launching browser", "headless", p.cfg.Scrape.Headless)
	browser, err := scraper.LaunchBrowser(scraper.BrowserOptions{Headless: p.cfg.Scrape.Headless})
	if err != nil {
		return nil, err
	}
	p.browser = browser
	return browser, nil
}

func (p *Pipeline) boardScraper() (scraper.Scraper, error) {
	if p.opts.Scraper != nil {
		return p.opts.Scraper, nil
	}
	browser, err := p.sharedBrowser()
	if err != nil {
		return nil, err
	}
	return scraper.NewRodScraper(browser, scraper.RodOptions{
		URL:         p.cfg.Board.URL,
		PageLength:  p.cfg.Board.PageLength,
		SettleDelay: p.cfg.Scrape.SettleDelay,
		Delay:       scraper.NewGammaDelay(p.cfg.Scrape.GammaShape, p.cfg.Scrape.GammaScale),
	}), nil
}

func (p *Pipeline) postingFetcher() (fetcher.Fetcher, error) {
	if p.opts.Fetcher != nil {
		return p.opts.Fetcher, nil
	}

	switch p.cfg.Download.Fetcher {
	case "http":
		f, err := fetcher.NewCollyFetcher(p.cfg.Board.JobURL, p.cfg.Download.Delay/2)
		if err != nil {
			return nil, err
		}
		p.opts.Fetcher = f
	case "rod":
		browser, err := p.sharedBrowser()
		if err != nil {
			return nil, err
		}
		f := fetcher.NewRodFetcher(browser, p.cfg.Board.URL, p.cfg.Board.JobURL)
		p.mu.Lock()
		p.closers = append(p.closers, f)
		p.mu.Unlock()
		p.opts.Fetcher = f
	default:
		return nil, fmt.Errorf("unsupported fetcher %q", p.cfg.Download.Fetcher)
	}
	return p.opts.Fetcher, nil
}
