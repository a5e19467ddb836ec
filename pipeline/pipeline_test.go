package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"csc-scraper/config"
	"csc-scraper/db"
	"csc-scraper/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boardHTML(rows ...[2]string) string {
	var b strings.Builder
	b.WriteString(`<table><thead><tr><th>Agency</th><th>Region</th><th>Position Title</th>`)
	b.WriteString(`<th>Plantilla Item No.</th><th>Posting Date</th><th>Closing Date</th><th>Action</th></tr></thead><tbody>`)
	for _, r := range rows {
		fmt.Fprintf(&b, `<tr><td>%s</td><td>NCR</td><td>Engineer I</td><td>P-%s</td>`, r[1], r[0])
		fmt.Fprintf(&b, `<td>20 Apr 2025</td><td>30 Apr 2025</td><td><button id="info_%s">i</button></td></tr>`, r[0])
	}
	b.WriteString(`</tbody></table>`)
	return b.String()
}

type fakeScraper struct {
	pages []string
	err   error
}

func (f *fakeScraper) Scrape(ctx context.Context, maxPages int, onPage scraper.PageHandler) (int, error) {
	handled := 0
	for i, html := range f.pages {
		if maxPages > 0 && handled >= maxPages {
			break
		}
		if err := onPage(i+1, html); err != nil {
			return handled, err
		}
		handled++
	}
	return handled, f.err
}

type fakeFetcher struct{}

func (fakeFetcher) Fetch(ctx context.Context, jobID string) ([]byte, error) {
	if jobID == "404" {
		return nil, errors.New("status 404")
	}
	return []byte("%PDF-" + jobID), nil
}

// fakeReader serves posting lines keyed by file name
type fakeReader map[string][]string

func (f fakeReader) Lines(path string) ([]string, error) {
	lines, ok := f[filepath.Base(path)]
	if !ok {
		return nil, errors.New("corrupt")
	}
	return lines, nil
}

func posting(title, salary string) []string {
	return []string{
		"CIVIL SERVICE COMMISSION",
		"NCR | Department of Public Works",
		"Place of Assignment : Manila",
		"Position Title : " + title,
		"Monthly Salary : Php " + salary,
		"Education : BS Civil Engineering",
	}
}

func newTestPipeline(t *testing.T, s scraper.Scraper, reader LineReader) (*Pipeline, *config.Config, *db.DB, *bytes.Buffer) {
	t.Helper()

	cfg := config.GetDefaultConfig()
	cfg.Board.Name = "csc"
	cfg.Paths.DataDir = t.TempDir()
	cfg.Scrape.IPLookupURL = ""
	cfg.Download.Delay = 0
	cfg.Output.CSV = true
	cfg.Output.PreviewRows = 5

	database, err := db.NewDB(db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	var out bytes.Buffer
	p := New(cfg, database, Options{
		Scraper:  s,
		Fetcher:  fakeFetcher{},
		Reader:   reader,
		Validate: func([]byte) error { return nil },
		Out:      &out,
	})
	t.Cleanup(func() { p.Close() })
	return p, cfg, database, &out
}

func TestRun(t *testing.T) {
	s := &fakeScraper{pages: []string{
		boardHTML([2]string{"101", "DPWH"}, [2]string{"102", "DPWH"}),
		`<table><tr><th>Agency</th></tr><tr><td>row without button</td></tr></table>`,
		boardHTML([2]string{"102", "DPWH again"}, [2]string{"404", "Gone"}),
	}}
	reader := fakeReader{
		"101.pdf": posting("Engineer I", "27,000.00"),
		"102.pdf": posting("Engineer II", "36,619.00"),
	}
	p, cfg, database, out := newTestPipeline(t, s, reader)
	ctx := context.Background()

	summary, err := p.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Scrape.Pages)
	assert.Equal(t, 4, summary.Scrape.Listings)
	assert.Equal(t, 1, summary.Scrape.SkippedPages)
	assert.Equal(t, 2, summary.Download.Downloaded)
	assert.Equal(t, 1, summary.Download.Failed)
	assert.Equal(t, 2, summary.Extract.Inserted)
	assert.Equal(t, 2, summary.Preprocess.Records)
	assert.Equal(t, 1, summary.Preprocess.Join.DuplicateListings)
	assert.Equal(t, 1, summary.Preprocess.Join.Unmatched)

	run, err := database.GetRun(ctx, summary.Scrape.RunID)
	require.NoError(t, err)
	assert.Equal(t, db.RunDone, run.Status)

	assert.FileExists(t, filepath.Join(cfg.PDFDir(), "101.pdf"))
	assert.NoFileExists(t, filepath.Join(cfg.PDFDir(), "404.pdf"))

	assert.FileExists(t, summary.Preprocess.ParquetPath)
	assert.FileExists(t, summary.Preprocess.CSVPath)
	assert.Contains(t, out.String(), "Engineer I")

	text := summary.Text(cfg.Board.Name)
	assert.Contains(t, text, "Pages scraped: 3 (4 listings)")
	assert.Contains(t, text, "Processed records: 2")
}

func TestRunContinuesAfterScrapeError(t *testing.T) {
	s := &fakeScraper{
		pages: []string{boardHTML([2]string{"7", "CSC"})},
		err:   errors.New("next button vanished"),
	}
	p, _, database, _ := newTestPipeline(t, s, fakeReader{"7.pdf": posting("Clerk", "15,000")})

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Error(t, summary.ScrapeErr)
	assert.Contains(t, summary.Text("csc"), "Scrape stopped early")
	assert.Equal(t, 1, summary.Preprocess.Records)

	run, err := database.GetRun(context.Background(), summary.Scrape.RunID)
	require.NoError(t, err)
	assert.Equal(t, db.RunFailed, run.Status)
	assert.Equal(t, "next button vanished", run.LastError.String)
}

func TestRunInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &fakeScraper{pages: []string{boardHTML([2]string{"1", "CSC"})}}
	p, _, _, _ := newTestPipeline(t, s, fakeReader{})

	cancel()
	_, err := p.Run(ctx)
	require.Error(t, err)
	assert.True(t, IsInterrupted(err))
}

func TestExtractSkipsBadFilesAndDuplicates(t *testing.T) {
	p, cfg, database, _ := newTestPipeline(t, &fakeScraper{}, fakeReader{
		"5.pdf": posting("Engineer I", "27,000"),
	})
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(cfg.PDFDir(), 0755))
	for _, name := range []string{"5.pdf", "6.pdf", "notes.pdf", "readme.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.PDFDir(), name), []byte("%PDF-"), 0644))
	}

	result, err := p.Extract(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExtractResult{Files: 3, Inserted: 1, Skipped: 2}, result)

	result, err = p.Extract(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 0, result.Inserted)

	n, err := database.CountPostings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPreprocessFilters(t *testing.T) {
	s := &fakeScraper{pages: []string{boardHTML([2]string{"1", "A"}, [2]string{"2", "B"})}}
	p, cfg, _, _ := newTestPipeline(t, s, fakeReader{
		"1.pdf": posting("Engineer I", "27,000"),
		"2.pdf": posting("Engineer IV", "60,000"),
	})
	cfg.Filters.MaxSalary = 50000

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Preprocess.Join.Records)
	assert.Equal(t, 1, summary.Preprocess.Records)
	assert.Equal(t, "max salary: 50000", p.filterInfo())
}
