package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// fetchPosting runs inside the board page so the request carries the
// browser's cookies and passes the same bot checks as the board itself.
// The body comes back base64 encoded because CDP only transports JSON.
const fetchPosting = `async (url) => {
	const resp = await fetch(url);
	if (!resp.ok) {
		throw new Error("status " + resp.status);
	}
	const bytes = new Uint8Array(await resp.arrayBuffer());
	let bin = "";
	for (let i = 0; i < bytes.length; i += 0x8000) {
		bin += String.fromCharCode.apply(null, bytes.subarray(i, i + 0x8000));
	}
	return btoa(bin);
}`

// RodFetcher downloads postings through a browser tab opened on the board
type RodFetcher struct {
	browser  *rod.Browser
	boardURL string
	jobURL   string

	mu   sync.Mutex
	page *rod.Page
}

// NewRodFetcher creates a RodFetcher using an existing browser.
// jobURL is a fmt pattern taking the job ID.
func NewRodFetcher(browser *rod.Browser, boardURL, jobURL string) *RodFetcher {
	return &RodFetcher{
		browser:  browser,
		boardURL: boardURL,
		jobURL:   jobURL,
	}
}

// Fetch implements the Fetcher interface
func (rf *RodFetcher) Fetch(ctx context.Context, jobID string) ([]byte, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	page, err := rf.boardPage()
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf(rf.jobURL, jobID)
	res, err := page.Context(ctx).Timeout(time.Minute).Eval(fetchPosting, url)
	if err != nil {
		return nil, fmt.Errorf("in-page fetch of %s failed: %w", url, err)
	}

	data, err := base64.StdEncoding.DecodeString(res.Value.Str())
	if err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return data, nil
}

// boardPage opens the board once and reuses the tab for every download
func (rf *RodFetcher) boardPage() (*rod.Page, error) {
	if rf.page != nil {
		return rf.page, nil
	}

	page, err := rf.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if err := page.Navigate(rf.boardURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to load board: %w", err)
	}
	if err := page.Timeout(10 * time.Second).WaitStable(500 * time.Millisecond); err != nil {
		slog.Warn("board page did not stabilize within timeout, continuing anyway", "err", err)
	}

	rf.page = page
	return page, nil
}

// Close closes the board tab; the browser is owned by the caller
func (rf *RodFetcher) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.page == nil {
		return nil
	}
	err := rf.page.Close()
	rf.page = nil
	return err
}
