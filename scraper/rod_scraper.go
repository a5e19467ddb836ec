package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	pageLengthSelector = "select[name='jobs_length']"
	nextButtonSelector = "a.paginate_button.next"
)

// BrowserOptions control how Chromium is launched
type BrowserOptions struct {
	Headless    bool
	UserDataDir string
}

// LaunchBrowser starts Chromium, preferring a system install over a download
func LaunchBrowser(opts BrowserOptions) (*rod.Browser, error) {
	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled").
		NoSandbox(true).
		Leakless(false).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("disable-background-timer-throttling").
		Set("disable-renderer-backgrounding").
		Set("mute-audio")

	if opts.UserDataDir != "" {
		if err := os.MkdirAll(opts.UserDataDir, 0755); err != nil {
			slog.Warn("failed to create browser data directory", "dir", opts.UserDataDir, "err", err)
		} else {
			l = l.UserDataDir(opts.UserDataDir)
		}
	}

	if bin, ok := launcher.LookPath(); ok {
		l = l.Bin(bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w\n\nNote: On Linux, you may need to install Chromium dependencies:\n  apt-get update && apt-get install -y chromium", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	return browser, nil
}

// RodScraper walks the DataTables board with a headless browser
type RodScraper struct {
	browser     *rod.Browser
	url         string
	pageLength  string
	settleDelay time.Duration
	delay       Delay
}

// RodOptions configure a RodScraper
type RodOptions struct {
	URL         string
	PageLength  string        // value of the "entries per page" option to pick
	SettleDelay time.Duration // wait after changing the page length
	Delay       Delay         // wait between pages
}

// NewRodScraper creates a scraper on an already launched browser
func NewRodScraper(browser *rod.Browser, opts RodOptions) *RodScraper {
	delay := opts.Delay
	if delay == nil {
		delay = Fixed(0)
	}
	return &RodScraper{
		browser:     browser,
		url:         opts.URL,
		pageLength:  opts.PageLength,
		settleDelay: opts.SettleDelay,
		delay:       delay,
	}
}

// Scrape implements the Scraper interface
func (rs *RodScraper) Scrape(ctx context.Context, maxPages int, onPage PageHandler) (int, error) {
	slog.Info("starting scrape", "url", rs.url, "max_pages", maxPages)

	page, err := rs.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return 0, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.Navigate(rs.url); err != nil {
		return 0, fmt.Errorf("failed to navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return 0, fmt.Errorf("failed to load board: %w", err)
	}

	if rs.pageLength != "" {
		if err := rs.selectPageLength(page); err != nil {
			// Smaller pages still work, there are just more of them
			slog.Warn("could not change page length", "length", rs.pageLength, "err", err)
		}
	}
	if err := Sleep(ctx, rs.settleDelay); err != nil {
		return 0, err
	}

	handled := 0
	for {
		html, err := page.HTML()
		if err != nil {
			return handled, fmt.Errorf("failed to get HTML for page %d: %w", handled+1, err)
		}
		if err := onPage(handled+1, html); err != nil {
			return handled, fmt.Errorf("page %d: %w", handled+1, err)
		}
		handled++
		slog.Info("scraped page", "page", handled)

		if reachedLimit(handled, maxPages) {
			slog.Info("reached page limit", "pages", handled)
			break
		}

		last, err := rs.clickNext(page)
		if err != nil {
			return handled, err
		}
		if last {
			slog.Info("no more pages", "pages", handled)
			break
		}

		wait := rs.delay.Next()
		slog.Debug("waiting before next page", "delay", wait)
		if err := Sleep(ctx, wait); err != nil {
			return handled, err
		}
	}

	return handled, nil
}

func (rs *RodScraper) selectPageLength(page *rod.Page) error {
	el, err := page.Timeout(10 * time.Second).Element(pageLengthSelector)
	if err != nil {
		return err
	}
	selector := fmt.Sprintf("option[value='%s']", rs.pageLength)
	return el.Select([]string{selector}, true, rod.SelectorTypeCSSSector)
}

// clickNext advances the table. It returns true when the next button is disabled.
func (rs *RodScraper) clickNext(page *rod.Page) (bool, error) {
	next, err := page.Timeout(10 * time.Second).Element(nextButtonSelector)
	if err != nil {
		// Element keeps retrying, so a missing button shows up as the lookup timeout
		var notFound *rod.ElementNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, context.DeadlineExceeded) {
			return true, nil
		}
		return false, fmt.Errorf("failed to find next button: %w", err)
	}
	// drop the lookup timeout from the element
	next = next.CancelTimeout()

	class, err := next.Attribute("class")
	if err != nil {
		return false, fmt.Errorf("failed to read next button class: %w", err)
	}
	if class != nil && isDisabled(*class) {
		return true, nil
	}

	if err := next.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, fmt.Errorf("failed to click next button: %w", err)
	}
	if err := page.Timeout(10 * time.Second).WaitStable(500 * time.Millisecond); err != nil {
		slog.Warn("page did not stabilize after paging, continuing anyway", "err", err)
	}
	return false, nil
}

func isDisabled(class string) bool {
	for _, c := range strings.Fields(class) {
		if c == "disabled" {
			return true
		}
	}
	return false
}
