package scraper

import (
	"context"
	"fmt"
	"strings"
)

// PageHandler receives the rendered HTML of each board page, numbered from 1.
// Returning an error stops pagination.
type PageHandler func(page int, html string) error

// Scraper interface defines the contract for board pagination implementations
type Scraper interface {
	// Scrape walks the board and hands every page to onPage.
	// maxPages of -1 walks until the last page. Returns the number of pages handled.
	Scrape(ctx context.Context, maxPages int, onPage PageHandler) (int, error)
}

// ValidateBoardName rejects names that can't be used as a directory or table prefix
func ValidateBoardName(name string) error {
	if name == "" {
		return fmt.Errorf("board name is empty")
	}
	if strings.ContainsAny(name, " \t\n") {
		return fmt.Errorf("board name %q must not contain spaces", name)
	}
	return nil
}

// reachedLimit reports whether pagination should stop after handled pages
func reachedLimit(handled, maxPages int) bool {
	return maxPages > 0 && handled >= maxPages
}
