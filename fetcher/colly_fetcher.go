package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// CollyFetcher downloads postings with plain HTTP requests
type CollyFetcher struct {
	collector *colly.Collector
	jobURL    string
}

// NewCollyFetcher creates a CollyFetcher. jobURL is a fmt pattern taking the job ID.
// jitter adds a random pause of up to that length before each request.
func NewCollyFetcher(jobURL string, jitter time.Duration) (*CollyFetcher, error) {
	u, err := url.Parse(fmt.Sprintf(jobURL, "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid job url: %w", err)
	}

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(time.Minute)
	// postings are small, but leave room for scanned attachments
	c.MaxBodySize = 50 << 20

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*" + u.Hostname() + "*",
		Parallelism: 1,
		RandomDelay: jitter,
	}); err != nil {
		return nil, fmt.Errorf("failed to set limit rule: %w", err)
	}

	return &CollyFetcher{
		collector: c,
		jobURL:    jobURL,
	}, nil
}

// Fetch implements the Fetcher interface
func (cf *CollyFetcher) Fetch(ctx context.Context, jobID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Clone shares the HTTP backend and its limit rule but not callbacks
	c := cf.collector.Clone()

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	target := fmt.Sprintf(cf.jobURL, jobID)
	if err := c.Visit(target); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	c.Wait()

	if len(body) == 0 {
		return nil, fmt.Errorf("empty response from %s", target)
	}
	return body, nil
}
