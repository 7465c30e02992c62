package crawl

import (
	"context"

	"github.com/poiesic/ragbase/core"
)

// Strategy is the crawling contract the pipeline consumes. Fetcher is
// the HTTP implementation; alternatives (sitemap walkers, feed readers)
// satisfy the same surface.
type Strategy interface {
	// Fetch retrieves a single URL. Failures are reported inside the
	// CrawlResult, not as an error return.
	Fetch(ctx context.Context, rawURL string) *core.CrawlResult

	// FetchAll retrieves a set of URLs, one result per input URL in
	// order.
	FetchAll(ctx context.Context, urls []string) []*core.CrawlResult
}

var _ Strategy = (*Fetcher)(nil)
