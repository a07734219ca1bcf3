package cricinfo

import (
	"context"

	"github.com/riskibarqy/cricket-ingest/internal/platform/cache"
	"github.com/riskibarqy/cricket-ingest/internal/usecase"
)

// CachedFetcher serves repeated page requests from the page cache. Only
// successful bodies are stored.
type CachedFetcher struct {
	next  usecase.Fetcher
	pages *cache.Pages
}

func NewCachedFetcher(next usecase.Fetcher, pages *cache.Pages) *CachedFetcher {
	return &CachedFetcher{next: next, pages: pages}
}

func (f *CachedFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if f.pages == nil {
		return f.next.Fetch(ctx, locator)
	}
	return f.pages.GetOrLoad(ctx, locator, func(ctx context.Context) ([]byte, error) {
		return f.next.Fetch(ctx, locator)
	})
}
