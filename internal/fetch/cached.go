package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonathan/resume-refiner/internal/db"
)

// PageCache stores fetched pages. db.DB and db.SQLite implement it.
type PageCache interface {
	GetFreshPage(ctx context.Context, url string, ttl time.Duration) (*db.Page, error)
	UpsertPage(ctx context.Context, page *db.Page) error
}

// CachedFetcher wraps URL fetching with a page cache.
type CachedFetcher struct {
	cache     PageCache
	options   *Options
	cacheTTL  time.Duration
	skipCache bool // For testing or forcing fresh fetches
	fetch     func(ctx context.Context, url string, opts *Options) (*Result, error)
	logger    *slog.Logger
}

// CachedFetcherConfig holds configuration for the cached fetcher.
type CachedFetcherConfig struct {
	CacheTTL  time.Duration
	SkipCache bool
	Options   *Options
	Logger    *slog.Logger
}

// DefaultCachedFetcherConfig returns sensible defaults.
func DefaultCachedFetcherConfig() *CachedFetcherConfig {
	return &CachedFetcherConfig{
		CacheTTL:  db.DefaultPageCacheTTL, // 7 days
		SkipCache: false,
		Options:   DefaultOptions(),
	}
}

// NewCachedFetcher creates a new cached fetcher. A nil cache fetches every time.
func NewCachedFetcher(cache PageCache, config *CachedFetcherConfig) *CachedFetcher {
	if config == nil {
		config = DefaultCachedFetcherConfig()
	}
	if config.Options == nil {
		config.Options = DefaultOptions()
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = db.DefaultPageCacheTTL
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedFetcher{
		cache:     cache,
		options:   config.Options,
		cacheTTL:  config.CacheTTL,
		skipCache: config.SkipCache,
		fetch:     URL,
		logger:    logger,
	}
}

// CachedResult extends Result with cache metadata.
type CachedResult struct {
	*Result
	FromCache bool // Whether this result came from cache
}

// Fetch retrieves a URL, returning the cached page when it is within the TTL
// and otherwise fetching and caching fresh content.
func (f *CachedFetcher) Fetch(ctx context.Context, urlStr string) (*CachedResult, error) {
	useCache := !f.skipCache && f.cache != nil

	if useCache {
		cached, err := f.cache.GetFreshPage(ctx, urlStr, f.cacheTTL)
		if err != nil {
			f.logger.Warn("page cache lookup failed", "url", urlStr, "error", err)
		} else if cached != nil {
			return &CachedResult{
				Result: &Result{
					URL:        cached.URL,
					HTML:       cached.HTML,
					Text:       cached.Text,
					StatusCode: cached.StatusCode,
				},
				FromCache: true,
			}, nil
		}
	}

	result, err := f.fetch(ctx, urlStr, f.options)
	if err != nil {
		return nil, err
	}
	if result.Text == "" {
		result.Text, _ = ExtractMainText(result.HTML, DefaultTextSelectors())
	}

	if useCache {
		page := &db.Page{
			URL:        urlStr,
			HTML:       result.HTML,
			Text:       result.Text,
			StatusCode: result.StatusCode,
		}
		if err := f.cache.UpsertPage(ctx, page); err != nil {
			// The fetch succeeded; a cache write failure only costs a refetch.
			f.logger.Warn("page cache write failed", "url", urlStr, "error", err)
		}
	}

	return &CachedResult{Result: result}, nil
}
