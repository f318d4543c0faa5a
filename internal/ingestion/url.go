package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonathan/resume-refiner/internal/fetch"
)

var (
	// ErrHTTPRequestFailed is returned when HTTP request fails
	ErrHTTPRequestFailed = errors.New("HTTP request failed")
	// ErrContentExtractionFailed is returned when content extraction fails
	ErrContentExtractionFailed = errors.New("content extraction failed")
)

// URLSource fetches a posting from the web. It applies platform-specific
// selectors and, when UseBrowser is set, re-renders pages whose HTTP content
// is too short in a headless browser.
type URLSource struct {
	URL        string
	UseBrowser bool
	Fetcher    *fetch.CachedFetcher // nil fetches without a cache
	Logger     *slog.Logger

	render func(ctx context.Context, url string) (string, error)
}

func (s *URLSource) String() string { return s.URL }

// Read fetches, extracts and cleans the page text.
func (s *URLSource) Read(ctx context.Context) (*Document, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fetcher := s.Fetcher
	if fetcher == nil {
		fetcher = fetch.NewCachedFetcher(nil, &fetch.CachedFetcherConfig{Logger: logger})
	}

	platform := fetch.DetectPlatform(s.URL)
	logger.Debug("fetching document", "url", s.URL, "platform", platform)

	result, err := fetcher.Fetch(ctx, s.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHTTPRequestFailed, err)
	}

	contentSelectors := fetch.PlatformContentSelectors(platform)
	noiseSelectors := fetch.PlatformNoiseSelectors(platform)

	text, err := fetch.ExtractMainText(result.HTML, contentSelectors, noiseSelectors...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContentExtractionFailed, err)
	}
	logger.Debug("extracted text", "url", s.URL, "chars", len(text), "from_cache", result.FromCache)

	rendered := false
	if s.UseBrowser && fetch.ShouldUseBrowser(text) {
		logger.Info("content too short, rendering in browser", "url", s.URL, "chars", len(text), "min", fetch.MinContentLength)
		render := s.render
		if render == nil {
			render = func(ctx context.Context, url string) (string, error) {
				return fetch.WithBrowser(ctx, url, fetch.DefaultBrowserTimeout, logger)
			}
		}
		// A failed render keeps the HTTP content.
		if html, err := render(ctx, s.URL); err != nil {
			logger.Warn("browser rendering failed, using HTTP content", "url", s.URL, "error", err)
		} else if browserText, err := fetch.ExtractMainText(html, contentSelectors, noiseSelectors...); err != nil {
			logger.Warn("browser content extraction failed", "url", s.URL, "error", err)
		} else {
			text = browserText
			rendered = true
		}
	}

	doc, err := newDocument(text, s.URL)
	if err != nil {
		return nil, err
	}
	doc.Metadata.URL = s.URL
	doc.Metadata.Platform = string(platform)
	doc.Metadata.Rendered = rendered
	doc.Metadata.FromCache = result.FromCache
	doc.Metadata.ExtractedLinks = fetch.Links(result.HTML)
	return doc, nil
}
