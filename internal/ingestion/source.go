package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/resume-refiner/internal/fetch"
)

// ErrEmptyDocument is returned when a source yields no text after cleaning
var ErrEmptyDocument = errors.New("document is empty")

// Document is cleaned source text with its provenance
type Document struct {
	Text     string
	Metadata *Metadata
}

// Source produces the raw text of one document
type Source interface {
	Read(ctx context.Context) (*Document, error)
	String() string
}

// FileSource reads a local text, Markdown or HTML file.
type FileSource struct {
	Path string
}

// Read loads and cleans the file. HTML files are reduced to their main text.
func (s FileSource) Read(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %w", err)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	text := string(content)
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".html", ".htm":
		text, err = fetch.ExtractMainText(text, fetch.JobPostingSelectors(), fetch.PlatformNoiseSelectors(fetch.PlatformUnknown)...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrContentExtractionFailed, err)
		}
	}
	return newDocument(text, s.Path)
}

func (s FileSource) String() string { return s.Path }

// TextSource wraps text already in memory.
type TextSource struct {
	Name string
	Text string
}

// Read cleans the text.
func (s TextSource) Read(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newDocument(s.Text, s.String())
}

func (s TextSource) String() string {
	if s.Name == "" {
		return "inline"
	}
	return s.Name
}

func newDocument(text, source string) (*Document, error) {
	cleaned := CleanText(text)
	if cleaned == "" {
		return nil, fmt.Errorf("%s: %w", source, ErrEmptyDocument)
	}
	return &Document{Text: cleaned, Metadata: NewMetadata(cleaned, source)}, nil
}

// SourceFor picks a URLSource for http(s) locations and a FileSource otherwise.
func SourceFor(location string, pages *fetch.CachedFetcher, useBrowser bool) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return &URLSource{URL: location, Fetcher: pages, UseBrowser: useBrowser}
	}
	return FileSource{Path: location}
}
