package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Metadata describes where an ingested document came from
type Metadata struct {
	Source         string    `json:"source"` // file path, URL, or "inline"
	URL            string    `json:"url,omitempty"`
	ReadAt         time.Time `json:"read_at"`
	Hash           string    `json:"hash"` // SHA-256 of the cleaned text
	Platform       string    `json:"platform,omitempty"`
	Rendered       bool      `json:"rendered,omitempty"`   // text came from a headless browser
	FromCache      bool      `json:"from_cache,omitempty"` // page came from the page cache
	ExtractedLinks []string  `json:"extracted_links,omitempty"`
}

// NewMetadata stamps cleaned content read from source.
func NewMetadata(content string, source string) *Metadata {
	sum := sha256.Sum256([]byte(content))
	return &Metadata{
		Source: source,
		ReadAt: time.Now().UTC(),
		Hash:   hex.EncodeToString(sum[:]),
	}
}
