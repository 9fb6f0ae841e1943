// Package collab declares the narrow Go interfaces the core calls
// against for the external collaborators named in spec §6. The core
// never implements these; callers (the enclosing binary) supply them.
// Tests use small in-memory fakes.
package collab

import (
	"context"
	"errors"
	"io"
)

// Fetcher errors (spec §6).
var (
	ErrNotFound  = errors.New("batch: not found")
	ErrTransient = errors.New("batch: transient error, retry")
	ErrFatal     = errors.New("batch: fatal error")
)

// Fetcher opens a batch (e.g. "CC-MAIN-2021-10") and yields an ordered
// list of byte streams, each possibly gzip-compressed TSV.
type Fetcher interface {
	OpenBatch(ctx context.Context, batchID string) ([]io.ReadCloser, error)
}

// URLParts is the result of canonicalizing and hashing a URL.
type URLParts struct {
	Host         string
	HostHash     uint64
	DomainHash   uint64
	URLHash      uint64
	CanonicalURL string
}

// URLParser canonicalizes a raw URL (lowercase host, strip default port,
// normalize trailing slash, UTF-8 percent-decoded path) and derives its
// hashes.
type URLParser interface {
	Parse(rawURL string) (URLParts, error)
}

// TextExtractor turns a text field into words, with an expanded variant
// that adds stems/n-grams (spec §6).
type TextExtractor interface {
	Words(s string) []string
	ExpandedWords(s string) []string
}

// PriorScorer supplies a static per-URL quality prior.
type PriorScorer interface {
	Harmonic(canonicalURL string) float32
}

// RecordStore is the external open-addressed hash-table sidecar mapping
// url_hash to the raw ingested row. Not part of this core; declared here
// only as the interface the indexer runner may call to resolve rows.
type RecordStore interface {
	Put(key uint64, row []byte) error
	Get(key uint64) ([]byte, bool, error)
}
