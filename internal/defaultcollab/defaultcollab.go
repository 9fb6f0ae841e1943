// Package defaultcollab provides minimal concrete implementations of the
// §6 collaborator interfaces so the CLI binary has something to wire by
// default. Production deployments are expected to supply richer
// implementations (a real WARC fetcher, a stemmer-backed extractor, a
// harmonic-centrality prior); these are deliberately simple.
package defaultcollab

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/alexandria-search/engine/internal/collab"
	"github.com/alexandria-search/engine/internal/record"
)

// URLParser canonicalizes with net/url and hashes with record.HashString
// (spec §6 "deterministic canonicalization: lowercase host, strip default
// port, normalize trailing slash, percent-decoded path").
type URLParser struct{}

func (URLParser) Parse(rawURL string) (collab.URLParts, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return collab.URLParts{}, fmt.Errorf("defaultcollab: parse url: %w", err)
	}

	host := strings.ToLower(u.Hostname())
	path := u.Path
	if path == "" {
		path = "/"
	}

	hostPort := host
	if port := u.Port(); port != "" && !(u.Scheme == "http" && port == "80") && !(u.Scheme == "https" && port == "443") {
		hostPort = host + ":" + port
	}

	canonical := u.Scheme + "://" + hostPort + path

	return collab.URLParts{
		Host:         host,
		HostHash:     record.HashString(host),
		DomainHash:   record.HashString(registrableDomain(host)),
		URLHash:      record.HashString(canonical),
		CanonicalURL: canonical,
	}, nil
}

// registrableDomain returns the last two dot-separated labels of host, a
// crude stand-in for a public-suffix-aware registrable domain.
func registrableDomain(host string) string {
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return host
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// TextExtractor splits on whitespace and normalizes with record.Normalize.
// ExpandedWords returns the same words as Words; it adds no stems or
// n-grams.
type TextExtractor struct{}

func (TextExtractor) Words(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, record.Normalize(f))
	}
	return out
}

func (e TextExtractor) ExpandedWords(s string) []string {
	return e.Words(s)
}

// PriorScorer returns a constant prior. A real deployment supplies a
// harmonic-centrality score computed over the link graph.
type PriorScorer struct{ Constant float32 }

func (p PriorScorer) Harmonic(canonicalURL string) float32 {
	if p.Constant == 0 {
		return 1.0
	}
	return p.Constant
}

// FileFetcher treats batchID as a local file path and yields its
// contents as the batch's single stream, for local testing of the index
// CLI subcommand without a real WARC fetcher.
type FileFetcher struct{}

func (FileFetcher) OpenBatch(ctx context.Context, batchID string) ([]io.ReadCloser, error) {
	f, err := os.Open(batchID)
	if err != nil {
		return nil, fmt.Errorf("defaultcollab: open batch file %s: %w", batchID, err)
	}
	return []io.ReadCloser{f}, nil
}
