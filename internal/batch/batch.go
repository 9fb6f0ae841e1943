// Package batch turns the raw streams a Fetcher yields (spec §6 "Batch
// pointer": "each possibly gzip-compressed") into a line-by-line TSV row
// reader, transparently decompressing gzip-magic streams.
package batch

import (
	"bufio"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Row is one parsed TSV record: field 0 is the document URL, the rest
// are text columns (spec §6 "Record stream").
type Row struct {
	URL     string
	Columns []string
}

// RowReader reads \n-terminated TSV rows from a single stream, detecting
// and transparently decompressing a gzip stream.
type RowReader struct {
	closer io.Closer
	r      *bufio.Reader
	gz     *gzip.Reader
}

// Open wraps stream, sniffing for the gzip magic bytes and wrapping in a
// gzip.Reader when present.
func Open(stream io.ReadCloser) (*RowReader, error) {
	br := bufio.NewReader(stream)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		stream.Close()
		return nil, fmt.Errorf("batch: peek stream: %w", err)
	}

	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			stream.Close()
			return nil, fmt.Errorf("batch: open gzip stream: %w", err)
		}
		return &RowReader{closer: stream, r: bufio.NewReader(gz), gz: gz}, nil
	}

	return &RowReader{closer: stream, r: br}, nil
}

// Next reads and parses the next TSV row. Returns io.EOF when the stream
// is exhausted.
func (rr *RowReader) Next() (Row, error) {
	line, err := rr.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return Row{}, fmt.Errorf("batch: read row: %w", err)
	}
	if len(line) == 0 && err == io.EOF {
		return Row{}, io.EOF
	}

	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}

	fields := splitTSV(line)
	if len(fields) == 0 {
		return Row{}, ErrMalformed
	}
	return Row{URL: fields[0], Columns: fields[1:]}, nil
}

// Close releases the underlying gzip reader (if any) and the stream.
func (rr *RowReader) Close() error {
	if rr.gz != nil {
		rr.gz.Close()
	}
	return rr.closer.Close()
}

func splitTSV(line string) []string {
	if line == "" {
		return nil
	}
	fields := []string{}
	start := 0
	for i := 0; i < len(line); i++ {
		if line[i] == '\t' {
			fields = append(fields, line[start:i])
			start = i + 1
		}
	}
	fields = append(fields, line[start:])
	return fields
}
