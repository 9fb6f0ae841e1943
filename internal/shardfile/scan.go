package shardfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ReadAll sequentially scans a shard's data file page by page, returning
// every key's postings and pre-truncation total (spec §4.C merge step 1:
// "Read the current shard file fully into memory, per key, restoring
// totals"). A missing file yields empty maps, not an error.
func ReadAll[T any](dataPath string, codec Codec[T]) (map[uint64][]T, map[uint64]int, error) {
	postings := map[uint64][]T{}
	totals := map[uint64]int{}

	f, err := os.Open(dataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return postings, totals, nil
		}
		return nil, nil, fmt.Errorf("shardfile: open for scan: %w", err)
	}
	defer f.Close()

	for {
		var hdr [8]byte
		if _, err := io.ReadFull(f, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("%w: reading page header: %v", ErrCorrupt, err)
		}
		numKeys := binary.LittleEndian.Uint64(hdr[:])
		if numKeys > maxKeysPerPage {
			return nil, nil, fmt.Errorf("%w: num_keys=%d exceeds guard", ErrCorrupt, numKeys)
		}

		keys, err := readU64Slice(f, numKeys)
		if err != nil {
			return nil, nil, err
		}
		if _, err := readU64Slice(f, numKeys); err != nil { // positions, unused during full scan
			return nil, nil, err
		}
		lengths, err := readU64Slice(f, numKeys)
		if err != nil {
			return nil, nil, err
		}
		pageTotals, err := readU64Slice(f, numKeys)
		if err != nil {
			return nil, nil, err
		}

		for i, key := range keys {
			length := lengths[i]
			if length%uint64(codec.Size) != 0 {
				return nil, nil, fmt.Errorf("%w: length %d not a multiple of record size", ErrCorrupt, length)
			}
			buf := make([]byte, length)
			if _, err := io.ReadFull(f, buf); err != nil {
				return nil, nil, fmt.Errorf("%w: reading key data: %v", ErrCorrupt, err)
			}
			n := int(length) / codec.Size
			recs := make([]T, n)
			for j := 0; j < n; j++ {
				recs[j] = codec.Unmarshal(buf[j*codec.Size : (j+1)*codec.Size])
			}
			postings[key] = append(postings[key], recs...)
			totals[key] += int(pageTotals[i])
		}
	}

	return postings, totals, nil
}

func readU64Slice(f *os.File, n uint64) ([]uint64, error) {
	buf := make([]byte, n*8)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(buf[i*8 : i*8+8])
	}
	return out, nil
}
