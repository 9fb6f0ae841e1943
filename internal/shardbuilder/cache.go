package shardbuilder

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/alexandria-search/engine/internal/shardfile"
)

// appendCache appends keys/records to the parallel .cache/.cache.keys
// files, matching the C++ source's append-only write (one ofstream
// opened with ios::app per call).
func appendCache[T any](p paths, codec shardfile.Codec[T], keys []uint64, records []T) error {
	if err := os.MkdirAll(filepath.Dir(p.cache), 0o755); err != nil {
		return err
	}

	recordFile, err := os.OpenFile(p.cache, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer recordFile.Close()

	keyFile, err := os.OpenFile(p.cacheKeys, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer keyFile.Close()

	rw := bufio.NewWriter(recordFile)
	buf := make([]byte, codec.Size)
	for _, r := range records {
		codec.Marshal(r, buf)
		if _, err := rw.Write(buf); err != nil {
			return err
		}
	}
	if err := rw.Flush(); err != nil {
		return err
	}

	kw := bufio.NewWriter(keyFile)
	var kbuf [8]byte
	for _, k := range keys {
		binary.LittleEndian.PutUint64(kbuf[:], k)
		if _, err := kw.Write(kbuf[:]); err != nil {
			return err
		}
	}
	return kw.Flush()
}

// readCache streams the .cache/.cache.keys pair and buckets postings by
// key into dst (spec §4.C merge step 2).
func readCache[T any](p paths, codec shardfile.Codec[T], dst map[uint64][]T) error {
	recordFile, err := os.Open(p.cache)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer recordFile.Close()

	keyFile, err := os.Open(p.cacheKeys)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer keyFile.Close()

	const batch = 100_000
	recBuf := make([]byte, codec.Size*batch)
	keyBuf := make([]byte, 8*batch)

	for {
		n, err := io.ReadFull(recordFile, recBuf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return err
		}
		numRecords := n / codec.Size

		if numRecords > 0 {
			if _, kerr := io.ReadFull(keyFile, keyBuf[:numRecords*8]); kerr != nil && kerr != io.EOF && kerr != io.ErrUnexpectedEOF {
				return kerr
			}
			for i := 0; i < numRecords; i++ {
				key := binary.LittleEndian.Uint64(keyBuf[i*8 : i*8+8])
				rec := codec.Unmarshal(recBuf[i*codec.Size : (i+1)*codec.Size])
				dst[key] = append(dst[key], rec)
			}
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
	}
	return nil
}

// truncateCache deletes the contents of both cache files, keeping them
// present but empty (spec §4.C truncate_cache_files()).
func truncateCache(p paths) error {
	if err := os.WriteFile(p.cache, nil, 0o644); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.WriteFile(p.cacheKeys, nil, 0o644); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// cacheSize returns the combined size in bytes of both cache files.
func cacheSize(p paths) (int64, error) {
	var total int64
	for _, path := range []string{p.cache, p.cacheKeys} {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}
