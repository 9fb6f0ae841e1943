package shardfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alexandria-search/engine/internal/config"
)

// Writer builds a new shard file: a fresh data file written page by page
// plus a directory written slot by slot, fsynced and atomically renamed
// over the live shard file on Commit (spec §4.C merge step 4-5).
type Writer[T any] struct {
	dataPath, dirPath         string
	dataTmpPath, dirTmpPath   string
	cfg                       *config.Config
	codec                     Codec[T]
	dataFile                  *os.File
	dataWriter                *bufio.Writer
	dirFile                   *os.File
	offset                    int64
}

// CreateWriter opens fresh temp files for a shard file build. The
// directory is pre-filled with sentinels so untouched slots read as
// empty even if Commit is never called.
func CreateWriter[T any](dataPath, dirPath string, cfg *config.Config, codec Codec[T]) (*Writer[T], error) {
	dataTmp := dataPath + ".tmp"
	dirTmp := dirPath + ".tmp"

	dataFile, err := os.Create(dataTmp)
	if err != nil {
		return nil, fmt.Errorf("shardfile: create data tmp: %w", err)
	}
	dirFile, err := os.Create(dirTmp)
	if err != nil {
		dataFile.Close()
		return nil, fmt.Errorf("shardfile: create dir tmp: %w", err)
	}

	w := &Writer[T]{
		dataPath: dataPath, dirPath: dirPath,
		dataTmpPath: dataTmp, dirTmpPath: dirTmp,
		cfg: cfg, codec: codec,
		dataFile: dataFile, dataWriter: bufio.NewWriterSize(dataFile, 1<<20),
		dirFile: dirFile,
	}

	if err := w.initDirectory(); err != nil {
		w.Abort()
		return nil, err
	}
	return w, nil
}

func (w *Writer[T]) initDirectory() error {
	const batch = 4096
	buf := make([]byte, batch*8)
	for i := range buf {
		buf[i] = 0xff // Sentinel is all-ones (^uint64(0)).
	}
	remaining := w.cfg.ShardHashTableSize
	for remaining > 0 {
		n := uint64(batch)
		if remaining < n {
			n = remaining
		}
		if _, err := w.dirFile.Write(buf[:n*8]); err != nil {
			return fmt.Errorf("shardfile: init directory: %w", err)
		}
		remaining -= n
	}
	return nil
}

// PendingKey is one key's bucketed postings awaiting a page write.
type PendingKey[T any] struct {
	Key     uint64
	Records []T // already deduped, truncated and sectioned (spec §4.C step 3)
	Total   int // pre-truncation count
}

// WriteSlot writes one page containing every key assigned to slot and
// records the page's offset in the directory (spec §3 Page format,
// invariant "at most one page per slot").
func (w *Writer[T]) WriteSlot(slot uint64, keys []PendingKey[T]) error {
	if len(keys) == 0 {
		return nil
	}
	pageOffset := w.offset

	var hdr [8]byte
	binary.LittleEndian.PutUint64(hdr[:], uint64(len(keys)))
	if err := w.write(hdr[:]); err != nil {
		return err
	}

	for _, k := range keys {
		if err := w.writeU64(k.Key); err != nil {
			return err
		}
	}

	pos := uint64(0)
	for _, k := range keys {
		if err := w.writeU64(pos); err != nil {
			return err
		}
		pos += uint64(len(k.Records) * w.codec.Size)
	}
	for _, k := range keys {
		if err := w.writeU64(uint64(len(k.Records) * w.codec.Size)); err != nil {
			return err
		}
	}
	for _, k := range keys {
		if err := w.writeU64(uint64(k.Total)); err != nil {
			return err
		}
	}

	recBuf := make([]byte, w.codec.Size)
	for _, k := range keys {
		for _, r := range k.Records {
			w.codec.Marshal(r, recBuf)
			if err := w.write(recBuf); err != nil {
				return err
			}
		}
	}

	return w.writeDirectorySlot(slot, uint64(pageOffset))
}

func (w *Writer[T]) write(b []byte) error {
	n, err := w.dataWriter.Write(b)
	w.offset += int64(n)
	return err
}

func (w *Writer[T]) writeU64(v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return w.write(b[:])
}

func (w *Writer[T]) writeDirectorySlot(slot, pageOffset uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], pageOffset)
	_, err := w.dirFile.WriteAt(buf[:], int64(slot)*directoryEntrySize)
	return err
}

// Commit flushes, fsyncs, and atomically renames both temp files over the
// live shard file (spec §3 Lifecycle: "a read never sees a partially
// written file").
func (w *Writer[T]) Commit() error {
	if err := w.dataWriter.Flush(); err != nil {
		return fmt.Errorf("shardfile: flush data: %w", err)
	}
	if err := w.dataFile.Sync(); err != nil {
		return fmt.Errorf("shardfile: fsync data: %w", err)
	}
	if err := w.dirFile.Sync(); err != nil {
		return fmt.Errorf("shardfile: fsync directory: %w", err)
	}
	if err := w.dataFile.Close(); err != nil {
		return fmt.Errorf("shardfile: close data: %w", err)
	}
	if err := w.dirFile.Close(); err != nil {
		return fmt.Errorf("shardfile: close directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(w.dataPath), 0o755); err != nil {
		return fmt.Errorf("shardfile: mkdir: %w", err)
	}
	if err := os.Rename(w.dataTmpPath, w.dataPath); err != nil {
		return fmt.Errorf("shardfile: rename data: %w", err)
	}
	if err := os.Rename(w.dirTmpPath, w.dirPath); err != nil {
		return fmt.Errorf("shardfile: rename directory: %w", err)
	}
	return nil
}

// Abort discards the temp files without touching the live shard file.
func (w *Writer[T]) Abort() {
	w.dataFile.Close()
	w.dirFile.Close()
	os.Remove(w.dataTmpPath)
	os.Remove(w.dirTmpPath)
}
