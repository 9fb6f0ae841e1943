// Package shardfile implements the on-disk shard file format (spec §3,
// §4.B): a dense key-directory plus per-key posting pages, arranged so a
// single seek locates any key's posting list.
package shardfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/valyala/bytebufferpool"

	"github.com/alexandria-search/engine/internal/config"
)

var log = logging.Logger("shardfile")

// Sentinel marks an empty directory slot (spec §3, "SIZE_MAX").
const Sentinel = ^uint64(0)

// directoryEntrySize is the byte width of one key-directory slot.
const directoryEntrySize = 8

// ErrCorrupt wraps the IoCorrupt error kind of spec §7: a truncated file,
// a length exceeding guard limits, or an unexpected EOF inside a page.
// The shard is treated as empty for the affected query, never fatal.
var ErrCorrupt = errors.New("shardfile: corrupt page")

// maxKeysPerPage guards against allocating absurd amounts of memory from a
// corrupt num_keys field (spec §7 InputMalformed/IoCorrupt boundary).
const maxKeysPerPage = 10_000_000

// Shard is a read-only handle on one shard file of one logical index.
// Multiple concurrent readers are allowed; find never blocks on merge
// because merge writes to a temp path and renames (spec §3 Lifecycle).
type Shard[T any] struct {
	dataPath string
	dirPath  string
	cfg      *config.Config
	codec    Codec[T]

	data *os.File // nil => shard reports zero keys
	dir  *os.File
}

// Open opens path's data+directory files read-only. A missing data or
// directory file is not an error: the shard simply reports zero keys.
func Open[T any](dataPath, dirPath string, cfg *config.Config, codec Codec[T]) (*Shard[T], error) {
	s := &Shard[T]{dataPath: dataPath, dirPath: dirPath, cfg: cfg, codec: codec}

	data, err := os.Open(dataPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("shardfile: open data: %w", err)
		}
	} else {
		s.data = data
	}

	dir, err := os.Open(dirPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("shardfile: open directory: %w", err)
		}
	} else {
		s.dir = dir
	}

	return s, nil
}

// Close releases the underlying file handles.
func (s *Shard[T]) Close() error {
	var err error
	if s.data != nil {
		err = errors.Join(err, s.data.Close())
	}
	if s.dir != nil {
		err = errors.Join(err, s.dir.Close())
	}
	return err
}

// Result is the outcome of Find: the posting list in sectioned
// value-ascending order (spec §3 invariants), plus the pre-truncation
// total count used for idf-style scoring.
type Result[T any] struct {
	Records []T
	Total   int
}

// Find returns the posting list for key, or an empty result if absent.
// A corrupt page is logged and treated as empty rather than propagated
// (spec §4.B "Failure", §7 IoCorrupt).
func (s *Shard[T]) Find(key uint64) (Result[T], error) {
	if s.dir == nil || s.data == nil {
		return Result[T]{}, nil
	}

	slot := key % s.cfg.ShardHashTableSize
	offset, err := s.readDirectorySlot(slot)
	if err != nil {
		log.Warnw("directory read failed, treating shard as empty", "path", s.dirPath, "err", err)
		return Result[T]{}, nil
	}
	if offset == Sentinel {
		return Result[T]{}, nil
	}

	res, err := s.findInPage(offset, key)
	if err != nil {
		log.Warnw("corrupt page, treating shard as empty for this query", "path", s.dataPath, "offset", offset, "err", err)
		return Result[T]{}, nil
	}
	return res, nil
}

func (s *Shard[T]) readDirectorySlot(slot uint64) (uint64, error) {
	var buf [directoryEntrySize]byte
	n, err := s.dir.ReadAt(buf[:], int64(slot)*directoryEntrySize)
	if err != nil && !(err == io.EOF && n == directoryEntrySize) {
		if err == io.EOF {
			// Slot past end of a short/truncated directory: empty.
			return Sentinel, nil
		}
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (s *Shard[T]) findInPage(offset uint64, key uint64) (Result[T], error) {
	numKeys, err := s.readUint64At(int64(offset))
	if err != nil {
		return Result[T]{}, err
	}
	if numKeys > maxKeysPerPage {
		return Result[T]{}, fmt.Errorf("%w: num_keys=%d exceeds guard", ErrCorrupt, numKeys)
	}

	keysOff := int64(offset) + 8
	keys, err := s.readUint64Array(keysOff, numKeys)
	if err != nil {
		return Result[T]{}, err
	}

	idx := -1
	for i, k := range keys {
		if k == key {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Result[T]{}, nil
	}

	positionsOff := keysOff + int64(numKeys)*8
	lengthsOff := positionsOff + int64(numKeys)*8
	totalsOff := lengthsOff + int64(numKeys)*8
	dataStart := totalsOff + int64(numKeys)*8

	position, err := s.readUint64At(positionsOff + int64(idx)*8)
	if err != nil {
		return Result[T]{}, err
	}
	length, err := s.readUint64At(lengthsOff + int64(idx)*8)
	if err != nil {
		return Result[T]{}, err
	}
	total, err := s.readUint64At(totalsOff + int64(idx)*8)
	if err != nil {
		return Result[T]{}, err
	}

	if s.codec.Size <= 0 || length%uint64(s.codec.Size) != 0 {
		return Result[T]{}, fmt.Errorf("%w: length %d not a multiple of record size %d", ErrCorrupt, length, s.codec.Size)
	}
	if length > uint64(maxKeysPerPage)*uint64(s.codec.Size) {
		return Result[T]{}, fmt.Errorf("%w: length %d exceeds guard", ErrCorrupt, length)
	}

	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	if cap(bb.B) >= int(length) {
		bb.B = bb.B[:length]
	} else {
		bb.B = make([]byte, length)
	}
	if _, err := s.data.ReadAt(bb.B, dataStart+int64(position)); err != nil {
		return Result[T]{}, fmt.Errorf("%w: reading data: %v", ErrCorrupt, err)
	}

	numRecords := int(length) / s.codec.Size
	records := make([]T, numRecords)
	for i := 0; i < numRecords; i++ {
		records[i] = s.codec.Unmarshal(bb.B[i*s.codec.Size : (i+1)*s.codec.Size])
	}

	return Result[T]{Records: records, Total: int(total)}, nil
}

func (s *Shard[T]) readUint64At(off int64) (uint64, error) {
	var buf [8]byte
	if _, err := s.data.ReadAt(buf[:], off); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (s *Shard[T]) readUint64Array(off int64, n uint64) ([]uint64, error) {
	buf := make([]byte, n*8)
	if _, err := s.data.ReadAt(buf, off); err != nil {
		return nil, err
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(buf[i*8 : i*8+8])
	}
	return out, nil
}

// Truncate empties the shard: both files are replaced with an empty data
// file and an all-sentinel directory.
func Truncate(dataPath, dirPath string, cfg *config.Config) error {
	if err := os.WriteFile(dataPath, nil, 0o644); err != nil {
		return fmt.Errorf("shardfile: truncate data: %w", err)
	}
	dirBuf := make([]byte, cfg.ShardHashTableSize*directoryEntrySize)
	for i := uint64(0); i < cfg.ShardHashTableSize; i++ {
		binary.LittleEndian.PutUint64(dirBuf[i*8:i*8+8], Sentinel)
	}
	if err := os.WriteFile(dirPath, dirBuf, 0o644); err != nil {
		return fmt.Errorf("shardfile: truncate directory: %w", err)
	}
	return nil
}
