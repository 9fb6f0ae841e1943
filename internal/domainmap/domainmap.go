// Package domainmap implements the URL→domain map (spec §4.D): an
// append-only sequence of (url_hash, host_hash) pairs, loaded back into
// an in-memory set for existence checks and a map for host lookup.
package domainmap

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"github.com/tidwall/hashmap"

	"github.com/alexandria-search/engine/internal/config"
	"github.com/alexandria-search/engine/internal/layout"
)

var log = logging.Logger("domainmap")

// entrySize is the on-disk width of one (url_hash, host_hash) pair.
const entrySize = 16

// Map is the URL→domain map for one logical index name. add is
// thread-safe under a single mutex (spec §4.D, §5); read/write are not
// concurrent with add and are meant for batch boundaries.
type Map struct {
	mu   sync.Mutex
	path string

	pending []entry

	hosts hashmap.Map[uint64, uint64] // url_hash -> host_hash
}

type entry struct {
	urlHash, hostHash uint64
}

// New constructs an empty in-memory map bound to the on-disk file for
// logical index name.
func New(cfg *config.Config, name string) *Map {
	return &Map{path: layout.DomainMap(cfg, name)}
}

// Add records (urlHash, hostHash), buffering in memory until Write is
// called. Safe for concurrent use.
func (m *Map) Add(urlHash, hostHash uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, entry{urlHash, hostHash})
	m.hosts.Set(urlHash, hostHash)
}

// Has reports whether urlHash has been recorded.
func (m *Map) Has(urlHash uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.hosts.Get(urlHash)
	return ok
}

// Host returns the host hash recorded for urlHash.
func (m *Map) Host(urlHash uint64) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hosts.Get(urlHash)
}

// Len returns the number of distinct URLs recorded.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hosts.Len()
}

// Read loads the on-disk file into the in-memory set and map, replacing
// whatever was previously held (spec §4.D read()). A missing file yields
// an empty map.
func (m *Map) Read() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			m.hosts = hashmap.Map[uint64, uint64]{}
			m.pending = nil
			return nil
		}
		return fmt.Errorf("domainmap: open %s: %w", m.path, err)
	}
	defer f.Close()

	fresh := hashmap.Map[uint64, uint64]{}
	r := bufio.NewReader(f)
	buf := make([]byte, entrySize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if err == io.EOF {
				break
			}
			if err == io.ErrUnexpectedEOF {
				log.Warnw("domain map truncated at tail, ignoring partial entry", "path", m.path)
				break
			}
			return fmt.Errorf("domainmap: read %s: %w", m.path, err)
		}
		urlHash := binary.LittleEndian.Uint64(buf[0:8])
		hostHash := binary.LittleEndian.Uint64(buf[8:16])
		fresh.Set(urlHash, hostHash)
	}

	m.hosts = fresh
	m.pending = nil
	return nil
}

// Write rewrites the on-disk file from the current in-memory contents
// (spec §4.D write(id)), atomically replacing any previous file.
func (m *Map) Write() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("domainmap: mkdir: %w", err)
	}

	tmp := m.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("domainmap: create %s: %w", tmp, err)
	}

	w := bufio.NewWriter(f)
	buf := make([]byte, entrySize)
	keys := m.hosts.Keys()
	for _, urlHash := range keys {
		hostHash, _ := m.hosts.Get(urlHash)
		binary.LittleEndian.PutUint64(buf[0:8], urlHash)
		binary.LittleEndian.PutUint64(buf[8:16], hostHash)
		if _, err := w.Write(buf); err != nil {
			f.Close()
			return fmt.Errorf("domainmap: write: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("domainmap: flush: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("domainmap: fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("domainmap: close: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("domainmap: rename: %w", err)
	}

	log.Infow("wrote domain map", "path", m.path, "entries", len(keys))
	return nil
}
