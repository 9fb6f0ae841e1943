// Package record defines the fixed-layout posting records written into
// shard files (spec §3, §4.A) and the little-endian encoding shared by
// every variant.
package record

import (
	"encoding/binary"
	"math"
)

// Size is the on-disk byte size of a Page record: 8 (value) + 4 (score) +
// 4 (count).
const Size = 16

// Posting is the contract the shard file and shard builder are written
// against (DESIGN NOTES, "templated record types"): a bitwise-copyable
// value type with total ordering by Value ascending, whose Merge combines
// two records that collided on Value.
type Posting[T any] interface {
	GetValue() uint64
	GetScore() float32
	GetCount() uint32
	WithCount(count uint32) T
	Merge(other T) T
}

// Page is the posting record for the page-text logical index: one
// (document, score) pair plus the duplicate-occurrence counter used only
// during a build cycle.
type Page struct {
	Value uint64  // document identifier (hash of canonical URL)
	Score float32 // composite relevance
	Count uint32  // occurrences seen this build cycle; discarded after merge
}

// GetValue implements Posting.
func (p Page) GetValue() uint64 { return p.Value }

// GetScore implements Posting.
func (p Page) GetScore() float32 { return p.Score }

// GetCount implements Posting.
func (p Page) GetCount() uint32 { return p.Count }

// WithCount returns a copy of p with Count replaced.
func (p Page) WithCount(count uint32) Page {
	p.Count = count
	return p
}

// Merge combines two records that collided on Value, summing counts and
// keeping the caller's choice of score (callers dedupe by max-score
// before merging occurrence counts; see shardbuilder).
func (p Page) Merge(o Page) Page {
	p.Count += o.Count
	return p
}

// Marshal encodes p into buf, which must be at least Size bytes.
func (p Page) Marshal(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], p.Value)
	binary.LittleEndian.PutUint32(buf[8:12], float32bits(p.Score))
	binary.LittleEndian.PutUint32(buf[12:16], p.Count)
}

// UnmarshalPage decodes a Page from buf, which must be at least Size bytes.
func UnmarshalPage(buf []byte) Page {
	return Page{
		Value: binary.LittleEndian.Uint64(buf[0:8]),
		Score: float32frombits(binary.LittleEndian.Uint32(buf[8:12])),
		Count: binary.LittleEndian.Uint32(buf[12:16]),
	}
}

// LinkKind distinguishes a link posting's target granularity.
type LinkKind uint8

const (
	// LinkKindURL targets a specific URL.
	LinkKindURL LinkKind = iota
	// LinkKindDomain targets an entire host.
	LinkKindDomain
)

// Link is the posting record for the inbound-anchor-text logical indices
// (URL-level and domain-level link anchor text). Size is 32 bytes:
// Value(8) + Score(4) + Count(4) + SourceDomain(8) + TargetDomain(8).
type Link struct {
	Value        uint64 // target identifier: url_hash (URL kind) or host_hash (domain kind)
	Score        float32
	Count        uint32
	SourceDomain uint64 // host hash of the linking page
	TargetDomain uint64 // host hash of the linked page
	Kind         LinkKind
}

// LinkSize is the on-disk byte size of a Link record. Kind is not stored
// in these 32 bytes; UnmarshalLink takes it as an argument.
const LinkSize = 32

func (l Link) GetValue() uint64  { return l.Value }
func (l Link) GetScore() float32 { return l.Score }
func (l Link) GetCount() uint32  { return l.Count }

// WithCount returns a copy of l with Count replaced.
func (l Link) WithCount(count uint32) Link {
	l.Count = count
	return l
}

func (l Link) Merge(o Link) Link {
	l.Count += o.Count
	return l
}

func (l Link) Marshal(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], l.Value)
	binary.LittleEndian.PutUint32(buf[8:12], float32bits(l.Score))
	binary.LittleEndian.PutUint32(buf[12:16], l.Count)
	binary.LittleEndian.PutUint64(buf[16:24], l.SourceDomain)
	binary.LittleEndian.PutUint64(buf[24:32], l.TargetDomain)
	// Kind is derived by the caller from which logical index the record
	// came from (URL-anchor vs domain-anchor index are separate shard
	// families), so no byte is spent on it on disk.
}

func UnmarshalLink(buf []byte, kind LinkKind) Link {
	return Link{
		Value:        binary.LittleEndian.Uint64(buf[0:8]),
		Score:        float32frombits(binary.LittleEndian.Uint32(buf[8:12])),
		Count:        binary.LittleEndian.Uint32(buf[12:16]),
		SourceDomain: binary.LittleEndian.Uint64(buf[16:24]),
		TargetDomain: binary.LittleEndian.Uint64(buf[24:32]),
		Kind:         kind,
	}
}

func float32bits(f float32) uint32 {
	return math.Float32bits(f)
}

func float32frombits(b uint32) float32 {
	return math.Float32frombits(b)
}
