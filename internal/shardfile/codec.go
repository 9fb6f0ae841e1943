package shardfile

import "github.com/alexandria-search/engine/internal/record"

// Codec marshals/unmarshals one concrete record variant to/from the fixed
// byte layout a shard file stores (spec §4.A, §9 "templated record
// types": a record's size is a compile-time constant per variant).
type Codec[T any] struct {
	Size      int
	Marshal   func(T, []byte)
	Unmarshal func([]byte) T
}

// PageCodec is the codec for the page-text logical index.
var PageCodec = Codec[record.Page]{
	Size:      record.Size,
	Marshal:   func(p record.Page, buf []byte) { p.Marshal(buf) },
	Unmarshal: record.UnmarshalPage,
}

// LinkCodec returns the codec for a link logical index of the given kind.
// A single shard file only ever holds one kind (URL-anchor or
// domain-anchor), so the kind is baked into the codec rather than stored
// per record.
func LinkCodec(kind record.LinkKind) Codec[record.Link] {
	return Codec[record.Link]{
		Size:    record.LinkSize,
		Marshal: func(l record.Link, buf []byte) { l.Marshal(buf) },
		Unmarshal: func(buf []byte) record.Link {
			return record.UnmarshalLink(buf, kind)
		},
	}
}
