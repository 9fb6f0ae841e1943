package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageMarshalRoundTrip(t *testing.T) {
	p := Page{Value: 0xdeadbeefcafebabe, Score: 3.25, Count: 7}
	buf := make([]byte, Size)
	p.Marshal(buf)
	got := UnmarshalPage(buf)
	require.Equal(t, p, got)
}

func TestLinkMarshalRoundTrip(t *testing.T) {
	l := Link{Value: 42, Score: 1.5, Count: 2, SourceDomain: 9, TargetDomain: 10}
	buf := make([]byte, LinkSize)
	l.Marshal(buf)
	got := UnmarshalLink(buf, LinkKindDomain)
	l.Kind = LinkKindDomain
	require.Equal(t, l, got)
}

func TestNormalizeFoldsAndTrims(t *testing.T) {
	require.Equal(t, "hello world", Normalize("  Hello World  "))
	require.Equal(t, "caf", Normalize("CAFÉ"))
}

func TestHashTermStableAcrossCase(t *testing.T) {
	require.Equal(t, HashTerm("Golang"), HashTerm("  golang "))
}
