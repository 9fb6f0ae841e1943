package domainmap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexandria-search/engine/internal/config"
)

func TestAddHasHost(t *testing.T) {
	cfg := config.Small()
	cfg.Root = t.TempDir()
	m := New(cfg, "test")

	m.Add(1, 100)
	m.Add(2, 200)

	require.True(t, m.Has(1))
	require.False(t, m.Has(3))

	host, ok := m.Host(2)
	require.True(t, ok)
	require.Equal(t, uint64(200), host)
	require.Equal(t, 2, m.Len())
}

func TestWriteReadRoundTrip(t *testing.T) {
	cfg := config.Small()
	cfg.Root = t.TempDir()
	m := New(cfg, "test")

	for i := uint64(0); i < 50; i++ {
		m.Add(i, i*7+1)
	}
	require.NoError(t, m.Write())

	reloaded := New(cfg, "test")
	require.NoError(t, reloaded.Read())
	require.Equal(t, 50, reloaded.Len())

	for i := uint64(0); i < 50; i++ {
		host, ok := reloaded.Host(i)
		require.True(t, ok)
		require.Equal(t, i*7+1, host)
	}
}

func TestReadMissingFileIsEmpty(t *testing.T) {
	cfg := config.Small()
	cfg.Root = t.TempDir()
	m := New(cfg, "nonexistent")
	require.NoError(t, m.Read())
	require.Equal(t, 0, m.Len())
}
