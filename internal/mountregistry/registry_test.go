package mountregistry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddListRemoveRoundTrips(t *testing.T) {
	r := Open(filepath.Join(t.TempDir(), "mounts.toml"))

	e, err := r.Add("/collections/work", "/mnt/work")
	require.NoError(t, err)
	require.NotEmpty(t, e.Token)

	entries, err := r.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "/mnt/work", entries[0].Mountpoint)

	require.NoError(t, r.Remove(e.Token))

	entries, err = r.List()
	require.NoError(t, err)
	require.Len(t, entries, 0)
}

func TestListOnMissingFileIsEmpty(t *testing.T) {
	r := Open(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	entries, err := r.List()
	require.NoError(t, err)
	require.Len(t, entries, 0)
}
