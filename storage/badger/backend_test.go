package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/bidgrid/core"
	"github.com/poiesic/bidgrid/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	defer backend.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := OpenBackend(path, false)
	assert.Error(t, err)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())
}

func TestWithTx_ClosedBackend(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	require.NoError(t, repos.Close())

	_, err = repos.Vendors.GetVendor(context.Background(), core.NewID(), core.NewID())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestMakeKey(t *testing.T) {
	assert.Equal(t, "vndeml:o1:a@b.com", string(makeKey(vendorEmailPrefix, "o1", "a@b.com")))
	assert.Equal(t, "rfpown:o1:", string(makePartialKey(rfpOwnerPrefix, "o1")))
	assert.Equal(t, "usr:abc", string(makeUserKey("abc")))
}
