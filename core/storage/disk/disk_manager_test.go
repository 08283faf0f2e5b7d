package disk

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gojodb/storagecore/core/storage/page"
)

func TestDiskManagerWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	dm, err := Open(path)
	require.NoError(t, err)
	defer dm.ShutDown()

	id := dm.AllocatePage()
	buf := make([]byte, page.Size)
	copy(buf, []byte("hello-disk"))
	require.NoError(t, dm.WritePage(id, buf))

	out := make([]byte, page.Size)
	require.NoError(t, dm.ReadPage(id, out))
	require.Equal(t, "hello-disk", string(out[:10]))
}

func TestDiskManagerReadBeyondEOFIsZeroed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	dm, err := Open(path)
	require.NoError(t, err)
	defer dm.ShutDown()

	out := make([]byte, page.Size)
	for i := range out {
		out[i] = 0xff
	}
	require.NoError(t, dm.ReadPage(page.ID(5), out))
	for i, b := range out {
		require.Zerof(t, b, "byte %d should be zeroed for a page never written", i)
	}
}

func TestDiskManagerAllocatePageResumesFromFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	dm1, err := Open(path)
	require.NoError(t, err)
	buf := make([]byte, page.Size)
	for i := 0; i < 3; i++ {
		id := dm1.AllocatePage()
		require.NoError(t, dm1.WritePage(id, buf))
	}
	require.NoError(t, dm1.ShutDown())

	dm2, err := Open(path)
	require.NoError(t, err)
	defer dm2.ShutDown()
	next := dm2.AllocatePage()
	require.Equal(t, page.ID(3), next, "reopening must resume allocation after the pages already on disk")
}

func TestDiskManagerRejectsWrongSizedBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	dm, err := Open(path)
	require.NoError(t, err)
	defer dm.ShutDown()

	require.Error(t, dm.WritePage(0, make([]byte, page.Size-1)))
	require.Error(t, dm.ReadPage(0, make([]byte, page.Size+1)))
}
