package wal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gojodb/storagecore/core/storage/page"
)

func TestLogManagerAppendAssignsIncreasingLSNs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wal")
	m, err := Open(path)
	require.NoError(t, err)
	defer m.ShutDown()

	lsn1, err := m.Append(Record{Type: RecordTypePageWrite, Page: 1})
	require.NoError(t, err)
	lsn2, err := m.Append(Record{Type: RecordTypePageWrite, Page: 2})
	require.NoError(t, err)
	require.Greater(t, lsn2, lsn1)
}

func TestLogManagerResumesLSNSequenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wal")

	m1, err := Open(path)
	require.NoError(t, err)
	var last page.LSN
	for i := 0; i < 5; i++ {
		last, err = m1.Append(Record{Type: RecordTypePageWrite, Page: page.ID(i)})
		require.NoError(t, err)
	}
	require.NoError(t, m1.ShutDown())

	m2, err := Open(path)
	require.NoError(t, err)
	defer m2.ShutDown()
	next, err := m2.Append(Record{Type: RecordTypePageWrite, Page: 99})
	require.NoError(t, err)
	require.Greater(t, next, last, "a reopened log must not reassign an LSN already on disk")
}

func TestLogManagerHandleInterfaceSatisfiedByManager(t *testing.T) {
	var _ Handle = (*Manager)(nil)
}
