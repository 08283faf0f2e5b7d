package txn

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gojodb/storagecore/core/storage/page"
)

func TestNewTransactionStartsGrowing(t *testing.T) {
	tx := New(0, RepeatableRead)
	require.Equal(t, StateGrowing, tx.State())
	require.NotEmpty(t, tx.Handle(), "every transaction gets a unique log-correlation handle")
}

func TestTransactionLockSetTracking(t *testing.T) {
	tx := New(0, RepeatableRead)
	rid := page.RID{PageID: 1, Slot: 0}

	require.False(t, tx.HasShared(rid))
	tx.AddShared(rid)
	require.True(t, tx.HasShared(rid))

	tx.UpgradeToExclusive(rid)
	require.False(t, tx.HasShared(rid))
	require.True(t, tx.HasExclusive(rid))

	tx.ReleaseLock(rid)
	require.False(t, tx.HasExclusive(rid))
}

func TestStateStringExhaustive(t *testing.T) {
	require.Equal(t, "GROWING", StateGrowing.String())
	require.Equal(t, "SHRINKING", StateShrinking.String())
	require.Equal(t, "COMMITTED", StateCommitted.String())
	require.Equal(t, "ABORTED", StateAborted.String())
}

func TestStateStringPanicsOnUnknownState(t *testing.T) {
	require.Panics(t, func() {
		_ = State(99).String()
	})
}

func TestRegistryBeginIssuesMonotonicIDs(t *testing.T) {
	reg := NewRegistry()
	a := reg.Begin(RepeatableRead)
	b := reg.Begin(RepeatableRead)
	require.Less(t, int64(a.ID()), int64(b.ID()))
	require.NotEqual(t, a.Handle(), b.Handle())
}

func TestRegistryLookupAndForget(t *testing.T) {
	reg := NewRegistry()
	tx := reg.Begin(RepeatableRead)

	require.Same(t, tx, reg.Lookup(tx.ID()))
	reg.Forget(tx.ID())
	require.Nil(t, reg.Lookup(tx.ID()))
}
