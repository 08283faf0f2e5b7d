package lock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gojodb/storagecore/core/storage/page"
	"github.com/gojodb/storagecore/core/txn"
)

func newTestManager() (*Manager, *txn.Registry) {
	reg := txn.NewRegistry()
	return New(reg, zap.NewNop(), Metrics{}), reg
}

func TestLockSharedCompatibility(t *testing.T) {
	mgr, reg := newTestManager()
	rid := page.RID{PageID: 1, Slot: 0}

	a := reg.Begin(txn.RepeatableRead)
	b := reg.Begin(txn.RepeatableRead)

	require.True(t, mgr.LockShared(a, rid))
	require.True(t, mgr.LockShared(b, rid), "two shared locks on the same row must be compatible")
}

func TestLockExclusiveAbortsYoungerRequesterAgainstOlderHolder(t *testing.T) {
	mgr, reg := newTestManager()
	rid := page.RID{PageID: 1, Slot: 0}

	older := reg.Begin(txn.RepeatableRead) // id 0
	younger := reg.Begin(txn.RepeatableRead) // id 1

	require.True(t, mgr.LockExclusive(older, rid))
	require.False(t, mgr.LockExclusive(younger, rid), "a younger requester must not wait past an older exclusive holder")
	assert.Equal(t, txn.StateAborted, younger.State())
}

func TestWoundWaitAbortsYoungerGrantedHolder(t *testing.T) {
	mgr, reg := newTestManager()
	rid := page.RID{PageID: 1, Slot: 0}

	// Begin issues strictly increasing ids, so the first transaction here is
	// the older one. holder (the younger, larger-id transaction) grabs the
	// lock first; the older wounder then requests it and must wound holder
	// rather than wait behind it.
	wounder := reg.Begin(txn.RepeatableRead)
	holder := reg.Begin(txn.RepeatableRead)

	require.True(t, mgr.LockExclusive(holder, rid))
	require.True(t, mgr.LockExclusive(wounder, rid))
	assert.Equal(t, txn.StateAborted, holder.State(), "an older requester must wound a younger granted holder")
}

func TestUnlockTransitionsToShrinkingUnderRepeatableRead(t *testing.T) {
	mgr, reg := newTestManager()
	rid := page.RID{PageID: 1, Slot: 0}
	a := reg.Begin(txn.RepeatableRead)

	require.True(t, mgr.LockShared(a, rid))
	require.True(t, mgr.Unlock(a, rid))
	assert.Equal(t, txn.StateShrinking, a.State())
}

func TestUnlockStaysGrowingUnderReadCommitted(t *testing.T) {
	mgr, reg := newTestManager()
	rid := page.RID{PageID: 1, Slot: 0}
	a := reg.Begin(txn.ReadCommitted)

	require.True(t, mgr.LockShared(a, rid))
	require.True(t, mgr.Unlock(a, rid))
	assert.Equal(t, txn.StateGrowing, a.State())
}

func TestLockSharedUnderReadUncommittedAborts(t *testing.T) {
	mgr, reg := newTestManager()
	rid := page.RID{PageID: 1, Slot: 0}
	a := reg.Begin(txn.ReadUncommitted)

	require.True(t, mgr.LockShared(a, rid))
	assert.Equal(t, txn.StateAborted, a.State())
}

func TestLockUpgrade(t *testing.T) {
	mgr, reg := newTestManager()
	rid := page.RID{PageID: 1, Slot: 0}
	a := reg.Begin(txn.RepeatableRead)

	require.True(t, mgr.LockShared(a, rid))
	require.True(t, mgr.LockUpgrade(a, rid))
	assert.True(t, a.HasExclusive(rid))
	assert.False(t, a.HasShared(rid))
}

func TestGrowingTransactionCannotLockAfterShrinking(t *testing.T) {
	mgr, reg := newTestManager()
	a := reg.Begin(txn.RepeatableRead)
	rid1 := page.RID{PageID: 1, Slot: 0}
	rid2 := page.RID{PageID: 2, Slot: 0}

	require.True(t, mgr.LockShared(a, rid1))
	require.True(t, mgr.Unlock(a, rid1))
	require.False(t, mgr.LockShared(a, rid2), "a shrinking transaction must not acquire new locks")
}

// TestNoDeadlockUnderContention is a coarse liveness check: with wound-wait
// in place, a cycle of transactions contending on the same row must not
// hang forever.
func TestNoDeadlockUnderContention(t *testing.T) {
	mgr, reg := newTestManager()
	rid := page.RID{PageID: 1, Slot: 0}

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 20; i++ {
					tx := reg.Begin(txn.RepeatableRead)
					mgr.LockExclusive(tx, rid)
					mgr.Unlock(tx, rid)
				}
			}()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("wound-wait contention did not resolve within the timeout")
	}
}
