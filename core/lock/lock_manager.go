// Package lock implements row-level two-phase locking with wound-wait
// deadlock prevention, as used by the executors above the storage core to
// coordinate concurrent access to rows identified by page.RID.
package lock

import (
	"sync"

	"go.uber.org/zap"

	"github.com/gojodb/storagecore/core/storage/page"
	"github.com/gojodb/storagecore/core/txn"
)

// Mode is the granularity-agnostic lock mode requested on a row.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

// request is one transaction's position in a RID's wait/grant queue.
type request struct {
	txnID   txn.ID
	mode    Mode
	granted bool
}

// queue is the per-RID lock state: the ordered request list, the single
// upgrading transaction (if any), and the condition variable waiters block
// on. The cond shares the Manager's mutex.
type queue struct {
	requests  []*request
	upgrading txn.ID
	cond      *sync.Cond
}

// Manager grants and releases row locks. It is constructed with a
// *txn.Registry so it can look up and abort transactions it wounds, rather
// than reading a package-level transaction table.
type Manager struct {
	mu       sync.Mutex
	table    map[page.RID]*queue
	registry *txn.Registry
	logger   *zap.Logger
	metrics  Metrics
}

// New constructs a lock manager bound to registry.
func New(registry *txn.Registry, logger *zap.Logger, metrics Metrics) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		table:    make(map[page.RID]*queue),
		registry: registry,
		logger:   logger,
		metrics:  metrics,
	}
}

func (m *Manager) queueFor(rid page.RID) *queue {
	q, ok := m.table[rid]
	if !ok {
		q = &queue{upgrading: txn.InvalidID}
		q.cond = sync.NewCond(&m.mu)
		m.table[rid] = q
	}
	return q
}

// wound aborts every granted holder in q that is younger than requester,
// clearing them out of its way and waking q's waiters, and reports whether
// an older granted holder remains, which the requester must defer to.
func (m *Manager) wound(q *queue, requester txn.ID, mode Mode) (olderHolderExists bool) {
	for _, r := range q.requests {
		if !r.granted || r.txnID == requester {
			continue
		}
		if mode == Shared && r.mode == Shared {
			continue // compatible, nothing to wound or wait on
		}
		if r.txnID > requester {
			// requester is older: wound the younger granted holder.
			if victim := m.registry.Lookup(r.txnID); victim != nil {
				victim.SetState(txn.StateAborted)
				m.logger.Warn("wound-wait: aborted younger holder",
					zap.Int64("victim", int64(r.txnID)),
					zap.String("victim_handle", victim.Handle()),
					zap.Int64("requester", int64(requester)))
				m.metrics.recordWound()
			}
			r.granted = false
			q.cond.Broadcast()
		} else {
			olderHolderExists = true
		}
	}
	return olderHolderExists
}

// LockShared acquires a shared lock on rid for t.
func (m *Manager) LockShared(t *txn.Transaction, rid page.RID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.State() != txn.StateGrowing {
		t.SetState(txn.StateAborted)
		return false
	}
	if t.IsolationLevel() == txn.ReadUncommitted {
		// Shared locks are meaningless under READ_UNCOMMITTED; signal the
		// caller bug via ABORTED but still hand back the lock so callers
		// that unconditionally S-lock before reading are not broken.
		t.SetState(txn.StateAborted)
		return true
	}
	if t.HasShared(rid) || t.HasExclusive(rid) {
		return true
	}

	q := m.queueFor(rid)
	for {
		if !m.wound(q, t.ID(), Shared) {
			break
		}
		if t.State() == txn.StateAborted {
			return false
		}
		q.cond.Wait()
		if t.State() == txn.StateAborted {
			return false
		}
	}

	q.requests = append(q.requests, &request{txnID: t.ID(), mode: Shared, granted: true})
	t.AddShared(rid)
	m.metrics.recordGrant(Shared)
	return true
}

// LockExclusive acquires an exclusive lock on rid for t. If t already holds
// a shared lock, this delegates to LockUpgrade.
func (m *Manager) LockExclusive(t *txn.Transaction, rid page.RID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.State() != txn.StateGrowing {
		t.SetState(txn.StateAborted)
		return false
	}
	if t.HasShared(rid) {
		return m.lockUpgradeLocked(t, rid)
	}
	if t.HasExclusive(rid) {
		return true
	}

	q := m.queueFor(rid)
	if m.wound(q, t.ID(), Exclusive) {
		// Strict wound-wait: a younger requester does not wait past an
		// older granted holder for an exclusive lock; it aborts itself.
		t.SetState(txn.StateAborted)
		return false
	}

	q.requests = append(q.requests, &request{txnID: t.ID(), mode: Exclusive, granted: true})
	t.AddExclusive(rid)
	m.metrics.recordGrant(Exclusive)
	return true
}

// LockUpgrade upgrades t's shared lock on rid to exclusive.
func (m *Manager) LockUpgrade(t *txn.Transaction, rid page.RID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lockUpgradeLocked(t, rid)
}

func (m *Manager) lockUpgradeLocked(t *txn.Transaction, rid page.RID) bool {
	q := m.queueFor(rid)
	if q.upgrading != txn.InvalidID && q.upgrading != t.ID() {
		t.SetState(txn.StateAborted)
		return false
	}
	q.upgrading = t.ID()

	for {
		olderHolder := false
		for _, r := range q.requests {
			if !r.granted || r.txnID == t.ID() {
				continue
			}
			if r.txnID > t.ID() {
				if victim := m.registry.Lookup(r.txnID); victim != nil {
					victim.SetState(txn.StateAborted)
					m.logger.Warn("wound-wait: aborted younger holder during upgrade",
						zap.Int64("victim", int64(r.txnID)),
						zap.String("victim_handle", victim.Handle()),
						zap.Int64("requester", int64(t.ID())))
					m.metrics.recordWound()
				}
				r.granted = false
				q.cond.Broadcast()
			} else {
				olderHolder = true
			}
		}
		if !olderHolder {
			break
		}
		if t.State() == txn.StateAborted {
			q.upgrading = txn.InvalidID
			return false
		}
		q.cond.Wait()
		if t.State() == txn.StateAborted {
			q.upgrading = txn.InvalidID
			return false
		}
	}

	for _, r := range q.requests {
		if r.txnID == t.ID() {
			r.mode = Exclusive
			r.granted = true
		}
	}
	q.upgrading = txn.InvalidID
	t.UpgradeToExclusive(rid)
	m.metrics.recordGrant(Exclusive)
	return true
}

// Unlock releases t's lock on rid, transitioning t to SHRINKING unless its
// isolation level is READ_COMMITTED (where shared locks may be released
// early without leaving the growing phase).
func (m *Manager) Unlock(t *txn.Transaction, rid page.RID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.State() == txn.StateGrowing && t.IsolationLevel() != txn.ReadCommitted {
		t.SetState(txn.StateShrinking)
	}

	q, ok := m.table[rid]
	if ok {
		kept := q.requests[:0]
		for _, r := range q.requests {
			if r.txnID != t.ID() {
				kept = append(kept, r)
			}
		}
		q.requests = kept
		q.cond.Broadcast()
	}
	t.ReleaseLock(rid)
	return true
}
