// Package txn models the two-phase-locking transaction the lock manager
// enforces: its growing/shrinking state machine, isolation level, and the
// sets of row locks it currently holds.
package txn

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gojodb/storagecore/core/storage/page"
)

// State is the 2PL phase a transaction is in.
type State int

const (
	StateGrowing State = iota
	StateShrinking
	StateCommitted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateGrowing:
		return "GROWING"
	case StateShrinking:
		return "SHRINKING"
	case StateCommitted:
		return "COMMITTED"
	case StateAborted:
		return "ABORTED"
	default:
		panic("txn: unknown state")
	}
}

// IsolationLevel selects which lock acquisition rules a transaction follows.
type IsolationLevel int

const (
	ReadUncommitted IsolationLevel = iota
	ReadCommitted
	RepeatableRead
)

// ID identifies a transaction. Lower ids are older; wound-wait compares ids
// directly to decide who wounds whom.
type ID int64

// InvalidID marks the absence of a transaction.
const InvalidID ID = -1

// Transaction is the external view the lock manager reads and mutates. It
// does not know about query execution, pages, or the buffer pool; it only
// tracks locking state.
type Transaction struct {
	mu sync.Mutex

	id        ID
	handle    string
	state     State
	isolation IsolationLevel
	shared    map[page.RID]struct{}
	exclusive map[page.RID]struct{}
}

// New constructs a running (GROWING) transaction. handle is a process-wide
// unique correlation id for log lines and traces, distinct from id: id is a
// small monotonic integer wound-wait compares directly, while handle
// survives being logged next to ids from other registries or processes
// without risk of collision.
func New(id ID, isolation IsolationLevel) *Transaction {
	return &Transaction{
		id:        id,
		handle:    uuid.NewString(),
		state:     StateGrowing,
		isolation: isolation,
		shared:    make(map[page.RID]struct{}),
		exclusive: make(map[page.RID]struct{}),
	}
}

func (t *Transaction) ID() ID                        { return t.id }
func (t *Transaction) Handle() string                { return t.handle }
func (t *Transaction) IsolationLevel() IsolationLevel { return t.isolation }

func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) SetState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

func (t *Transaction) HasShared(rid page.RID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.shared[rid]
	return ok
}

func (t *Transaction) HasExclusive(rid page.RID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.exclusive[rid]
	return ok
}

func (t *Transaction) AddShared(rid page.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.shared[rid] = struct{}{}
}

func (t *Transaction) AddExclusive(rid page.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.exclusive[rid] = struct{}{}
}

// UpgradeToExclusive moves rid from the shared set to the exclusive set.
func (t *Transaction) UpgradeToExclusive(rid page.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.shared, rid)
	t.exclusive[rid] = struct{}{}
}

func (t *Transaction) ReleaseLock(rid page.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.shared, rid)
	delete(t.exclusive, rid)
}
