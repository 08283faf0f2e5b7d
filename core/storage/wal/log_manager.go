// Package wal provides the log handle the buffer pool forwards dirty-page
// write-backs to. Recovery, segment rotation, and replication streaming are
// explicit non-goals of the storage core; this manager only appends and
// durably syncs records, and returns the LSN it assigned.
package wal

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/gojodb/storagecore/core/storage/errs"
	"github.com/gojodb/storagecore/core/storage/page"
)

// RecordType distinguishes why a record was appended. The set is
// deliberately small: this log exists to record that a page was written,
// not to drive redo/undo recovery.
type RecordType byte

const (
	RecordTypePageWrite RecordType = iota + 1
	RecordTypeCheckpoint
)

// Record is the unit appended to the log.
type Record struct {
	LSN  page.LSN
	Type RecordType
	Page page.ID
}

// Handle is the narrow, opaque contract the buffer pool depends on. Callers
// above the buffer pool never read the log back through this interface.
type Handle interface {
	Append(rec Record) (page.LSN, error)
}

// Manager is a minimal, non-recovering log: it appends fixed-size records to
// a single file and fsyncs on every append. There is no Recover method and
// no log replay. A nil Handle interface value is what callers treat as
// "logging disabled"; a nil *Manager stored in a Handle is not nil as an
// interface, and calling Append on it panics.
type Manager struct {
	mu      sync.Mutex
	file    *os.File
	nextLSN page.LSN
}

const recordSize = 8 + 1 + 8 // LSN + Type + PageID

// Open creates or appends to the log file at path.
func Open(path string) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w: %v", path, errs.ErrLogFileError, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("wal: stat %s: %w: %v", path, errs.ErrLogFileError, err)
	}
	return &Manager{
		file:    f,
		nextLSN: page.LSN(info.Size()/recordSize) + 1,
	}, nil
}

// Append durably writes rec and returns the LSN assigned to it. The caller's
// rec.LSN field is ignored; the manager owns LSN assignment.
func (m *Manager) Append(rec Record) (page.LSN, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lsn := m.nextLSN
	buf := make([]byte, recordSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(lsn))
	buf[8] = byte(rec.Type)
	binary.LittleEndian.PutUint64(buf[9:17], uint64(rec.Page))

	if _, err := m.file.Write(buf); err != nil {
		return 0, fmt.Errorf("wal: append: %w: %v", errs.ErrLogFileError, err)
	}
	if err := m.file.Sync(); err != nil {
		return 0, fmt.Errorf("wal: sync: %w: %v", errs.ErrLogFileError, err)
	}
	m.nextLSN++
	return lsn, nil
}

// ShutDown closes the underlying log file.
func (m *Manager) ShutDown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file.Close()
}
