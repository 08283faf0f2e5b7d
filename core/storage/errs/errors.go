// Package errs collects the sentinel errors used across the storage core.
// The disk manager and log manager wrap them in their I/O errors; the buffer
// pool's FetchPage/NewPage return them (ErrWrongShard, ErrBufferPoolFull)
// alongside a nil page, and the hash table's GlobalDepth returns
// ErrPageNotFound. Boolean-returning call sites such as DeletePage and the
// hash table's split only log one of these as the cause of a false result.
package errs

import "errors"

var (
	ErrPageNotFound    = errors.New("page not found in buffer pool")
	ErrBufferPoolFull  = errors.New("buffer pool is full and no pages can be evicted")
	ErrPagePinned      = errors.New("page is pinned and cannot be evicted")
	ErrIO              = errors.New("i/o error")
	ErrInvalidPageData = errors.New("invalid page data")
	ErrLogFileError    = errors.New("log file operation error")
	ErrWrongShard      = errors.New("page id does not belong to this shard")
	ErrDirectoryFull   = errors.New("extendible hash directory capacity exhausted")
)
