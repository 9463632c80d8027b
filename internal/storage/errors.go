package storage

import "errors"

// Sentinel errors for the storage engine. MapFull and TxnFull are
// unexported: in the simplified get/put/del helpers they trigger an
// internal abort+expand+retry instead of being returned. errMapFull is
// returned only when maxExpandRetries expansions still leave the write
// failing.
var (
	ErrCorrupted     = errors.New("storage: corrupted data")
	ErrBadTxn        = errors.New("storage: bad transaction")
	ErrEmpty         = errors.New("storage: empty result")
	ErrNotFound      = errors.New("storage: key not found")
	errMapFull       = errors.New("storage: map full")
	errTxnFull       = errors.New("storage: read-write transaction full")
	errWriterOpen    = errors.New("storage: cannot expand while a write transaction is open")
)
