package storage

import "github.com/bmatsuo/lmdb-go/lmdb"

// Database is one named sub-database within an Environment (spec.md
// §4.2: "blocks, block_indexes, ... stakes (duplicate-key enabled)").
type Database struct {
	env     *Environment
	dbi     lmdb.DBI
	dupSort bool
}

// OpenDatabase interns and returns the named sub-database, creating it
// in the environment if this is the first reference.
func (e *Environment) OpenDatabase(name string, dupSort bool) (*Database, error) {
	dbi, err := e.subDatabase(name, dupSort)
	if err != nil {
		return nil, err
	}
	return &Database{env: e, dbi: dbi, dupSort: dupSort}, nil
}

const maxExpandRetries = 16

// runWrite executes fn inside a write transaction, retrying with map
// growth on MAP_FULL/TXN_FULL (spec.md §4.2 "Growth policy"). The whole
// environment's write lock is held for the duration, matching spec.md
// §4.2's "a read-write transaction is exclusive across the environment".
func (e *Environment) runWrite(fn func(txn *lmdb.Txn) error) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	for attempt := 0; attempt < maxExpandRetries; attempt++ {
		err := e.env.Update(fn)
		if err == nil {
			return nil
		}
		if !lmdb.IsMapFull(err) && !isTxnFull(err) {
			return err
		}
		if expErr := e.expand(); expErr != nil {
			return expErr
		}
	}
	return errMapFull
}

func isTxnFull(err error) bool {
	if errno, ok := err.(lmdb.Errno); ok {
		return errno == lmdb.TxnFull
	}
	return false
}

// runRead executes fn inside a read-only transaction. Readers may run
// concurrently with the single writer (spec.md §4.2).
func (e *Environment) runRead(fn func(txn *lmdb.Txn) error) error {
	return e.env.View(fn)
}

// Get fetches value by key, returning ErrNotFound if absent. MAP_FULL and
// TXN_FULL never escape this helper (spec.md §7).
func (d *Database) Get(key []byte) ([]byte, error) {
	var out []byte
	err := d.env.runRead(func(txn *lmdb.Txn) error {
		v, err := txn.Get(d.dbi, key)
		if lmdb.IsNotFound(err) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Put stores value under key, auto-expanding the map on MAP_FULL.
func (d *Database) Put(key, value []byte) error {
	return d.env.runWrite(func(txn *lmdb.Txn) error {
		return txn.Put(d.dbi, key, value, 0)
	})
}

// Del removes key (and, for a dup-sort database, every value under it),
// auto-expanding the map on MAP_FULL.
func (d *Database) Del(key []byte) error {
	return d.env.runWrite(func(txn *lmdb.Txn) error {
		err := txn.Del(d.dbi, key, nil)
		if lmdb.IsNotFound(err) {
			return nil
		}
		return err
	})
}

// PutDup stores value under key in a duplicate-key database without
// clobbering existing values under the same key (spec.md §4.2: "stakes
// (duplicate-key enabled): one candidate → many stakes").
func (d *Database) PutDup(key, value []byte) error {
	return d.env.runWrite(func(txn *lmdb.Txn) error {
		return txn.Put(d.dbi, key, value, 0)
	})
}

// Exists reports whether key has at least one value.
func (d *Database) Exists(key []byte) (bool, error) {
	_, err := d.Get(key)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Count returns the number of entries in the database, used by
// output_count (spec.md §4.3).
func (d *Database) Count() (uint64, error) {
	var n uint64
	err := d.env.runRead(func(txn *lmdb.Txn) error {
		stat, err := txn.Stat(d.dbi)
		if err != nil {
			return err
		}
		n = uint64(stat.Entries)
		return nil
	})
	return n, err
}
