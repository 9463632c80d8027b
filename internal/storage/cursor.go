package storage

import "github.com/bmatsuo/lmdb-go/lmdb"

// CursorOp names the subset of LMDB cursor operations spec.md §4.2 uses:
// FIRST/NEXT iteration, SET exact match, SET_RANGE for nearest
// greater-or-equal.
type CursorOp int

const (
	OpFirst CursorOp = iota
	OpNext
	OpSet
	OpSetRange
)

// Cursor walks one sub-database within a single storage Txn.
type Cursor struct {
	c *lmdb.Cursor
}

// Txn is one atomic unit of work spanning every sub-database writes need
// to touch (spec.md §4.3 put_block: "one storage transaction covering
// every write below"). It wraps the underlying LMDB transaction so the
// blockchain store can sequence several Database.Put/Del calls inside
// one commit.
type Txn struct {
	txn *lmdb.Txn
}

// WithTxn runs fn inside a single write transaction against env, with
// the same auto-expand-and-retry behavior as Database.Put (spec.md
// §4.3 put_block step 3: "on MAP_FULL abort, expand, restart").
func (e *Environment) WithTxn(fn func(*Txn) error) error {
	return e.runWrite(func(raw *lmdb.Txn) error {
		return fn(&Txn{txn: raw})
	})
}

// Put writes value under key in db within this transaction.
func (t *Txn) Put(db *Database, key, value []byte) error {
	return t.txn.Put(db.dbi, key, value, 0)
}

// Del removes key from db within this transaction.
func (t *Txn) Del(db *Database, key []byte) error {
	err := t.txn.Del(db.dbi, key, nil)
	if lmdb.IsNotFound(err) {
		return nil
	}
	return err
}

// Get fetches key from db within this transaction.
func (t *Txn) Get(db *Database, key []byte) ([]byte, error) {
	v, err := t.txn.Get(db.dbi, key)
	if lmdb.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), v...), nil
}

// Cursor opens a cursor over db within this transaction.
func (t *Txn) Cursor(db *Database) (*Cursor, error) {
	c, err := t.txn.OpenCursor(db.dbi)
	if err != nil {
		return nil, err
	}
	return &Cursor{c: c}, nil
}

// View runs fn inside a fresh read-only transaction on d's environment;
// the transaction is released when fn returns. fn opens its own cursors
// with Txn.Cursor. Used by read paths that don't need Txn's write
// semantics (get_random_outputs, block_timestamps lookup).
func (d *Database) View(fn func(*Txn) error) error {
	return d.env.runRead(func(raw *lmdb.Txn) error {
		return fn(&Txn{txn: raw})
	})
}

// Seek positions the cursor per op and returns the key/value pair found,
// or ErrNotFound if iteration is exhausted.
func (c *Cursor) Seek(op CursorOp, key []byte) ([]byte, []byte, error) {
	var lop uint
	switch op {
	case OpFirst:
		lop = lmdb.First
	case OpNext:
		lop = lmdb.Next
	case OpSet:
		lop = lmdb.Set
	case OpSetRange:
		lop = lmdb.SetRange
	default:
		return nil, nil, ErrBadTxn
	}

	k, v, err := c.c.Get(key, nil, lop)
	if lmdb.IsNotFound(err) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return append([]byte(nil), k...), append([]byte(nil), v...), nil
}

// Close releases the cursor's handle. Cursors must not outlive their
// transaction.
func (c *Cursor) Close() {
	c.c.Close()
}
