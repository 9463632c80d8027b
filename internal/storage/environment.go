// Package storage wraps an embedded memory-mapped B+tree store (LMDB,
// via github.com/bmatsuo/lmdb-go/lmdb) with the transaction, cursor, and
// growth semantics spec.md §4.2 requires. It is grounded on the
// teacher's kernel/leveldb.go Set/Get/Del wrapper, generalized from a
// single flat database into named sub-databases, cursors, and
// auto-expanding write transactions, and re-pointed at LMDB because the
// spec models LMDB's MAP_FULL/TXN_FULL/cursor semantics by name
// (see SPEC_FULL.md's DOMAIN STACK section).
package storage

import (
	"os"
	"sync"

	"github.com/bmatsuo/lmdb-go/lmdb"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"
)

const (
	defaultInitialMapSizeMB = 64
	defaultGrowthFactorMB   = 8
	defaultMaxSubDatabases  = 16
)

// Environment is one opened LMDB environment: a single memory-mapped
// file backing every named sub-database that lives under one path.
// Environments are interned by SHA3(path) (spec.md §4.2 "Singletons"):
// opening the same path twice returns the same handle.
type Environment struct {
	log  *zap.Logger
	path string

	env *lmdb.Env

	// writeMu serializes every read-write transaction across the whole
	// environment (spec.md §4.2 "a read-write transaction is exclusive
	// across the environment").
	writeMu sync.Mutex

	dbMu sync.Mutex
	dbs  map[[32]byte]lmdb.DBI

	growthFactorMB int
}

var (
	envRegistryMu sync.Mutex
	envRegistry   = map[[32]byte]*envRef{}
)

type envRef struct {
	env      *Environment
	refCount int
}

func pathHash(path string) [32]byte {
	return sha3.Sum256([]byte(path))
}

// OpenEnvironment opens (or returns the already-open, reference-counted)
// Environment for path.
func OpenEnvironment(path string, log *zap.Logger) (*Environment, error) {
	key := pathHash(path)

	envRegistryMu.Lock()
	defer envRegistryMu.Unlock()

	if ref, ok := envRegistry[key]; ok {
		ref.refCount++
		return ref.env, nil
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}

	env, err := lmdb.NewEnv()
	if err != nil {
		return nil, err
	}
	if err := env.SetMaxDBs(defaultMaxSubDatabases); err != nil {
		return nil, err
	}
	if err := env.SetMapSize(int64(defaultInitialMapSizeMB) << 20); err != nil {
		return nil, err
	}
	if err := env.Open(path, lmdb.NoTLS, 0o644); err != nil {
		return nil, err
	}

	e := &Environment{
		log:            log,
		path:           path,
		env:            env,
		dbs:            make(map[[32]byte]lmdb.DBI),
		growthFactorMB: defaultGrowthFactorMB,
	}
	envRegistry[key] = &envRef{env: e, refCount: 1}
	return e, nil
}

// Close releases this handle's reference; the underlying LMDB
// environment is closed once the last reference is released.
func (e *Environment) Close() error {
	key := pathHash(e.path)

	envRegistryMu.Lock()
	defer envRegistryMu.Unlock()

	ref, ok := envRegistry[key]
	if !ok {
		return nil
	}
	ref.refCount--
	if ref.refCount > 0 {
		return nil
	}
	delete(envRegistry, key)
	return e.env.Close()
}

// subDatabase interns a named sub-database by SHA3(name) within this
// environment (spec.md §4.2 "Same for named sub-databases by SHA3 of
// their name."), creating it in LMDB on first use.
func (e *Environment) subDatabase(name string, dupSort bool) (lmdb.DBI, error) {
	key := pathHash(name)

	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if dbi, ok := e.dbs[key]; ok {
		return dbi, nil
	}

	var dbi lmdb.DBI
	err := e.env.Update(func(txn *lmdb.Txn) error {
		flags := uint(lmdb.Create)
		if dupSort {
			flags |= lmdb.DupSort
		}
		var err error
		dbi, err = txn.OpenDBI(name, flags)
		return err
	})
	if err != nil {
		return 0, err
	}

	e.dbs[key] = dbi
	return dbi, nil
}

// expand enlarges the environment's memory map by growthFactorMB
// megabytes. It MUST fail if any write transaction is still open
// (spec.md §4.2): SetMapSize itself fails in that case, and any
// SetMapSize failure is returned as errWriterOpen.
func (e *Environment) expand() error {
	info, err := e.env.Info()
	if err != nil {
		return err
	}
	newSize := info.MapSize + int64(e.growthFactorMB)<<20
	if err := e.env.SetMapSize(newSize); err != nil {
		return errWriterOpen
	}
	if e.log != nil {
		e.log.Info("storage: expanded map", zap.String("path", e.path), zap.Int64("new_size_bytes", newSize))
	}
	return nil
}
