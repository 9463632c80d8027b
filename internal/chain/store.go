package chain

import (
	"encoding/binary"
	"math/rand"

	"github.com/ivantse/turtlecoin-v2/internal/codec"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
	"github.com/ivantse/turtlecoin-v2/internal/storage"
	"go.uber.org/zap"
)

// Store is the blockchain store (spec.md §4.3): one LMDB environment
// holding blocks, their height/timestamp indexes, transactions, the
// key-image existence set, and the output index.
type Store struct {
	log *zap.Logger
	env *storage.Environment

	blocks             *storage.Database
	blockIndexes       *storage.Database
	blockTimestamps    *storage.Database
	transactions       *storage.Database
	keyImages          *storage.Database
	transactionOutputs *storage.Database
}

const (
	dbBlocks             = "blocks"
	dbBlockIndexes       = "block_indexes"
	dbBlockTimestamps    = "block_timestamps"
	dbTransactions       = "transactions"
	dbKeyImages          = "key_images"
	dbTransactionOutputs = "transaction_outputs"
)

// Open opens (or attaches to an already-open) blockchain store at path.
func Open(path string, log *zap.Logger) (*Store, error) {
	env, err := storage.OpenEnvironment(path, log)
	if err != nil {
		return nil, err
	}

	s := &Store{log: log, env: env}

	var openErr error
	open := func(name string, dup bool) *storage.Database {
		if openErr != nil {
			return nil
		}
		db, err := env.OpenDatabase(name, dup)
		if err != nil {
			openErr = err
			return nil
		}
		return db
	}

	s.blocks = open(dbBlocks, false)
	s.blockIndexes = open(dbBlockIndexes, false)
	s.blockTimestamps = open(dbBlockTimestamps, false)
	s.transactions = open(dbTransactions, false)
	s.keyImages = open(dbKeyImages, false)
	s.transactionOutputs = open(dbTransactionOutputs, false)
	if openErr != nil {
		return nil, openErr
	}
	return s, nil
}

// Close releases the store's reference on its environment.
func (s *Store) Close() error { return s.env.Close() }

func beKey(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func beKeyToUint64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

// BlockExists reports whether a block exists by hash or, via
// BlockExistsAtIndex, by height (spec.md §4.3).
func (s *Store) BlockExists(hash primitives.Hash) (bool, error) {
	return s.blocks.Exists(hash[:])
}

// BlockExistsAtIndex reports whether a block exists at height index.
func (s *Store) BlockExistsAtIndex(index uint64) (bool, error) {
	return s.blockIndexes.Exists(beKey(index))
}

// GetBlockHash resolves a height to its block hash.
func (s *Store) GetBlockHash(index uint64) (primitives.Hash, error) {
	v, err := s.blockIndexes.Get(beKey(index))
	if err == storage.ErrNotFound {
		return primitives.Hash{}, ErrBlockNotFound
	}
	if err != nil {
		return primitives.Hash{}, err
	}
	h, _ := primitives.HashFromBytes(v)
	return h, nil
}

// GetBlockIndex resolves a block hash to its height by loading the
// block and reading its BlockIndex field; callers that already have the
// block should read that field directly.
func (s *Store) GetBlockIndex(hash primitives.Hash) (uint64, error) {
	block, _, err := s.GetBlock(hash)
	if err != nil {
		return 0, err
	}
	return block.BlockIndex, nil
}

// GetBlock fetches a block and its full transaction set by hash.
func (s *Store) GetBlock(hash primitives.Hash) (*Block, []Transaction, error) {
	raw, err := s.blocks.Get(hash[:])
	if err == storage.ErrNotFound {
		return nil, nil, ErrBlockNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	block, err := DeserializeBlock(raw)
	if err != nil {
		return nil, nil, err
	}
	txs, err := s.loadBlockTransactions(block)
	if err != nil {
		return nil, nil, err
	}
	return block, txs, nil
}

// GetBlockByIndex fetches a block and its transactions by height.
func (s *Store) GetBlockByIndex(index uint64) (*Block, []Transaction, error) {
	hash, err := s.GetBlockHash(index)
	if err != nil {
		return nil, nil, err
	}
	return s.GetBlock(hash)
}

// GetBlockByTimestamp returns the block with the nearest timestamp
// greater than or equal to ts (spec.md §4.3: "nearest ≥"), using
// SET_RANGE on block_timestamps.
func (s *Store) GetBlockByTimestamp(ts uint64) (*Block, uint64, error) {
	var (
		block    *Block
		actualTS uint64
	)
	err := s.blockTimestamps.View(func(txn *storage.Txn) error {
		cur, err := txn.Cursor(s.blockTimestamps)
		if err != nil {
			return err
		}
		defer cur.Close()

		k, v, err := cur.Seek(storage.OpSetRange, beKey(ts))
		if err == storage.ErrNotFound {
			return ErrBlockNotFound
		}
		if err != nil {
			return err
		}
		actualTS = beKeyToUint64(k)
		hash, _ := primitives.HashFromBytes(v)
		raw, err := txn.Get(s.blocks, hash[:])
		if err != nil {
			return err
		}
		block, err = DeserializeBlock(raw)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return block, actualTS, nil
}

// GetBlockCount reports how many blocks are stored.
func (s *Store) GetBlockCount() (uint64, error) {
	return s.blockIndexes.Count()
}

func (s *Store) loadBlockTransactions(block *Block) ([]Transaction, error) {
	out := []Transaction{block.RewardTx}
	for _, h := range block.SortedTransactions() {
		tx, _, err := s.GetTransaction(h)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// GetTransaction fetches a transaction and the hash of the block it was
// committed in.
func (s *Store) GetTransaction(hash primitives.Hash) (Transaction, primitives.Hash, error) {
	raw, err := s.transactions.Get(hash[:])
	if err == storage.ErrNotFound {
		return nil, primitives.Hash{}, ErrTransactionNotFound
	}
	if err != nil {
		return nil, primitives.Hash{}, err
	}
	if len(raw) < primitives.Size {
		return nil, primitives.Hash{}, ErrTransactionNotFound
	}
	txBytes := raw[:len(raw)-primitives.Size]
	blockHashBytes := raw[len(raw)-primitives.Size:]
	tx, err := Deserialize(txBytes)
	if err != nil {
		return nil, primitives.Hash{}, err
	}
	blockHash, _ := primitives.HashFromBytes(blockHashBytes)
	return tx, blockHash, nil
}

// TransactionExists reports whether a transaction with hash is stored.
func (s *Store) TransactionExists(hash primitives.Hash) (bool, error) {
	return s.transactions.Exists(hash[:])
}

type storedOutput struct {
	UnlockBlock uint64
	Output      Output
}

// GetTransactionOutput fetches one output and the unlock height of the
// transaction that created it.
func (s *Store) GetTransactionOutput(hash primitives.Hash) (Output, uint64, error) {
	raw, err := s.transactionOutputs.Get(hash[:])
	if err == storage.ErrNotFound {
		return Output{}, 0, ErrTransactionOutputNotFound
	}
	if err != nil {
		return Output{}, 0, err
	}
	out, err := decodeStoredOutput(raw)
	if err != nil {
		return Output{}, 0, err
	}
	return out.Output, out.UnlockBlock, nil
}

// GetTransactionOutputs fetches a vector of outputs by hash, failing
// whole-or-nothing (spec.md §4.3) if any is missing.
func (s *Store) GetTransactionOutputs(hashes []primitives.Hash) ([]Output, []uint64, error) {
	outs := make([]Output, 0, len(hashes))
	unlocks := make([]uint64, 0, len(hashes))
	for _, h := range hashes {
		o, ub, err := s.GetTransactionOutput(h)
		if err != nil {
			return nil, nil, err
		}
		outs = append(outs, o)
		unlocks = append(unlocks, ub)
	}
	return outs, unlocks, nil
}

// OutputExists reports whether an output with hash is recorded.
func (s *Store) OutputExists(hash primitives.Hash) (bool, error) {
	return s.transactionOutputs.Exists(hash[:])
}

// OutputCount reports the total number of recorded outputs.
func (s *Store) OutputCount() (uint64, error) {
	return s.transactionOutputs.Count()
}

// KeyImageExists reports whether a single key image is already spent.
func (s *Store) KeyImageExists(ki primitives.KeyImage) (bool, error) {
	return s.keyImages.Exists(ki[:])
}

// AnyKeyImageExists reports whether any of the given key images is
// already spent. By design this collapses to a single boolean (spec.md
// §4.3: "used only for 'is any input already spent?'"); use
// KeyImageExists per-image for diagnostics.
func (s *Store) AnyKeyImageExists(kis []primitives.KeyImage) (bool, error) {
	for _, ki := range kis {
		exists, err := s.KeyImageExists(ki)
		if err != nil {
			return false, err
		}
		if exists {
			return true, nil
		}
	}
	return false, nil
}

// GetRandomOutputs samples count distinct outputs whose unlock height is
// at or above minBlockIndex, returned sorted by output hash (spec.md §4.3).
func (s *Store) GetRandomOutputs(minBlockIndex uint64, count int) ([]primitives.Hash, []Output, error) {
	total, err := s.OutputCount()
	if err != nil {
		return nil, nil, err
	}
	if total < uint64(count) {
		return nil, nil, ErrTransactionOutputNotFound
	}

	seen := make(map[primitives.Hash]bool)
	var hashes []primitives.Hash
	var outs []Output

	err = s.transactionOutputs.View(func(txn *storage.Txn) error {
		for len(hashes) < count {
			var seed primitives.Hash
			randFill(seed[:])

			cur, err := txn.Cursor(s.transactionOutputs)
			if err != nil {
				return err
			}
			k, v, err := cur.Seek(storage.OpSetRange, seed[:])
			if err == storage.ErrNotFound {
				k, v, err = cur.Seek(storage.OpFirst, nil)
			}
			cur.Close()
			if err != nil {
				continue
			}

			keyHash, _ := primitives.HashFromBytes(k)
			stored, err := decodeStoredOutput(v)
			if err != nil {
				continue
			}
			if stored.Output.Hash() != keyHash {
				continue
			}
			if stored.UnlockBlock < minBlockIndex {
				continue
			}
			if seen[keyHash] {
				continue
			}
			seen[keyHash] = true
			hashes = append(hashes, keyHash)
			outs = append(outs, stored.Output)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sortOutputsByHash(hashes, outs)
	return hashes, outs, nil
}

func randFill(b []byte) {
	for i := range b {
		b[i] = byte(rand.Intn(256))
	}
}

func sortOutputsByHash(hashes []primitives.Hash, outs []Output) {
	for i := 1; i < len(hashes); i++ {
		for j := i; j > 0 && hashes[j-1].Compare(hashes[j]) > 0; j-- {
			hashes[j-1], hashes[j] = hashes[j], hashes[j-1]
			outs[j-1], outs[j] = outs[j], outs[j-1]
		}
	}
}

// PutBlock atomically writes a new block, its non-reward transactions,
// their key images, and every output the block's transactions (and its
// reward transaction) create (spec.md §4.3 put_block).
func (s *Store) PutBlock(block *Block, txs []Transaction) error {
	if block.BlockIndex == 0 {
		exists, err := s.BlockExistsAtIndex(0)
		if err != nil {
			return err
		}
		if exists {
			return ErrGenesisAlreadyExists
		}
	}

	if err := matchTransactionSet(block, txs); err != nil {
		return err
	}

	hash, err := block.Hash()
	if err != nil {
		return err
	}

	return s.env.WithTxn(func(txn *storage.Txn) error {
		if err := txn.Put(s.blocks, hash[:], block.Serialize()); err != nil {
			return err
		}
		if err := txn.Put(s.blockIndexes, beKey(block.BlockIndex), hash[:]); err != nil {
			return err
		}
		if err := txn.Put(s.blockTimestamps, beKey(block.Timestamp), hash[:]); err != nil {
			return err
		}
		if err := s.putTransactionOutputs(txn, block.RewardTx, unlockBlockOf(block.RewardTx, block.BlockIndex)); err != nil {
			return err
		}

		for _, tx := range txs {
			txHash := tx.Hash()
			value := append(append([]byte(nil), tx.Serialize()...), hash[:]...)
			if err := txn.Put(s.transactions, txHash[:], value); err != nil {
				return err
			}
			for _, ki := range tx.KeyImages() {
				if err := txn.Put(s.keyImages, ki[:], []byte{1}); err != nil {
					return err
				}
			}
			if err := s.putTransactionOutputs(txn, tx, unlockBlockOf(tx, block.BlockIndex)); err != nil {
				return err
			}
		}
		return nil
	})
}

// matchTransactionSet enforces spec.md §4.3 put_block's precondition:
// H1 == H2, where H1 = SHA3(concat of block.Transactions in set order)
// and H2 = SHA3(concat of the supplied txs' hashes in order). A plain
// length-and-membership check would admit a multiset mismatch (e.g.
// block.Transactions=[A,B], txs=[A,A]). A wrong count or a hash outside
// the set returns ErrBlockTxnMismatch; every other disagreement,
// including such a multiset mismatch and a right set in the wrong order,
// fails the hash comparison and returns ErrBlockTxnOrder.
func matchTransactionSet(block *Block, txs []Transaction) error {
	if len(txs) != len(block.Transactions) {
		return ErrBlockTxnMismatch
	}

	want := make(map[primitives.Hash]bool, len(block.Transactions))
	for _, h := range block.Transactions {
		want[h] = true
	}
	got := make([]primitives.Hash, len(txs))
	for i, tx := range txs {
		h := tx.Hash()
		if !want[h] {
			return ErrBlockTxnMismatch
		}
		got[i] = h
	}

	sorted := block.SortedTransactions()
	wantBytes := make([][]byte, len(sorted))
	for i, h := range sorted {
		wantBytes[i] = h.Bytes()
	}
	gotBytes := make([][]byte, len(got))
	for i, h := range got {
		gotBytes[i] = h.Bytes()
	}
	if primitives.SHA3(wantBytes...) != primitives.SHA3(gotBytes...) {
		return ErrBlockTxnOrder
	}
	return nil
}

// unlockBlockOf returns the height at which tx's outputs become
// spendable, read from whichever variant carries a Prefix; variants
// without one (StakerReward) get fallback, which is never stored since
// they have no outputs.
func unlockBlockOf(tx Transaction, fallback uint64) uint64 {
	switch t := tx.(type) {
	case *Genesis:
		return t.Prefix.UnlockBlock
	case *UncommittedUser:
		return t.Prefix.UnlockBlock
	case *CommittedUser:
		return t.Prefix.UnlockBlock
	case *StakeRefund:
		return t.Prefix.UnlockBlock
	default:
		return fallback
	}
}

func (s *Store) putTransactionOutputs(txn *storage.Txn, tx Transaction, unlockBlock uint64) error {
	for _, o := range tx.Outputs() {
		oh := o.Hash()
		if err := txn.Put(s.transactionOutputs, oh[:], encodeStoredOutput(unlockBlock, o)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) delTransactionOutputs(txn *storage.Txn, tx Transaction) error {
	for _, o := range tx.Outputs() {
		oh := o.Hash()
		if err := txn.Del(s.transactionOutputs, oh[:]); err != nil {
			return err
		}
	}
	return nil
}

func encodeStoredOutput(unlockBlock uint64, o Output) []byte {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, unlockBlock)
	w := codec.NewWriter(Size)
	o.serialize(w)
	return append(buf[:n], w.Finish()...)
}

// Rewind deletes every block above targetIndex, along with their
// transactions, key images, and outputs (spec.md §4.3 rewind). The
// block at targetIndex itself is kept.
func (s *Store) Rewind(targetIndex uint64) error {
	exists, err := s.BlockExistsAtIndex(targetIndex)
	if err != nil {
		return err
	}
	if !exists {
		return ErrRewindTargetNotFound
	}

	count, err := s.GetBlockCount()
	if err != nil {
		return err
	}

	for idx := count - 1; idx > targetIndex; idx-- {
		hash, err := s.GetBlockHash(idx)
		if err != nil {
			return err
		}
		raw, err := s.blocks.Get(hash[:])
		if err != nil {
			return err
		}
		block, err := DeserializeBlock(raw)
		if err != nil {
			return err
		}

		err = s.env.WithTxn(func(txn *storage.Txn) error {
			if err := s.delTransactionOutputs(txn, block.RewardTx); err != nil {
				return err
			}
			for _, h := range block.Transactions {
				tx, _, err := s.GetTransaction(h)
				if err != nil {
					return err
				}
				for _, ki := range tx.KeyImages() {
					if err := txn.Del(s.keyImages, ki[:]); err != nil {
						return err
					}
				}
				if err := s.delTransactionOutputs(txn, tx); err != nil {
					return err
				}
				if err := txn.Del(s.transactions, h[:]); err != nil {
					return err
				}
			}
			if err := txn.Del(s.blocks, hash[:]); err != nil {
				return err
			}
			if err := txn.Del(s.blockIndexes, beKey(idx)); err != nil {
				return err
			}
			return txn.Del(s.blockTimestamps, beKey(block.Timestamp))
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func decodeStoredOutput(raw []byte) (storedOutput, error) {
	if len(raw) < 1 {
		return storedOutput{}, ErrTransactionOutputNotFound
	}
	ub, n := binary.Uvarint(raw)
	if n <= 0 {
		return storedOutput{}, ErrTransactionOutputNotFound
	}
	out, err := deserializeOutput(codec.NewReader(raw[n:]))
	if err != nil {
		return storedOutput{}, err
	}
	return storedOutput{UnlockBlock: ub, Output: out}, nil
}
