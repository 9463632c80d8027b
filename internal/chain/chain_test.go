package chain

import (
	"testing"

	"github.com/ivantse/turtlecoin-v2/internal/primitives"
	"go.uber.org/zap"
)

func testGenesis(t *testing.T, unlockBlock uint64, n int) *Genesis {
	t.Helper()
	g := &Genesis{
		Prefix: Prefix{
			Header:      Header{Type: TypeGenesis, Version: 1},
			UnlockBlock: unlockBlock,
		},
	}
	for i := 0; i < n; i++ {
		var pe primitives.Point
		var cm primitives.Commitment
		pe[0] = byte(i + 1)
		cm[0] = byte(i + 1)
		g.OutputList = append(g.OutputList, Output{PublicEphemeral: pe, Amount: uint64(1000 + i), Commitment: cm})
	}
	return g
}

func testBlock(t *testing.T, index uint64, ts uint64, prev primitives.Hash, reward Transaction, txs []primitives.Hash) *Block {
	t.Helper()
	return &Block{
		Version:           1,
		PreviousBlockHash: prev,
		Timestamp:         ts,
		BlockIndex:        index,
		RewardTx:          reward,
		Transactions:      txs,
		ValidatorSignatures: []ValidatorSig{
			{PublicKey: primitives.Key{0x01}, Signature: primitives.Signature{0x02}},
		},
	}
}

func TestGenesisSerializeRoundTrip(t *testing.T) {
	g := testGenesis(t, 0, 3)
	raw := g.Serialize()

	tx, err := Deserialize(raw)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	got, ok := tx.(*Genesis)
	if !ok {
		t.Fatalf("Deserialize returned %T, want *Genesis", tx)
	}
	if got.Hash() != g.Hash() {
		t.Fatalf("hash mismatch after round trip")
	}
	if len(got.Outputs()) != 3 {
		t.Fatalf("Outputs() length = %d, want 3", len(got.Outputs()))
	}
}

func TestUncommittedToCommittedHashEquality(t *testing.T) {
	u := &UncommittedUser{
		Prefix: Prefix{
			Header:      Header{Type: TypeNormal, Version: 1},
			UnlockBlock: 10,
		},
		Body: Body{
			Nonce: 1,
			Fee:   5,
			KeyImages: []primitives.KeyImage{
				primitives.KeyImage{0x09},
			},
			Outputs: []Output{
				{Amount: 42},
			},
		},
		Data: noData{},
	}

	c := u.ToCommitted()
	if u.Hash() != c.Hash() {
		t.Fatalf("uncommitted.Hash() != committed.Hash(): %x != %x", u.Hash(), c.Hash())
	}
}

func TestBlockDigestModeOrdering(t *testing.T) {
	g := testGenesis(t, 0, 1)
	b := testBlock(t, 0, 1000, primitives.Hash{}, g, nil)

	producerDigest, err := b.MessageDigest(DigestProducer)
	if err != nil {
		t.Fatalf("MessageDigest(DigestProducer): %v", err)
	}

	b.HasProducerSignature = true
	b.ProducerPublicKey = primitives.Key{0x11}
	b.ProducerSignature = primitives.Signature{0x22}

	validatorDigest, err := b.MessageDigest(DigestValidator)
	if err != nil {
		t.Fatalf("MessageDigest(DigestValidator): %v", err)
	}
	if producerDigest == validatorDigest {
		t.Fatalf("producer and validator digests must differ once the producer signature is attached")
	}

	fullDigest, err := b.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if fullDigest == validatorDigest {
		t.Fatalf("full digest must differ from the validator digest once validator signatures are attached")
	}
}

func TestBlockSerializeRoundTrip(t *testing.T) {
	g := testGenesis(t, 0, 2)
	b := testBlock(t, 0, 1000, primitives.Hash{}, g, nil)
	b.HasProducerSignature = true
	b.ProducerPublicKey = primitives.Key{0x11}
	b.ProducerSignature = primitives.Signature{0x22}

	raw := b.Serialize()
	got, err := DeserializeBlock(raw)
	if err != nil {
		t.Fatalf("DeserializeBlock: %v", err)
	}
	gotHash, err := got.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	wantHash, err := b.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if gotHash != wantHash {
		t.Fatalf("block hash mismatch after round trip")
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorePutGetBlock(t *testing.T) {
	s := openTestStore(t)

	g := testGenesis(t, 0, 2)
	b := testBlock(t, 0, 1000, primitives.Hash{}, g, nil)

	if err := s.PutBlock(b, nil); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}

	hash, err := b.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	got, txs, err := s.GetBlock(hash)
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("GetBlock returned %d transactions, want 1 (reward only)", len(txs))
	}
	if got.BlockIndex != 0 {
		t.Fatalf("GetBlock.BlockIndex = %d, want 0", got.BlockIndex)
	}

	count, err := s.GetBlockCount()
	if err != nil {
		t.Fatalf("GetBlockCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("GetBlockCount() = %d, want 1", count)
	}

	for _, o := range g.Outputs() {
		exists, err := s.OutputExists(o.Hash())
		if err != nil {
			t.Fatalf("OutputExists: %v", err)
		}
		if !exists {
			t.Fatalf("genesis output %x not recorded", o.Hash())
		}
	}
}

func TestStoreGenesisAlreadyExists(t *testing.T) {
	s := openTestStore(t)

	g := testGenesis(t, 0, 1)
	b := testBlock(t, 0, 1000, primitives.Hash{}, g, nil)
	if err := s.PutBlock(b, nil); err != nil {
		t.Fatalf("first PutBlock: %v", err)
	}

	g2 := testGenesis(t, 0, 1)
	b2 := testBlock(t, 0, 1001, primitives.Hash{}, g2, nil)
	if err := s.PutBlock(b2, nil); err != ErrGenesisAlreadyExists {
		t.Fatalf("second genesis PutBlock error = %v, want ErrGenesisAlreadyExists", err)
	}
}

func TestStoreKeyImageRecordedOnPut(t *testing.T) {
	s := openTestStore(t)

	g := testGenesis(t, 0, 1)
	genesisBlock := testBlock(t, 0, 1000, primitives.Hash{}, g, nil)
	if err := s.PutBlock(genesisBlock, nil); err != nil {
		t.Fatalf("PutBlock genesis: %v", err)
	}

	ki := primitives.KeyImage{0x42}
	u := &UncommittedUser{
		Prefix: Prefix{Header: Header{Type: TypeNormal, Version: 1}},
		Body:   Body{KeyImages: []primitives.KeyImage{ki}},
		Data:   noData{},
	}
	c := u.ToCommitted()

	genesisHash, err := genesisBlock.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	reward := &StakerReward{Header: Header{Type: TypeStakerReward, Version: 1}}
	b1 := testBlock(t, 1, 2000, genesisHash, reward, []primitives.Hash{c.Hash()})

	exists, err := s.KeyImageExists(ki)
	if err != nil {
		t.Fatalf("KeyImageExists before put: %v", err)
	}
	if exists {
		t.Fatalf("key image reported spent before its transaction was stored")
	}

	if err := s.PutBlock(b1, []Transaction{c}); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}

	exists, err = s.KeyImageExists(ki)
	if err != nil {
		t.Fatalf("KeyImageExists after put: %v", err)
	}
	if !exists {
		t.Fatalf("key image not recorded after its transaction was stored")
	}

	gotTx, blockHash, err := s.GetTransaction(c.Hash())
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if gotTx.Hash() != c.Hash() {
		t.Fatalf("GetTransaction returned a different transaction")
	}
	b1Hash, err := b1.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if blockHash != b1Hash {
		t.Fatalf("GetTransaction reported wrong containing block")
	}
}

func TestStoreRewind(t *testing.T) {
	s := openTestStore(t)

	g := testGenesis(t, 0, 1)
	genesisBlock := testBlock(t, 0, 1000, primitives.Hash{}, g, nil)
	if err := s.PutBlock(genesisBlock, nil); err != nil {
		t.Fatalf("PutBlock genesis: %v", err)
	}
	genesisHash, err := genesisBlock.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	reward := &StakerReward{Header: Header{Type: TypeStakerReward, Version: 1}}
	b1 := testBlock(t, 1, 2000, genesisHash, reward, nil)
	if err := s.PutBlock(b1, nil); err != nil {
		t.Fatalf("PutBlock height 1: %v", err)
	}

	count, err := s.GetBlockCount()
	if err != nil || count != 2 {
		t.Fatalf("GetBlockCount() = %d, %v, want 2, nil", count, err)
	}

	if err := s.Rewind(0); err != nil {
		t.Fatalf("Rewind: %v", err)
	}

	count, err = s.GetBlockCount()
	if err != nil {
		t.Fatalf("GetBlockCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("GetBlockCount() after rewind = %d, want 1", count)
	}

	b1Hash, err := b1.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if exists, err := s.BlockExists(b1Hash); err != nil || exists {
		t.Fatalf("block at height 1 still exists after rewind: exists=%v err=%v", exists, err)
	}
	if exists, err := s.BlockExists(genesisHash); err != nil || !exists {
		t.Fatalf("genesis block removed by rewind to 0: exists=%v err=%v", exists, err)
	}
}

func TestStoreRewindTargetNotFound(t *testing.T) {
	s := openTestStore(t)
	if err := s.Rewind(5); err != ErrRewindTargetNotFound {
		t.Fatalf("Rewind to nonexistent height = %v, want ErrRewindTargetNotFound", err)
	}
}

func TestStoreGetRandomOutputs(t *testing.T) {
	s := openTestStore(t)

	g := testGenesis(t, 0, 6)
	b := testBlock(t, 0, 1000, primitives.Hash{}, g, nil)
	if err := s.PutBlock(b, nil); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}

	hashes, outs, err := s.GetRandomOutputs(0, 4)
	if err != nil {
		t.Fatalf("GetRandomOutputs: %v", err)
	}
	if len(hashes) != 4 || len(outs) != 4 {
		t.Fatalf("GetRandomOutputs returned %d/%d, want 4/4", len(hashes), len(outs))
	}
	seen := make(map[primitives.Hash]bool)
	for _, h := range hashes {
		if seen[h] {
			t.Fatalf("GetRandomOutputs returned a duplicate hash %x", h)
		}
		seen[h] = true
	}
	for i := 1; i < len(hashes); i++ {
		if hashes[i-1].Compare(hashes[i]) >= 0 {
			t.Fatalf("GetRandomOutputs result not sorted ascending at index %d", i)
		}
	}
}
