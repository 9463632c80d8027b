package chain

import (
	"errors"
	"sort"

	"github.com/ivantse/turtlecoin-v2/internal/codec"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

// ErrProducerIsValidator is returned when a block's producer also
// appears in its validator_signatures map (spec.md §3 invariant).
var ErrProducerIsValidator = errors.New("chain: producer must not appear in validator_signatures")

// ErrNoValidatorSignatures is returned when a block carries zero
// validator signatures (spec.md §3: "at least one validator signature
// is required for validity").
var ErrNoValidatorSignatures = errors.New("chain: block requires at least one validator signature")

// DigestMode selects how much of a block's signing payload is included
// (spec.md §3).
type DigestMode int

const (
	// DigestFull includes everything: the signing payload used to
	// verify an already-fully-signed block.
	DigestFull DigestMode = iota
	// DigestProducer omits producer and validator signatures: what the
	// producer signs first.
	DigestProducer
	// DigestValidator omits validator signatures but requires the
	// producer signature to already be present: what each validator
	// signs.
	DigestValidator
)

// ValidatorSig pairs a validator's public key with its signature over
// the block's DigestValidator payload. Block.ValidatorSignatures is kept
// as an ordered slice (rather than a map) so serialization is
// deterministic without a separate sort step.
type ValidatorSig struct {
	PublicKey primitives.Key
	Signature primitives.Signature
}

// Block is one block of the chain (spec.md §3).
type Block struct {
	Version              uint64
	PreviousBlockHash    primitives.Hash
	Timestamp            uint64
	BlockIndex           uint64
	RewardTx             Transaction // Genesis or StakerReward
	Transactions         []primitives.Hash
	ProducerPublicKey    primitives.Key
	ProducerSignature    primitives.Signature
	HasProducerSignature bool
	ValidatorSignatures  []ValidatorSig
}

// SortedTransactions returns the block's transaction hash set in the
// canonical lexicographic order (spec.md §3: "the transactions set is
// stored sorted to guarantee byte-identical serialization").
func (b *Block) SortedTransactions() []primitives.Hash {
	out := append([]primitives.Hash(nil), b.Transactions...)
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// Validate checks the structural invariants spec.md §3 lists: producer
// absent from validator_signatures, at least one validator signature.
func (b *Block) Validate() error {
	for _, vs := range b.ValidatorSignatures {
		if vs.PublicKey == b.ProducerPublicKey {
			return ErrProducerIsValidator
		}
	}
	if len(b.ValidatorSignatures) == 0 {
		return ErrNoValidatorSignatures
	}
	return nil
}

// MessageDigest computes the signing payload for mode (spec.md §3,
// §6's block binary format: "Producer signing mode serializes only
// through |txs|. Validator signing mode additionally includes the
// producer block but not the validator vector.").
func (b *Block) MessageDigest(mode DigestMode) (primitives.Hash, error) {
	if mode == DigestValidator && !b.HasProducerSignature {
		return primitives.Hash{}, errors.New("chain: validator digest requires producer signature")
	}

	w := codec.NewWriter(256)
	w.Varint(b.Version)
	w.Key(b.PreviousBlockHash[:])
	w.Varint(b.Timestamp)
	w.Varint(b.BlockIndex)
	w.Bytes(b.RewardTx.Serialize())

	sorted := b.SortedTransactions()
	w.Varint(uint64(len(sorted)))
	for _, h := range sorted {
		w.Key(h[:])
	}

	if mode == DigestProducer {
		return primitives.SHA3(w.Finish()), nil
	}

	w.Bool(b.HasProducerSignature)
	if b.HasProducerSignature {
		w.Key(b.ProducerPublicKey[:])
		w.Key(b.ProducerSignature[:])
	}

	if mode == DigestValidator {
		return primitives.SHA3(w.Finish()), nil
	}

	w.Varint(uint64(len(b.ValidatorSignatures)))
	for _, vs := range b.ValidatorSignatures {
		w.Key(vs.PublicKey[:])
		w.Key(vs.Signature[:])
	}
	return primitives.SHA3(w.Finish()), nil
}

// Hash is the block's content identifier: its DigestFull payload hash.
func (b *Block) Hash() (primitives.Hash, error) {
	return b.MessageDigest(DigestFull)
}

// Serialize returns the canonical wire form (spec.md §6).
func (b *Block) Serialize() []byte {
	w := codec.NewWriter(512)
	w.Varint(b.Version)
	w.Key(b.PreviousBlockHash[:])
	w.Varint(b.Timestamp)
	w.Varint(b.BlockIndex)
	w.Bytes(b.RewardTx.Serialize())

	sorted := b.SortedTransactions()
	w.Varint(uint64(len(sorted)))
	for _, h := range sorted {
		w.Key(h[:])
	}

	w.Bool(b.HasProducerSignature)
	if b.HasProducerSignature {
		w.Key(b.ProducerPublicKey[:])
		w.Key(b.ProducerSignature[:])
	}

	w.Varint(uint64(len(b.ValidatorSignatures)))
	for _, vs := range b.ValidatorSignatures {
		w.Key(vs.PublicKey[:])
		w.Key(vs.Signature[:])
	}
	return w.Finish()
}

// DeserializeBlock is the dual of Serialize. The reward transaction's
// type tag (GENESIS or STAKER_REWARD) is peeked the same way user
// transaction variants are (spec.md §4.1).
func DeserializeBlock(data []byte) (*Block, error) {
	r := codec.NewReader(data)

	version, err := r.Varint()
	if err != nil {
		return nil, err
	}
	prev, err := r.Key(primitives.Size)
	if err != nil {
		return nil, err
	}
	ts, err := r.Varint()
	if err != nil {
		return nil, err
	}
	idx, err := r.Varint()
	if err != nil {
		return nil, err
	}
	rewardBytes, err := r.Bytes()
	if err != nil {
		return nil, err
	}
	rewardTx, err := Deserialize(rewardBytes)
	if err != nil {
		return nil, err
	}

	ntx, err := r.Varint()
	if err != nil {
		return nil, err
	}
	txs := make([]primitives.Hash, 0, ntx)
	for i := uint64(0); i < ntx; i++ {
		h, err := r.Key(primitives.Size)
		if err != nil {
			return nil, err
		}
		hh, _ := primitives.HashFromBytes(h)
		txs = append(txs, hh)
	}

	hasProducer, err := r.Bool()
	if err != nil {
		return nil, err
	}
	b := &Block{
		Version:          version,
		Timestamp:        ts,
		BlockIndex:       idx,
		RewardTx:         rewardTx,
		Transactions:     txs,
		HasProducerSignature: hasProducer,
	}
	copy(b.PreviousBlockHash[:], prev)

	if hasProducer {
		pk, err := r.Key(primitives.Size)
		if err != nil {
			return nil, err
		}
		sig, err := r.Key(primitives.Size * 2)
		if err != nil {
			return nil, err
		}
		copy(b.ProducerPublicKey[:], pk)
		copy(b.ProducerSignature[:], sig)
	}

	nval, err := r.Varint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < nval; i++ {
		pk, err := r.Key(primitives.Size)
		if err != nil {
			return nil, err
		}
		sig, err := r.Key(primitives.Size * 2)
		if err != nil {
			return nil, err
		}
		var vs ValidatorSig
		copy(vs.PublicKey[:], pk)
		copy(vs.Signature[:], sig)
		b.ValidatorSignatures = append(b.ValidatorSignatures, vs)
	}

	return b, nil
}
