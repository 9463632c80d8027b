// Package chain implements the blockchain store: the six transaction
// variants, blocks, and the LMDB-backed schemas/invariants spec.md §3
// and §4.3 define over them. It is grounded on the teacher's
// kernel/tx.go and kernel/block.go (hash-then-sign JSON records),
// generalized from one transaction shape into the six-variant sum type
// spec.md §3 requires, and re-pointed at the codec/storage packages
// instead of encoding/json + goleveldb.
package chain

import (
	"github.com/ivantse/turtlecoin-v2/internal/codec"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

// TransactionType tags which of the six transaction variants a record
// is (spec.md §3).
type TransactionType uint64

const (
	TypeGenesis TransactionType = iota + 1
	TypeStakerReward
	TypeNormal
	TypeStake
	TypeRecallStake
	TypeStakeRefund
)

func (t TransactionType) hasBody() bool {
	switch t {
	case TypeNormal, TypeStake, TypeRecallStake:
		return true
	default:
		return false
	}
}

// Header is shared by every transaction variant (spec.md §3).
type Header struct {
	Type    TransactionType
	Version uint64
}

func (h Header) serialize(w *codec.Writer) {
	w.Varint(uint64(h.Type))
	w.Varint(h.Version)
}

func deserializeHeader(r *codec.Reader) (Header, error) {
	t, err := r.Varint()
	if err != nil {
		return Header{}, err
	}
	v, err := r.Varint()
	if err != nil {
		return Header{}, err
	}
	return Header{Type: TransactionType(t), Version: v}, nil
}

// Prefix is shared by GENESIS, NORMAL/STAKE/RECALL_STAKE, and
// STAKE_REFUND (spec.md §3).
type Prefix struct {
	Header      Header
	UnlockBlock uint64
	PublicKey   primitives.Key
}

func (p Prefix) serialize(w *codec.Writer) {
	p.Header.serialize(w)
	w.Varint(p.UnlockBlock)
	w.Key(p.PublicKey[:])
}

func deserializePrefix(r *codec.Reader) (Prefix, error) {
	h, err := deserializeHeader(r)
	if err != nil {
		return Prefix{}, err
	}
	ub, err := r.Varint()
	if err != nil {
		return Prefix{}, err
	}
	pk, err := r.Key(primitives.Size)
	if err != nil {
		return Prefix{}, err
	}
	var out Prefix
	out.Header = h
	out.UnlockBlock = ub
	copy(out.PublicKey[:], pk)
	return out, nil
}

// Output is one transaction output (spec.md §3).
type Output struct {
	PublicEphemeral primitives.Point
	Amount          uint64
	Commitment      primitives.Commitment
}

func (o Output) serialize(w *codec.Writer) {
	w.Key(o.PublicEphemeral[:])
	w.Varint(o.Amount)
	w.Key(o.Commitment[:])
}

func deserializeOutput(r *codec.Reader) (Output, error) {
	pe, err := r.Key(primitives.Size)
	if err != nil {
		return Output{}, err
	}
	amt, err := r.Varint()
	if err != nil {
		return Output{}, err
	}
	cm, err := r.Key(primitives.Size)
	if err != nil {
		return Output{}, err
	}
	var out Output
	copy(out.PublicEphemeral[:], pe)
	out.Amount = amt
	copy(out.Commitment[:], cm)
	return out, nil
}

// Hash is the content identifier used as the transaction_outputs key
// (spec.md §4.3).
func (o Output) Hash() primitives.Hash {
	w := codec.NewWriter(Size + 16)
	o.serialize(w)
	return primitives.SHA3(w.Finish())
}

// Size is a rough serialized-size hint for Writer preallocation.
const Size = primitives.Size * 2

// StakerOutput pays a staker from a STAKER_REWARD transaction
// (spec.md §3).
type StakerOutput struct {
	StakerID primitives.Hash
	Amount   uint64
}

func (s StakerOutput) serialize(w *codec.Writer) {
	w.Key(s.StakerID[:])
	w.Varint(s.Amount)
}

func deserializeStakerOutput(r *codec.Reader) (StakerOutput, error) {
	id, err := r.Key(primitives.Size)
	if err != nil {
		return StakerOutput{}, err
	}
	amt, err := r.Varint()
	if err != nil {
		return StakerOutput{}, err
	}
	var out StakerOutput
	copy(out.StakerID[:], id)
	out.Amount = amt
	return out, nil
}

// StakerPenalty docks a staker from a STAKER_REWARD transaction
// (spec.md §3).
type StakerPenalty = StakerOutput

// Body carries a user transaction's fee-bearing fields
// (spec.md §3).
type Body struct {
	Nonce     uint64
	Fee       uint64
	KeyImages []primitives.KeyImage
	Outputs   []Output
}

func (b Body) serialize(w *codec.Writer) {
	w.Varint(b.Nonce)
	w.Varint(b.Fee)
	w.Varint(uint64(len(b.KeyImages)))
	for _, ki := range b.KeyImages {
		w.Key(ki[:])
	}
	w.Varint(uint64(len(b.Outputs)))
	for _, o := range b.Outputs {
		o.serialize(w)
	}
}

func deserializeBody(r *codec.Reader) (Body, error) {
	nonce, err := r.Varint()
	if err != nil {
		return Body{}, err
	}
	fee, err := r.Varint()
	if err != nil {
		return Body{}, err
	}
	nki, err := r.Varint()
	if err != nil {
		return Body{}, err
	}
	kis := make([]primitives.KeyImage, 0, nki)
	for i := uint64(0); i < nki; i++ {
		k, err := r.Key(primitives.Size)
		if err != nil {
			return Body{}, err
		}
		var ki primitives.KeyImage
		copy(ki[:], k)
		kis = append(kis, ki)
	}
	nout, err := r.Varint()
	if err != nil {
		return Body{}, err
	}
	outs := make([]Output, 0, nout)
	for i := uint64(0); i < nout; i++ {
		o, err := deserializeOutput(r)
		if err != nil {
			return Body{}, err
		}
		outs = append(outs, o)
	}
	return Body{Nonce: nonce, Fee: fee, KeyImages: kis, Outputs: outs}, nil
}
