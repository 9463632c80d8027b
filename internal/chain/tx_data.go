package chain

import (
	"github.com/ivantse/turtlecoin-v2/internal/codec"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

// Data is the type-specific payload NORMAL/STAKE/RECALL_STAKE user
// transactions carry beyond their shared prefix+body (spec.md §3).
// NORMAL carries none.
type Data interface {
	serialize(w *codec.Writer)
}

// StakeData is the STAKE variant's payload.
type StakeData struct {
	StakeAmount          uint64
	CandidatePublicKey   primitives.Key
	StakerPublicViewKey  primitives.Key
	StakerPublicSpendKey primitives.Key
}

func (d StakeData) serialize(w *codec.Writer) {
	w.Varint(d.StakeAmount)
	w.Key(d.CandidatePublicKey[:])
	w.Key(d.StakerPublicViewKey[:])
	w.Key(d.StakerPublicSpendKey[:])
}

func deserializeStakeData(r *codec.Reader) (StakeData, error) {
	amt, err := r.Varint()
	if err != nil {
		return StakeData{}, err
	}
	cpk, err := r.Key(primitives.Size)
	if err != nil {
		return StakeData{}, err
	}
	svk, err := r.Key(primitives.Size)
	if err != nil {
		return StakeData{}, err
	}
	ssk, err := r.Key(primitives.Size)
	if err != nil {
		return StakeData{}, err
	}
	var out StakeData
	out.StakeAmount = amt
	copy(out.CandidatePublicKey[:], cpk)
	copy(out.StakerPublicViewKey[:], svk)
	copy(out.StakerPublicSpendKey[:], ssk)
	return out, nil
}

// RecallStakeData is the RECALL_STAKE variant's payload.
type RecallStakeData struct {
	StakeAmount        uint64
	CandidatePublicKey primitives.Key
	StakerID           primitives.Hash
	ViewSignature      primitives.Signature
	SpendSignature     primitives.Signature
}

func (d RecallStakeData) serialize(w *codec.Writer) {
	w.Varint(d.StakeAmount)
	w.Key(d.CandidatePublicKey[:])
	w.Key(d.StakerID[:])
	w.Key(d.ViewSignature[:])
	w.Key(d.SpendSignature[:])
}

func deserializeRecallStakeData(r *codec.Reader) (RecallStakeData, error) {
	amt, err := r.Varint()
	if err != nil {
		return RecallStakeData{}, err
	}
	cpk, err := r.Key(primitives.Size)
	if err != nil {
		return RecallStakeData{}, err
	}
	sid, err := r.Key(primitives.Size)
	if err != nil {
		return RecallStakeData{}, err
	}
	vsig, err := r.Key(primitives.Size * 2)
	if err != nil {
		return RecallStakeData{}, err
	}
	ssig, err := r.Key(primitives.Size * 2)
	if err != nil {
		return RecallStakeData{}, err
	}
	var out RecallStakeData
	out.StakeAmount = amt
	copy(out.CandidatePublicKey[:], cpk)
	copy(out.StakerID[:], sid)
	copy(out.ViewSignature[:], vsig)
	copy(out.SpendSignature[:], ssig)
	return out, nil
}

// noData is NORMAL's empty payload.
type noData struct{}

func (noData) serialize(w *codec.Writer) {}

func deserializeData(r *codec.Reader, t TransactionType) (Data, error) {
	switch t {
	case TypeStake:
		return deserializeStakeData(r)
	case TypeRecallStake:
		return deserializeRecallStakeData(r)
	default:
		return noData{}, nil
	}
}
