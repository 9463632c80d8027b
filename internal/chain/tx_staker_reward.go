package chain

import (
	"github.com/ivantse/turtlecoin-v2/internal/codec"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

// StakerReward is the block reward transaction paid to electors instead
// of to a mined output vector (spec.md §3).
type StakerReward struct {
	Header          Header
	StakerOutputs   []StakerOutput
	StakerPenalties []StakerPenalty
}

func (t *StakerReward) Type() TransactionType            { return TypeStakerReward }
func (t *StakerReward) Version() uint64                  { return t.Header.Version }
func (t *StakerReward) KeyImages() []primitives.KeyImage { return nil }
func (t *StakerReward) Outputs() []Output                { return nil }

func (t *StakerReward) Serialize() []byte {
	w := codec.NewWriter(64 + (len(t.StakerOutputs)+len(t.StakerPenalties))*40)
	t.Header.serialize(w)
	w.Varint(uint64(len(t.StakerOutputs)))
	for _, o := range t.StakerOutputs {
		o.serialize(w)
	}
	w.Varint(uint64(len(t.StakerPenalties)))
	for _, p := range t.StakerPenalties {
		p.serialize(w)
	}
	return w.Finish()
}

func (t *StakerReward) Hash() primitives.Hash {
	return primitives.SHA3(t.Serialize())
}

func deserializeStakerReward(r *codec.Reader) (Transaction, error) {
	h, err := deserializeHeader(r)
	if err != nil {
		return nil, err
	}
	nout, err := r.Varint()
	if err != nil {
		return nil, err
	}
	outs := make([]StakerOutput, 0, nout)
	for i := uint64(0); i < nout; i++ {
		o, err := deserializeStakerOutput(r)
		if err != nil {
			return nil, err
		}
		outs = append(outs, o)
	}
	npen, err := r.Varint()
	if err != nil {
		return nil, err
	}
	pens := make([]StakerPenalty, 0, npen)
	for i := uint64(0); i < npen; i++ {
		p, err := deserializeStakerOutput(r)
		if err != nil {
			return nil, err
		}
		pens = append(pens, p)
	}
	return &StakerReward{Header: h, StakerOutputs: outs, StakerPenalties: pens}, nil
}
