package chain

import (
	"github.com/ivantse/turtlecoin-v2/internal/codec"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

// StakeRefund returns a staker's deposit after a RECALL_STAKE is
// processed; the pair is validated together since the refund proves
// return-of-funds (spec.md §3, §4.4).
type StakeRefund struct {
	Prefix            Prefix
	SecretKey         primitives.Key
	RecallStakeTxHash primitives.Hash
	Output            Output
}

func (t *StakeRefund) Type() TransactionType            { return TypeStakeRefund }
func (t *StakeRefund) Version() uint64                  { return t.Prefix.Header.Version }
func (t *StakeRefund) KeyImages() []primitives.KeyImage { return nil }
func (t *StakeRefund) Outputs() []Output                { return []Output{t.Output} }

func (t *StakeRefund) Serialize() []byte {
	w := codec.NewWriter(192)
	t.Prefix.serialize(w)
	w.Key(t.SecretKey[:])
	w.Key(t.RecallStakeTxHash[:])
	t.Output.serialize(w)
	return w.Finish()
}

func (t *StakeRefund) Hash() primitives.Hash {
	return primitives.SHA3(t.Serialize())
}

func deserializeStakeRefund(r *codec.Reader) (Transaction, error) {
	prefix, err := deserializePrefix(r)
	if err != nil {
		return nil, err
	}
	sk, err := r.Key(primitives.Size)
	if err != nil {
		return nil, err
	}
	rh, err := r.Key(primitives.Size)
	if err != nil {
		return nil, err
	}
	out, err := deserializeOutput(r)
	if err != nil {
		return nil, err
	}
	t := &StakeRefund{Prefix: prefix, Output: out}
	copy(t.SecretKey[:], sk)
	copy(t.RecallStakeTxHash[:], rh)
	return t, nil
}
