package chain

import (
	"github.com/ivantse/turtlecoin-v2/internal/codec"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

// Genesis is the GENESIS transaction: the one output-minting
// transaction that seeds a chain's entire initial supply across
// 2*RING_SIZE outputs (spec.md §3, §8 scenario 1).
type Genesis struct {
	Prefix    Prefix
	SecretKey primitives.Key
	OutputList []Output
}

func (t *Genesis) Type() TransactionType            { return TypeGenesis }
func (t *Genesis) Version() uint64                  { return t.Prefix.Header.Version }
func (t *Genesis) KeyImages() []primitives.KeyImage { return nil }
func (t *Genesis) Outputs() []Output                { return t.OutputList }

func (t *Genesis) Serialize() []byte {
	w := codec.NewWriter(64 + len(t.OutputList)*Size)
	t.Prefix.serialize(w)
	w.Key(t.SecretKey[:])
	w.Varint(uint64(len(t.OutputList)))
	for _, o := range t.OutputList {
		o.serialize(w)
	}
	return w.Finish()
}

func (t *Genesis) Hash() primitives.Hash {
	return primitives.SHA3(t.Serialize())
}

func deserializeGenesis(r *codec.Reader) (Transaction, error) {
	prefix, err := deserializePrefix(r)
	if err != nil {
		return nil, err
	}
	sk, err := r.Key(primitives.Size)
	if err != nil {
		return nil, err
	}
	n, err := r.Varint()
	if err != nil {
		return nil, err
	}
	outs := make([]Output, 0, n)
	for i := uint64(0); i < n; i++ {
		o, err := deserializeOutput(r)
		if err != nil {
			return nil, err
		}
		outs = append(outs, o)
	}
	out := &Genesis{Prefix: prefix, OutputList: outs}
	copy(out.SecretKey[:], sk)
	return out, nil
}
