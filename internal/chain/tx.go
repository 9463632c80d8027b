package chain

import (
	"errors"

	"github.com/ivantse/turtlecoin-v2/internal/codec"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

// ErrUnknownTransactionType is returned when the leading varint of a
// serialized transaction does not match one of the six variants
// spec.md §3 defines.
var ErrUnknownTransactionType = errors.New("chain: unknown transaction type")

// Transaction is the sum type over the six variants spec.md §3 defines.
// It is modeled as an interface with one implementing struct per
// variant rather than a tagged union with runtime dispatch, per
// spec.md §9's "Design Notes": no inheritance, no switch-on-type in
// callers beyond the one Deserialize dispatch below.
type Transaction interface {
	Type() TransactionType
	Version() uint64
	// Hash is the consensus identity: SHA3(serialize(x)) for GENESIS/
	// STAKER_REWARD/STAKE_REFUND, and SHA3(digest||sigHash||rpHash) for
	// the uncommitted/committed user variants (spec.md §3 invariant).
	Hash() primitives.Hash
	// Serialize returns the canonical wire form (spec.md §4.1).
	Serialize() []byte
	// KeyImages returns the inputs this transaction spends, empty for
	// variants with none.
	KeyImages() []primitives.KeyImage
	// Outputs returns every output this transaction creates, empty for
	// STAKER_REWARD which has staker payouts instead.
	Outputs() []Output
}

// Deserialize dispatches on the leading type varint (spec.md §4.1:
// "type varint is peeked before dispatching to the right variant") and
// returns the matching variant.
func Deserialize(data []byte) (Transaction, error) {
	r := codec.NewReader(data)
	tag, err := r.Peek()
	if err != nil {
		return nil, err
	}
	switch TransactionType(tag) {
	case TypeGenesis:
		return deserializeGenesis(r)
	case TypeStakerReward:
		return deserializeStakerReward(r)
	case TypeNormal, TypeStake, TypeRecallStake:
		return deserializeUser(r)
	case TypeStakeRefund:
		return deserializeStakeRefund(r)
	default:
		return nil, ErrUnknownTransactionType
	}
}
