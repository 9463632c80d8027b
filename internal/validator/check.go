package validator

import (
	"github.com/ivantse/turtlecoin-v2/internal/chain"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

// Validator is the transaction validator: a stateless construction
// check plus a storage-backed full validation (spec.md §4.5).
type Validator struct {
	params Params
	store  *chain.Store
}

// New builds a Validator. store may be nil if only Check (construction
// validation) will be used.
func New(params Params, store *chain.Store) *Validator {
	return &Validator{params: params, store: store}
}

// Check runs the stateless construction check spec.md §4.5 defines: it
// inspects only the transaction's own fields, never storage state.
func (v *Validator) Check(tx chain.Transaction) error {
	switch t := tx.(type) {
	case *chain.Genesis:
		return v.checkGenesis(t)
	case *chain.StakerReward:
		return v.checkStakerReward(t)
	case *chain.UncommittedUser:
		return v.checkUser(t.Prefix, t.Body, t.Data, t.Digest(), t.RangeProofHash(), t.Serialize())
	case *chain.CommittedUser:
		return v.checkUser(t.Prefix, t.Body, t.Data, t.Digest(), t.RangeProofHash, t.Serialize())
	case *chain.StakeRefund:
		return v.checkStakeRefund(t)
	default:
		return ErrUnsupportedTransaction
	}
}

func (v *Validator) checkVersion(version uint64) error {
	if version != 1 {
		return ErrInvalidVersion
	}
	return nil
}

// checkUserVersion accepts version 1 (candidacy STAKE, or NORMAL/RECALL_STAKE)
// or version 2 (a STAKE vote against an existing candidate, spec.md §4.4
// add_stake(v2 STAKE tx)), per spec.md §4.5.
func (v *Validator) checkUserVersion(version uint64) error {
	if version != 1 && version != 2 {
		return ErrInvalidVersion
	}
	return nil
}

func (v *Validator) checkGenesis(t *chain.Genesis) error {
	if err := v.checkVersion(t.Prefix.Header.Version); err != nil {
		return err
	}
	if t.Prefix.PublicKey.Empty() {
		return ErrInvalidPublicKey
	}
	derived, ok := primitives.SecretToPublic(t.SecretKey)
	if !ok || derived != t.Prefix.PublicKey {
		return ErrKeypairMismatch
	}

	want := 2 * v.params.RingSize
	if len(t.OutputList) != want {
		return ErrInvalidOutputCount
	}
	for _, o := range t.OutputList {
		if err := checkOutputFields(o); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) checkStakerReward(t *chain.StakerReward) error {
	return v.checkVersion(t.Header.Version)
}

func (v *Validator) checkStakeRefund(t *chain.StakeRefund) error {
	if err := v.checkVersion(t.Prefix.Header.Version); err != nil {
		return err
	}
	if t.Prefix.PublicKey.Empty() {
		return ErrInvalidPublicKey
	}
	derived, ok := primitives.SecretToPublic(t.SecretKey)
	if !ok || derived != t.Prefix.PublicKey {
		return ErrKeypairMismatch
	}
	if t.RecallStakeTxHash.Empty() {
		return ErrInvalidStakeData
	}
	return checkOutputFields(t.Output)
}

func (v *Validator) checkUser(prefix chain.Prefix, body chain.Body, data chain.Data, digest, rangeProofHash primitives.Hash, serialized []byte) error {
	if err := v.checkUserVersion(prefix.Header.Version); err != nil {
		return err
	}
	if prefix.PublicKey.Empty() {
		return ErrInvalidPublicKey
	}

	powHash := primitives.PoWHash(digest, rangeProofHash, v.params.PoW)
	powZeros := powHash.LeadingZeroBits()
	if powZeros < v.params.MinPowZeros {
		return ErrMinimumPoW
	}

	required := v.params.RequiredFee(len(serialized), powZeros)
	if body.Fee < required {
		return ErrLowFee
	}

	if len(body.KeyImages) < v.params.MinInputs || len(body.KeyImages) > v.params.MaxInputs {
		return ErrInvalidInputCount
	}
	seen := make(map[primitives.KeyImage]bool, len(body.KeyImages))
	for _, ki := range body.KeyImages {
		if !primitives.Point(ki).InPrimeSubgroup() {
			return ErrBadKeyImage
		}
		if seen[ki] {
			return ErrBadKeyImage
		}
		seen[ki] = true
	}

	if len(body.Outputs) < v.params.MinOutputs || len(body.Outputs) > v.params.MaxOutputs {
		return ErrInvalidOutputCount
	}
	for _, o := range body.Outputs {
		if err := checkOutputFields(o); err != nil {
			return err
		}
	}

	switch d := data.(type) {
	case chain.StakeData:
		if d.StakeAmount == 0 || d.CandidatePublicKey.Empty() || d.StakerPublicViewKey.Empty() || d.StakerPublicSpendKey.Empty() {
			return ErrInvalidStakeData
		}
	case chain.RecallStakeData:
		if d.StakeAmount == 0 || d.CandidatePublicKey.Empty() || d.StakerID.Empty() {
			return ErrInvalidStakeData
		}
		var zeroSig primitives.Signature
		if d.ViewSignature == zeroSig || d.SpendSignature == zeroSig {
			return ErrInvalidStakeData
		}
	}
	return nil
}

func checkOutputFields(o chain.Output) error {
	if o.PublicEphemeral.Empty() || o.Amount == 0 || o.Commitment.Empty() {
		return ErrBadOutput
	}
	return nil
}
