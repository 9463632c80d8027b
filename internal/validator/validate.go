package validator

import (
	"github.com/ivantse/turtlecoin-v2/internal/chain"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

// Validate runs the construction check plus, for transaction forms
// that still carry their cryptographic material, the full
// storage-backed checks spec.md §4.5 defines: balance, range proof,
// ring signatures, and double-spend. A CommittedUser has already been
// pruned of that material (spec.md §3's hash-preserving invariant), so
// its full validation degrades to the construction check plus a
// double-spend check.
func (v *Validator) Validate(tx chain.Transaction) error {
	switch t := tx.(type) {
	case *chain.Genesis:
		return v.validateGenesis(t)
	case *chain.UncommittedUser:
		return v.validateUncommitted(t)
	case *chain.CommittedUser:
		if err := v.checkUser(t.Prefix, t.Body, t.Data, t.Digest(), t.RangeProofHash, t.Serialize()); err != nil {
			return err
		}
		return v.checkDoubleSpend(t.Body.KeyImages)
	default:
		return v.Check(tx)
	}
}

func (v *Validator) checkDoubleSpend(keyImages []primitives.KeyImage) error {
	if v.store == nil || len(keyImages) == 0 {
		return nil
	}
	exists, err := v.store.AnyKeyImageExists(keyImages)
	if err != nil {
		return err
	}
	if exists {
		return ErrKeyImageExists
	}
	return nil
}

func (v *Validator) validateUncommitted(t *chain.UncommittedUser) error {
	if err := v.checkUser(t.Prefix, t.Body, t.Data, t.Digest(), t.RangeProofHash(), t.Serialize()); err != nil {
		return err
	}
	if err := v.checkDoubleSpend(t.Body.KeyImages); err != nil {
		return err
	}

	nInputs := len(t.Body.KeyImages)
	if len(t.PseudoCommitments) != nInputs {
		return ErrPseudoCommitmentCount
	}
	if len(t.Signatures) != nInputs {
		return ErrSignatureCountMismatch
	}
	if len(t.RingParticipants) != nInputs {
		return ErrRingSizeInvalid
	}

	if err := v.checkBalance(t.PseudoCommitments, t.Body.Outputs, t.Body.Fee); err != nil {
		return err
	}

	outputCommitments := make([]primitives.Commitment, len(t.Body.Outputs))
	for i, o := range t.Body.Outputs {
		outputCommitments[i] = o.Commitment
	}
	if !primitives.VerifyBulletproofPlus(t.RangeProof, outputCommitments) {
		return ErrInvalidRangeProof
	}

	message := t.Digest()
	for i, ring := range t.RingParticipants {
		if len(ring) != v.params.RingSize {
			return ErrRingSizeInvalid
		}
		members, err := v.ringMembers(ring)
		if err != nil {
			return err
		}
		if !primitives.VerifyCLSAG(message, t.Body.KeyImages[i], members, t.Signatures[i], t.PseudoCommitments[i]) {
			return ErrInvalidSignature
		}
	}
	return nil
}

func (v *Validator) ringMembers(ring []primitives.Hash) ([]primitives.RingMember, error) {
	outputs, _, err := v.store.GetTransactionOutputs(ring)
	if err != nil {
		return nil, err
	}
	members := make([]primitives.RingMember, len(outputs))
	for i, o := range outputs {
		members[i] = primitives.RingMember{PublicEphemeral: o.PublicEphemeral, Commitment: o.Commitment}
	}
	return members, nil
}

// checkBalance verifies spec.md §4.5's Pedersen balance equation:
// sum(pseudo-output commitments) == sum(output commitments) + fee*H.
func (v *Validator) checkBalance(pseudo []primitives.Commitment, outputs []chain.Output, fee uint64) error {
	pseudoPoints := make([]primitives.Point, len(pseudo))
	for i, c := range pseudo {
		pseudoPoints[i] = primitives.Point(c)
	}
	pseudoSum, ok := primitives.SumPoints(pseudoPoints)
	if !ok {
		return ErrUnbalanced
	}

	outPoints := make([]primitives.Point, len(outputs))
	for i, o := range outputs {
		outPoints[i] = primitives.Point(o.Commitment)
	}
	outSum, ok := primitives.SumPoints(outPoints)
	if !ok {
		return ErrUnbalanced
	}
	adjusted, ok := primitives.AddFeeCommitment(outSum, fee)
	if !ok {
		return ErrUnbalanced
	}
	if !primitives.PointsEqual(pseudoSum, adjusted) {
		return ErrUnbalanced
	}
	return nil
}

func (v *Validator) validateGenesis(t *chain.Genesis) error {
	if err := v.checkGenesis(t); err != nil {
		return err
	}
	if t.SecretKey != v.params.GenesisSecretKey {
		return ErrGenesisSecretKeyMismatch
	}
	if v.store != nil {
		exists, err := v.store.BlockExistsAtIndex(0)
		if err != nil {
			return err
		}
		if exists {
			return ErrGenesisAlreadyPresent
		}
	}

	secret := primitives.Scalar(t.SecretKey)
	derivation, ok := primitives.Derivation(v.params.GenesisDestinationView, secret)
	if !ok {
		return ErrGenesisDerivationBad
	}
	shareAmount := v.params.OutputAmount()
	for i, o := range t.OutputList {
		mask := primitives.DerivationToScalar(derivation, uint64(i))
		expectedEphemeral, ok := primitives.DerivePublic(mask, v.params.GenesisDestinationSpend)
		if !ok || expectedEphemeral != o.PublicEphemeral {
			return ErrGenesisDerivationBad
		}
		if shareAmount != 0 && o.Amount != shareAmount {
			return ErrGenesisAmountMismatch
		}
		wantCommitment := primitives.CommitmentFor(o.Amount, mask)
		if primitives.Point(wantCommitment) != primitives.Point(o.Commitment) {
			return ErrGenesisCommitmentBad
		}
	}
	return nil
}
