package staking

import "github.com/ivantse/turtlecoin-v2/internal/primitives"

// Params holds the consensus constants the staking engine and election
// algorithm are parameterized by (spec.md §6 "Consensus").
type Params struct {
	RequiredCandidacyAmount uint64
	MinimumStakeAmount      uint64
	ElectorTargetCount      int
	// ValidatorThresholdPercent is the minimum percentage of elected
	// validators whose signatures must be present on a block.
	ValidatorThresholdPercent int
	// PermanentCandidates are always-seated public keys, occupying one
	// producer and one validator slot each every round.
	PermanentCandidates []primitives.Key
}

// DefaultParams matches spec.md §6's consensus constants. PermanentCandidates
// is left empty: production values are a placeholder per spec.md §9's
// Open Questions ("TX_PRIVATE_KEY, DESTINATION_WALLET, PERMANENT_CANDIDATES
// are placeholders marked for replacement").
func DefaultParams() Params {
	return Params{
		RequiredCandidacyAmount:   100000,
		MinimumStakeAmount:        100,
		ElectorTargetCount:        10,
		ValidatorThresholdPercent: 60,
	}
}

// ValidatorThresholdMet reports whether signatureCount signatures are
// enough to satisfy VALIDATOR_THRESHOLD over electedValidators elected
// validators (spec.md §4.4 step 6, §8 scenario 6's
// "⌈0.6·|validators|⌉ signatures").
func (p Params) ValidatorThresholdMet(signatureCount, electedValidators int) bool {
	if electedValidators == 0 {
		return false
	}
	required := (electedValidators*p.ValidatorThresholdPercent + 99) / 100
	return signatureCount >= required
}
