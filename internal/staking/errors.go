package staking

import "errors"

// Error kinds per spec.md §7 ("Staking").
var (
	ErrCandidateNotFound      = errors.New("staking: candidate not found")
	ErrCandidateAlreadyExists = errors.New("staking: candidate already exists")
	ErrCandidateAmountInvalid = errors.New("staking: candidate amount invalid")
	ErrStakerNotFound         = errors.New("staking: staker not found")
	ErrStakeAmountInvalid     = errors.New("staking: stake amount invalid")
)
