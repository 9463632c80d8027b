package validator

import "errors"

// Error kinds per spec.md §7 ("Transaction").
var (
	ErrInvalidVersion     = errors.New("validator: invalid transaction version")
	ErrInvalidPublicKey   = errors.New("validator: invalid or missing public key")
	ErrKeypairMismatch    = errors.New("validator: secret key does not derive the claimed public key")
	ErrMinimumPoW         = errors.New("validator: proof of work below minimum zero bits")
	ErrLowFee             = errors.New("validator: fee below required fee")
	ErrInvalidInputCount  = errors.New("validator: input count out of range")
	ErrBadKeyImage        = errors.New("validator: key image not in prime subgroup or duplicated")
	ErrInvalidOutputCount = errors.New("validator: output count out of range")
	ErrBadOutput          = errors.New("validator: output has empty or zero field")
	ErrInvalidStakeData   = errors.New("validator: invalid stake/recall-stake payload")
	ErrExtraTooLarge      = errors.New("validator: extra field exceeds maximum size")

	ErrPseudoCommitmentCount  = errors.New("validator: pseudo commitment count does not match input count")
	ErrUnbalanced             = errors.New("validator: input and output commitments do not balance")
	ErrInvalidRangeProof      = errors.New("validator: bulletproof+ range proof failed verification")
	ErrSignatureCountMismatch = errors.New("validator: signature count does not match input count")
	ErrInvalidSignature       = errors.New("validator: CLSAG signature failed verification")
	ErrKeyImageExists         = errors.New("validator: key image already spent")
	ErrRingSizeInvalid        = errors.New("validator: ring participant count does not match ring size")

	ErrGenesisAlreadyPresent    = errors.New("validator: genesis block already exists")
	ErrGenesisSecretKeyMismatch = errors.New("validator: genesis secret key does not match configured network secret")
	ErrGenesisDerivationBad     = errors.New("validator: genesis output derivation does not match public ephemeral")
	ErrGenesisAmountMismatch    = errors.New("validator: genesis output amount does not match configured share")
	ErrGenesisCommitmentBad     = errors.New("validator: genesis output commitment does not match amount")

	ErrUnsupportedTransaction = errors.New("validator: unsupported transaction type")
)
