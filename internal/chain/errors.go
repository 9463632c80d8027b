package chain

import "errors"

// Error kinds per spec.md §7 ("Block", "Transaction", "Storage").
var (
	ErrBlockNotFound             = errors.New("chain: block not found")
	ErrTransactionNotFound       = errors.New("chain: transaction not found")
	ErrTransactionOutputNotFound = errors.New("chain: transaction output not found")
	ErrBlockTxnMismatch          = errors.New("chain: block transaction set does not match supplied transactions")
	ErrBlockTxnOrder             = errors.New("chain: block transaction order hash mismatch")
	ErrGenesisAlreadyExists      = errors.New("chain: genesis block already exists")
	ErrRewindTargetNotFound      = errors.New("chain: rewind target block does not exist")
)
