// Package validator implements the transaction validator: the
// stateless construction check and the full storage-backed validation
// spec.md §4.5 defines over the six transaction variants. It is
// grounded on the teacher's kernel transaction checks, generalized from
// one balance check into the fee/PoW/ring/range-proof pipeline the
// spec's Pedersen-commitment transaction model requires.
package validator

import "github.com/ivantse/turtlecoin-v2/internal/primitives"

// Params carries the construction/validation constants spec.md §6
// enumerates. DefaultParams fills in the numeric constants; TotalAmount
// and the genesis key fields are left zero.
type Params struct {
	RingSize   int
	MinInputs  int
	MaxInputs  int
	MinOutputs int
	MaxOutputs int
	MaxExtra   int

	MinimumFee    uint64
	ChunkSize     uint64
	BaseChunkSize uint64
	ChunkFee      uint64

	MinPowZeros               int
	MaxPowZeros               int
	PowZeroDiscountMultiplier uint64

	PoW primitives.PoWParams

	// TotalAmount is the chain's total genesis supply, split evenly
	// across 2*RingSize outputs (spec.md §3, §9 "OUTPUT_AMOUNT =
	// TOTAL_AMOUNT / (2*RING_SIZE)"). It is a network-configuration
	// value, not a cryptographic constant. DefaultParams leaves it zero,
	// and while it is zero validateGenesis skips the per-output amount
	// check.
	TotalAmount uint64

	// GenesisSecretKey is the network's configured genesis secret key;
	// Validate rejects a GENESIS transaction whose SecretKey differs
	// from it (ErrGenesisSecretKeyMismatch). Check does not compare it.
	GenesisSecretKey primitives.Key

	// GenesisDestinationView/Spend are the recipient keys every genesis
	// output's derivation chain is checked against (spec.md §4.5's
	// "derivation chain against stored public_ephemeral"); genesis
	// mints its entire supply to one configured wallet.
	GenesisDestinationView  primitives.Point
	GenesisDestinationSpend primitives.Point
}

// DefaultParams returns spec.md §6's stated constants.
func DefaultParams() Params {
	return Params{
		RingSize:   512,
		MinInputs:  1,
		MaxInputs:  8,
		MinOutputs: 2,
		MaxOutputs: 8,
		MaxExtra:   1024,

		MinimumFee:    1,
		ChunkSize:     32,
		BaseChunkSize: 320,
		ChunkFee:      1,

		MinPowZeros:               1,
		MaxPowZeros:               16,
		PowZeroDiscountMultiplier: 2,

		PoW: primitives.DefaultPoWParams,
	}
}

// OutputAmount is the per-output share of a GENESIS transaction's
// total supply (spec.md §9).
func (p Params) OutputAmount() uint64 {
	return p.TotalAmount / uint64(2*p.RingSize)
}

// RequiredFee implements spec.md §4.5's fee formula: a base+chunk fee
// on serialized size, discounted geometrically by PoW zero bits above
// MinPowZeros, clamped at MinimumFee (spec.md §8 scenario 3).
func (p Params) RequiredFee(serializedSize int, powZeros int) uint64 {
	var chunks uint64
	if uint64(serializedSize) > p.BaseChunkSize {
		over := uint64(serializedSize) - p.BaseChunkSize
		chunks = (over + p.ChunkSize - 1) / p.ChunkSize
	}
	fee := p.MinimumFee + chunks*p.ChunkFee

	exponent := powZeros - p.MinPowZeros
	if exponent > 0 {
		fee /= pow(p.PowZeroDiscountMultiplier, exponent)
	}
	if fee < p.MinimumFee {
		fee = p.MinimumFee
	}
	return fee
}

func pow(base uint64, exp int) uint64 {
	r := uint64(1)
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}
