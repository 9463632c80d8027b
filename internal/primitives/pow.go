package primitives

import "golang.org/x/crypto/argon2"

// PoWParams carries the Argon2id tuning from spec.md §4.5/§6.
type PoWParams struct {
	Iterations uint32
	MemoryKiB  uint32
	Threads    uint8
}

// DefaultPoWParams matches spec.md §6: ITERATIONS=2048, MEMORY=1024 KiB,
// THREADS=1.
var DefaultPoWParams = PoWParams{
	Iterations: 2048,
	MemoryKiB:  1024,
	Threads:    1,
}

// PoWHash computes Argon2id(SHA3(digest || rangeProofHash)), the mining
// target hash for a transaction (spec.md §4.5).
func PoWHash(digest, rangeProofHash Hash, params PoWParams) Hash {
	seed := SHA3(digest.Bytes(), rangeProofHash.Bytes())
	sum := argon2.IDKey(seed.Bytes(), nil, params.Iterations, params.MemoryKiB, params.Threads, uint32(Size))
	var out Hash
	copy(out[:], sum)
	return out
}

// LeadingZeroBits counts the number of leading zero bits in h, the unit
// the PoW admission check (spec.md §4.5, §6) is expressed in.
func (h Hash) LeadingZeroBits() int {
	count := 0
	for _, b := range h {
		if b == 0 {
			count += 8
			continue
		}
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			if b&mask != 0 {
				return count
			}
			count++
		}
	}
	return count
}
