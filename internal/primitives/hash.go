// Package primitives defines the fixed-size cryptographic value types
// shared across the blockchain store, staking engine, and transaction
// validator (spec.md §3): Hash, Key, Scalar, Point, Signature, KeyImage,
// and Commitment. It wraps golang.org/x/crypto/sha3 for content hashing
// and filippo.io/edwards25519 for group arithmetic; curve25519/Ed25519
// signing itself is an external collaborator per spec.md §1 and is not
// reimplemented here beyond the group-membership and derivation checks
// the validator needs.
package primitives

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Size is the fixed byte length of every Hash/Key/Scalar/Point/Signature/
// KeyImage/Commitment in this system.
const Size = 32

// Hash is a SHA3-256 digest, used as content identifier and storage key.
// Equality is byte equality; ordering is lexicographic (spec.md §3).
type Hash [Size]byte

// SHA3 returns the canonical content hash of data.
func SHA3(data ...[]byte) Hash {
	h := sha3.New256()
	for _, d := range data {
		h.Write(d)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Bytes returns a copy of the hash's 32 bytes.
func (h Hash) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, h[:])
	return out
}

// Empty reports whether every byte is zero.
func (h Hash) Empty() bool {
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}

// Compare returns -1, 0, or 1 per lexicographic byte order, matching the
// ordering requirement of spec.md §3 and used to sort block.transactions.
func (h Hash) Compare(other Hash) int {
	for i := range h {
		if h[i] != other[i] {
			if h[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// String renders the hash as lowercase hex, for logging (zap.Stringer).
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// HashFromBytes copies b (which must be exactly Size bytes) into a Hash.
func HashFromBytes(b []byte) (Hash, bool) {
	var h Hash
	if len(b) != Size {
		return h, false
	}
	copy(h[:], b)
	return h, true
}
