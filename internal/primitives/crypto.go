package primitives

import (
	"crypto/ed25519"
	"encoding/binary"

	"filippo.io/edwards25519"
)

// SecretToPublic derives the Ed25519 public key matching secret, used by
// the GENESIS and STAKE_REFUND construction checks
// (spec.md §4.5: "secret_to_public(secret_key) == public_key").
func SecretToPublic(secret Key) (Key, bool) {
	seed := secret.Bytes()
	if len(seed) != ed25519.SeedSize {
		return Key{}, false
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	var out Key
	copy(out[:], pub)
	return out, true
}

// Sign produces a detached Ed25519 signature over hash using the key
// derived from secret's seed.
func Sign(secret Key, hash Hash) Signature {
	priv := ed25519.NewKeyFromSeed(secret.Bytes())
	sig := ed25519.Sign(priv, hash.Bytes())
	var out Signature
	copy(out[:], sig)
	return out
}

// Verify checks a detached Ed25519 signature over hash against pub.
func Verify(pub Key, hash Hash, sig Signature) bool {
	if pub.Empty() {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub.Bytes()), hash.Bytes(), sig.Bytes())
}

// Derivation computes D = 8 * secret * PublicView, the shared secret used
// to derive per-output one-time keys. It mirrors the CryptoNote-style key
// derivation the GENESIS validation check (spec.md §4.5) needs.
func Derivation(publicView Point, secret Scalar) (Point, bool) {
	p, err := new(edwards25519.Point).SetBytes(publicView[:])
	if err != nil {
		return Point{}, false
	}
	s, err := new(edwards25519.Scalar).SetCanonicalBytes(secret[:])
	if err != nil {
		return Point{}, false
	}
	d := new(edwards25519.Point).ScalarMult(s, p)
	// clear cofactor, matching the reference derivation's "* 8" step.
	d = new(edwards25519.Point).MultByCofactor(d)
	var out Point
	copy(out[:], d.Bytes())
	return out, true
}

// DerivationToScalar computes Hs(D || varint(index)), the per-output
// scalar used to offset the spend key into a one-time output key.
func DerivationToScalar(d Point, index uint64) Scalar {
	var idx [9]byte
	n := binary.PutUvarint(idx[:], index)
	h := SHA3(d.Bytes(), idx[:n])
	var out Scalar
	s, err := new(edwards25519.Scalar).SetUniformBytes(append(h.Bytes(), h.Bytes()...))
	if err == nil {
		copy(out[:], s.Bytes())
	}
	return out
}

// DerivePublic computes PublicSpend + s*G, the one-time output public key
// a GENESIS output is checked against.
func DerivePublic(s Scalar, publicSpend Point) (Point, bool) {
	spend, err := new(edwards25519.Point).SetBytes(publicSpend[:])
	if err != nil {
		return Point{}, false
	}
	sc, err := new(edwards25519.Scalar).SetCanonicalBytes(s[:])
	if err != nil {
		return Point{}, false
	}
	sg := new(edwards25519.Point).ScalarBaseMult(sc)
	result := new(edwards25519.Point).Add(spend, sg)
	var out Point
	copy(out[:], result.Bytes())
	return out, true
}

// CommitmentFor computes a Pedersen commitment amount*H + mask*G, used by
// GENESIS validation to recompute the expected output commitment
// (spec.md §8 scenario 1).
func CommitmentFor(amount uint64, mask Scalar) Commitment {
	var amountScalar [32]byte
	binary.LittleEndian.PutUint64(amountScalar[:8], amount)
	a, _ := new(edwards25519.Scalar).SetCanonicalBytes(amountScalar[:])
	m, err := new(edwards25519.Scalar).SetCanonicalBytes(mask[:])
	if err != nil {
		m = new(edwards25519.Scalar)
	}
	aH := new(edwards25519.Point).ScalarMult(a, pedersenH)
	mG := new(edwards25519.Point).ScalarBaseMult(m)
	c := new(edwards25519.Point).Add(aH, mG)
	var out Commitment
	copy(out[:], c.Bytes())
	return out
}

// pedersenH is the auxiliary generator used for the amount component of a
// Pedersen commitment, derived deterministically from the base point so
// that no party knows a discrete-log relation between G and H.
var pedersenH = func() *edwards25519.Point {
	h := SHA3([]byte("turtlecoin-v2/pedersen-h"))
	p, err := new(edwards25519.Point).SetBytes(h.Bytes())
	if err != nil {
		return edwards25519.NewGeneratorPoint()
	}
	return new(edwards25519.Point).MultByCofactor(p)
}()

// SumPoints adds a vector of compressed points, used to check Pedersen
// balance (sum(pseudo) == sum(outputs) + fee*H).
func SumPoints(points []Point) (Point, bool) {
	sum := edwards25519.NewIdentityPoint()
	for _, pt := range points {
		p, err := new(edwards25519.Point).SetBytes(pt[:])
		if err != nil {
			return Point{}, false
		}
		sum = new(edwards25519.Point).Add(sum, p)
	}
	var out Point
	copy(out[:], sum.Bytes())
	return out, true
}

// AddFeeCommitment adds fee*H to a point, used on the right-hand side of
// the Pedersen balance check.
func AddFeeCommitment(p Point, fee uint64) (Point, bool) {
	pt, err := new(edwards25519.Point).SetBytes(p[:])
	if err != nil {
		return Point{}, false
	}
	var feeScalar [32]byte
	binary.LittleEndian.PutUint64(feeScalar[:8], fee)
	f, _ := new(edwards25519.Scalar).SetCanonicalBytes(feeScalar[:])
	fH := new(edwards25519.Point).ScalarMult(f, pedersenH)
	sum := new(edwards25519.Point).Add(pt, fH)
	var out Point
	copy(out[:], sum.Bytes())
	return out, true
}

// PointsEqual reports whether two compressed points decode to the same
// curve point.
func PointsEqual(a, b Point) bool {
	pa, err1 := new(edwards25519.Point).SetBytes(a[:])
	pb, err2 := new(edwards25519.Point).SetBytes(b[:])
	if err1 != nil || err2 != nil {
		return a == b
	}
	return pa.Equal(pb) == 1
}
