// Package staking implements the candidate registry, stake ledger, and
// deterministic producer/validator election (spec.md §4.4). It is
// grounded on internal/storage for persistence (the same LMDB
// environment/database wrapper the blockchain store uses) and on the
// teacher's kernel/chain.go for the shape of a small state machine
// updated by committed transactions. Engine holds no lock of its own;
// each storage write is serialized by the environment's write lock.
package staking

import (
	"github.com/ivantse/turtlecoin-v2/internal/codec"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

// Candidate is a public key entered into the staking registry by
// depositing RequiredCandidacyAmount (spec.md §3).
type Candidate struct {
	PublicKey      primitives.Key
	StakerViewKey  primitives.Key
	StakerSpendKey primitives.Key
	TotalStake     uint64
}

func (c Candidate) serialize() []byte {
	w := codec.NewWriter(96)
	w.Key(c.PublicKey[:])
	w.Key(c.StakerViewKey[:])
	w.Key(c.StakerSpendKey[:])
	w.Varint(c.TotalStake)
	return w.Finish()
}

func deserializeCandidate(raw []byte) (Candidate, error) {
	r := codec.NewReader(raw)
	pk, err := r.Key(primitives.Size)
	if err != nil {
		return Candidate{}, err
	}
	vk, err := r.Key(primitives.Size)
	if err != nil {
		return Candidate{}, err
	}
	sk, err := r.Key(primitives.Size)
	if err != nil {
		return Candidate{}, err
	}
	total, err := r.Varint()
	if err != nil {
		return Candidate{}, err
	}
	var c Candidate
	copy(c.PublicKey[:], pk)
	copy(c.StakerViewKey[:], vk)
	copy(c.StakerSpendKey[:], sk)
	c.TotalStake = total
	return c, nil
}

// Stake is one staking vote cast for a candidate (spec.md §3).
type Stake struct {
	RecordVersion      uint64
	CandidatePublicKey primitives.Key
	StakerViewKey      primitives.Key
	StakerSpendKey     primitives.Key
	Amount             uint64
}

// ID identifies the staker placing the vote, independent of which
// candidate or round it was cast in (spec.md §3: "id = SHA3(view_key ||
// spend_key)").
func (s Stake) ID() primitives.Hash {
	return primitives.SHA3(s.StakerViewKey[:], s.StakerSpendKey[:])
}

func (s Stake) serialize() []byte {
	w := codec.NewWriter(128)
	w.Varint(s.RecordVersion)
	w.Key(s.CandidatePublicKey[:])
	w.Key(s.StakerViewKey[:])
	w.Key(s.StakerSpendKey[:])
	w.Varint(s.Amount)
	return w.Finish()
}

func deserializeStake(raw []byte) (Stake, error) {
	r := codec.NewReader(raw)
	ver, err := r.Varint()
	if err != nil {
		return Stake{}, err
	}
	cpk, err := r.Key(primitives.Size)
	if err != nil {
		return Stake{}, err
	}
	vk, err := r.Key(primitives.Size)
	if err != nil {
		return Stake{}, err
	}
	sk, err := r.Key(primitives.Size)
	if err != nil {
		return Stake{}, err
	}
	amt, err := r.Varint()
	if err != nil {
		return Stake{}, err
	}
	var s Stake
	s.RecordVersion = ver
	copy(s.CandidatePublicKey[:], cpk)
	copy(s.StakerViewKey[:], vk)
	copy(s.StakerSpendKey[:], sk)
	s.Amount = amt
	return s, nil
}
