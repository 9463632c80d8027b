package chain

import (
	"github.com/ivantse/turtlecoin-v2/internal/codec"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

// UncommittedUser is a NORMAL/STAKE/RECALL_STAKE transaction carrying its
// full signatures and range proof (spec.md §3). It is the form a node
// receives from a wallet before committing it to a block.
type UncommittedUser struct {
	Prefix            Prefix
	Body              Body
	Data              Data
	PseudoCommitments []primitives.Commitment
	// RingParticipants holds, per key image, the hashes of the outputs
	// that make up its decoy ring (spec.md §3).
	RingParticipants [][]primitives.Hash
	Signatures       []primitives.CLSAGSignature
	RangeProof       primitives.BulletproofPlus
}

// CommittedUser is the pruned form of the same transaction: its
// signatures and range proof are replaced by their hashes, keeping the
// consensus-visible hash() identical while allowing the heavy
// cryptographic material to be pruned from disk (spec.md §3 invariant).
type CommittedUser struct {
	Prefix         Prefix
	Body           Body
	Data           Data
	SignatureHash  primitives.Hash
	RangeProofHash primitives.Hash
}

func (t *UncommittedUser) Type() TransactionType            { return t.Prefix.Header.Type }
func (t *UncommittedUser) Version() uint64                  { return t.Prefix.Header.Version }
func (t *UncommittedUser) KeyImages() []primitives.KeyImage { return t.Body.KeyImages }
func (t *UncommittedUser) Outputs() []Output                { return t.Body.Outputs }

func (t *CommittedUser) Type() TransactionType { return t.Prefix.Header.Type }
func (t *CommittedUser) Version() uint64       { return t.Prefix.Header.Version }
func (t *CommittedUser) KeyImages() []primitives.KeyImage { return t.Body.KeyImages }
func (t *CommittedUser) Outputs() []Output                { return t.Body.Outputs }

// digest returns SHA3(prefix || body || data), shared by both forms so
// that their hash() values are identical (spec.md §3, §9).
func digest(prefix Prefix, body Body, data Data) primitives.Hash {
	w := codec.NewWriter(256)
	prefix.serialize(w)
	body.serialize(w)
	data.serialize(w)
	return primitives.SHA3(w.Finish())
}

// SignatureHash is SHA3 of the serialized signature vector.
func (t *UncommittedUser) SignatureHash() primitives.Hash {
	w := codec.NewWriter(len(t.Signatures) * 128)
	w.Varint(uint64(len(t.Signatures)))
	for _, sig := range t.Signatures {
		w.Key(sig.Challenge[:])
		w.Varint(uint64(len(sig.Responses)))
		for _, resp := range sig.Responses {
			w.Key(resp[:])
		}
	}
	return primitives.SHA3(w.Finish())
}

// RangeProofHash is SHA3 of the serialized Bulletproofs+ proof.
func (t *UncommittedUser) RangeProofHash() primitives.Hash {
	return primitives.SHA3(serializeRangeProof(t.RangeProof))
}

func serializeRangeProof(p primitives.BulletproofPlus) []byte {
	w := codec.NewWriter(256)
	w.Key(p.A[:])
	w.Key(p.A1[:])
	w.Key(p.B[:])
	w.Key(p.R1[:])
	w.Key(p.S1[:])
	w.Key(p.D1[:])
	w.Varint(uint64(len(p.L)))
	for i := range p.L {
		w.Key(p.L[i][:])
		w.Key(p.Rp[i][:])
	}
	return w.Finish()
}

// Digest is SHA3(prefix || body || data), the payload the PoW hash and
// the consensus hash both build on (spec.md §3, §4.5).
func (t *UncommittedUser) Digest() primitives.Hash { return digest(t.Prefix, t.Body, t.Data) }

// Digest is SHA3(prefix || body || data); identical in meaning to the
// uncommitted form's (spec.md §3's shared-digest invariant).
func (t *CommittedUser) Digest() primitives.Hash { return digest(t.Prefix, t.Body, t.Data) }

// Hash implements Transaction per spec.md §3: "hash = SHA3(digest ||
// signature_hash || range_proof_hash)", where digest is shared by both
// forms.
func (t *UncommittedUser) Hash() primitives.Hash {
	d := digest(t.Prefix, t.Body, t.Data)
	sh := t.SignatureHash()
	rh := t.RangeProofHash()
	return primitives.SHA3(d.Bytes(), sh.Bytes(), rh.Bytes())
}

func (t *CommittedUser) Hash() primitives.Hash {
	d := digest(t.Prefix, t.Body, t.Data)
	return primitives.SHA3(d.Bytes(), t.SignatureHash.Bytes(), t.RangeProofHash.Bytes())
}

// ToCommitted projects the uncommitted form down to its pruned
// committed form. By construction its Hash() equals t.Hash()
// (spec.md §3 invariant, §8's "For every user transaction u with
// committed c = u.to_committed(): u.hash() == c.hash()").
func (t *UncommittedUser) ToCommitted() *CommittedUser {
	return &CommittedUser{
		Prefix:         t.Prefix,
		Body:           t.Body,
		Data:           t.Data,
		SignatureHash:  t.SignatureHash(),
		RangeProofHash: t.RangeProofHash(),
	}
}

const (
	formUncommitted = false
	formCommitted   = true
)

func (t *UncommittedUser) Serialize() []byte {
	w := codec.NewWriter(512)
	t.Prefix.serialize(w)
	w.Bool(formUncommitted)
	t.Body.serialize(w)
	t.Data.serialize(w)
	w.Varint(uint64(len(t.PseudoCommitments)))
	for _, c := range t.PseudoCommitments {
		w.Key(c[:])
	}
	w.Varint(uint64(len(t.RingParticipants)))
	for _, ring := range t.RingParticipants {
		w.Varint(uint64(len(ring)))
		for _, h := range ring {
			w.Key(h[:])
		}
	}
	w.Varint(uint64(len(t.Signatures)))
	for _, sig := range t.Signatures {
		w.Key(sig.Challenge[:])
		w.Varint(uint64(len(sig.Responses)))
		for _, resp := range sig.Responses {
			w.Key(resp[:])
		}
	}
	w.Raw(serializeRangeProof(t.RangeProof))
	return w.Finish()
}

func (t *CommittedUser) Serialize() []byte {
	w := codec.NewWriter(256)
	t.Prefix.serialize(w)
	w.Bool(formCommitted)
	t.Body.serialize(w)
	t.Data.serialize(w)
	w.Key(t.SignatureHash[:])
	w.Key(t.RangeProofHash[:])
	return w.Finish()
}

func deserializeUser(r *codec.Reader) (Transaction, error) {
	prefix, err := deserializePrefix(r)
	if err != nil {
		return nil, err
	}
	committed, err := r.Bool()
	if err != nil {
		return nil, err
	}
	body, err := deserializeBody(r)
	if err != nil {
		return nil, err
	}
	data, err := deserializeData(r, prefix.Header.Type)
	if err != nil {
		return nil, err
	}

	if committed {
		sh, err := r.Key(primitives.Size)
		if err != nil {
			return nil, err
		}
		rh, err := r.Key(primitives.Size)
		if err != nil {
			return nil, err
		}
		out := &CommittedUser{Prefix: prefix, Body: body, Data: data}
		copy(out.SignatureHash[:], sh)
		copy(out.RangeProofHash[:], rh)
		return out, nil
	}

	npc, err := r.Varint()
	if err != nil {
		return nil, err
	}
	pseudo := make([]primitives.Commitment, 0, npc)
	for i := uint64(0); i < npc; i++ {
		k, err := r.Key(primitives.Size)
		if err != nil {
			return nil, err
		}
		var c primitives.Commitment
		copy(c[:], k)
		pseudo = append(pseudo, c)
	}

	nrings, err := r.Varint()
	if err != nil {
		return nil, err
	}
	rings := make([][]primitives.Hash, 0, nrings)
	for i := uint64(0); i < nrings; i++ {
		n, err := r.Varint()
		if err != nil {
			return nil, err
		}
		ring := make([]primitives.Hash, 0, n)
		for j := uint64(0); j < n; j++ {
			k, err := r.Key(primitives.Size)
			if err != nil {
				return nil, err
			}
			h, _ := primitives.HashFromBytes(k)
			ring = append(ring, h)
		}
		rings = append(rings, ring)
	}

	nsigs, err := r.Varint()
	if err != nil {
		return nil, err
	}
	sigs := make([]primitives.CLSAGSignature, 0, nsigs)
	for i := uint64(0); i < nsigs; i++ {
		ch, err := r.Key(primitives.Size)
		if err != nil {
			return nil, err
		}
		nresp, err := r.Varint()
		if err != nil {
			return nil, err
		}
		resps := make([]primitives.Scalar, 0, nresp)
		for j := uint64(0); j < nresp; j++ {
			rk, err := r.Key(primitives.Size)
			if err != nil {
				return nil, err
			}
			var s primitives.Scalar
			copy(s[:], rk)
			resps = append(resps, s)
		}
		var sig primitives.CLSAGSignature
		copy(sig.Challenge[:], ch)
		sig.Responses = resps
		sigs = append(sigs, sig)
	}

	rp, err := deserializeRangeProof(r)
	if err != nil {
		return nil, err
	}

	return &UncommittedUser{
		Prefix:            prefix,
		Body:              body,
		Data:              data,
		PseudoCommitments: pseudo,
		RingParticipants:  rings,
		Signatures:        sigs,
		RangeProof:        rp,
	}, nil
}

func deserializeRangeProof(r *codec.Reader) (primitives.BulletproofPlus, error) {
	var p primitives.BulletproofPlus
	fields := [][]byte{}
	for i := 0; i < 6; i++ {
		k, err := r.Key(primitives.Size)
		if err != nil {
			return p, err
		}
		fields = append(fields, k)
	}
	copy(p.A[:], fields[0])
	copy(p.A1[:], fields[1])
	copy(p.B[:], fields[2])
	copy(p.R1[:], fields[3])
	copy(p.S1[:], fields[4])
	copy(p.D1[:], fields[5])

	n, err := r.Varint()
	if err != nil {
		return p, err
	}
	for i := uint64(0); i < n; i++ {
		l, err := r.Key(primitives.Size)
		if err != nil {
			return p, err
		}
		rr, err := r.Key(primitives.Size)
		if err != nil {
			return p, err
		}
		var lp, rp primitives.Point
		copy(lp[:], l)
		copy(rp[:], rr)
		p.L = append(p.L, lp)
		p.Rp = append(p.Rp, rp)
	}
	return p, nil
}
