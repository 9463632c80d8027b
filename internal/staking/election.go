package staking

import (
	"encoding/binary"

	"github.com/ivantse/turtlecoin-v2/internal/codec"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

// Round is the outcome of one election: the producer and validator
// public keys elected for the next round (spec.md §4.4).
type Round struct {
	Producers  []primitives.Key
	Validators []primitives.Key
}

// RunElection seeds a deterministic weighted draw from the last round's
// block hashes and returns the elected producers and validators
// (spec.md §4.4 steps 1-5). Every node computes the same result from
// the same input: the only randomness is SHA3 extension of the seed.
func (e *Engine) RunElection(lastRoundHashes []primitives.Hash, maxKeys int) (Round, error) {
	seed := seedFromHashes(lastRoundHashes)

	all, err := e.ListCandidates()
	if err != nil {
		return Round{}, err
	}

	permanentSet := make(map[primitives.Key]bool, len(e.params.PermanentCandidates))
	for _, pk := range e.params.PermanentCandidates {
		permanentSet[pk] = true
	}

	pool := make([]Candidate, 0, len(all))
	for _, c := range all {
		if !permanentSet[c.PublicKey] {
			pool = append(pool, c)
		}
	}

	nPermanent := len(e.params.PermanentCandidates)
	drawCount := maxKeys - nPermanent
	if drawCount < 0 {
		drawCount = 0
	}

	var counter uint64
	var drawnProducers, drawnValidators []primitives.Key
	drawnProducers, counter = drawWeighted(pool, seed, counter, drawCount)
	drawnValidators, counter = drawWeighted(pool, seed, counter, drawCount)

	producers := cappedAppend(e.params.PermanentCandidates, drawnProducers, maxKeys)
	validators := cappedAppend(e.params.PermanentCandidates, drawnValidators, maxKeys)

	producerSet := make(map[primitives.Key]bool, len(producers))
	for _, pk := range producers {
		producerSet[pk] = true
	}

	// Step 5: a candidate may not occupy both a producer and a
	// validator slot in the same round. Redraw the validator slot from
	// the remaining pool; if none is available the slot is left empty
	// (spec.md §8 scenario 6).
	usedValidators := make(map[primitives.Key]bool, len(validators))
	final := make([]primitives.Key, 0, len(validators))
	for _, v := range validators {
		if !producerSet[v] {
			usedValidators[v] = true
			final = append(final, v)
			continue
		}
		replacement, ok, next := redrawValidator(pool, seed, counter, producerSet, usedValidators)
		counter = next
		if ok {
			usedValidators[replacement] = true
			final = append(final, replacement)
		}
	}

	return Round{Producers: producers, Validators: final}, nil
}

func seedFromHashes(hashes []primitives.Hash) primitives.Hash {
	buf := make([]byte, 0, len(hashes)*primitives.Size)
	for _, h := range hashes {
		buf = append(buf, h[:]...)
	}
	return primitives.SHA3(buf)
}

func cappedAppend(permanent, drawn []primitives.Key, max int) []primitives.Key {
	out := append(append([]primitives.Key(nil), permanent...), drawn...)
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// drawWeighted draws n distinct candidates from pool without
// replacement, weighted by TotalStake, extending seed with successive
// counters (spec.md §4.4 step 3: "S_i = SHA3(S || i)").
func drawWeighted(pool []Candidate, seed primitives.Hash, counter uint64, n int) ([]primitives.Key, uint64) {
	remaining := append([]Candidate(nil), pool...)
	result := make([]primitives.Key, 0, n)
	for len(result) < n && len(remaining) > 0 {
		si := extendSeed(seed, counter)
		counter++
		idx := weightedPick(remaining, si)
		result = append(result, remaining[idx].PublicKey)
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return result, counter
}

func redrawValidator(pool []Candidate, seed primitives.Hash, counter uint64, producerSet, usedValidators map[primitives.Key]bool) (primitives.Key, bool, uint64) {
	remaining := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if producerSet[c.PublicKey] || usedValidators[c.PublicKey] {
			continue
		}
		remaining = append(remaining, c)
	}
	if len(remaining) == 0 {
		return primitives.Key{}, false, counter
	}
	si := extendSeed(seed, counter)
	counter++
	idx := weightedPick(remaining, si)
	return remaining[idx].PublicKey, true, counter
}

func extendSeed(seed primitives.Hash, counter uint64) primitives.Hash {
	w := codec.NewWriter(primitives.Size + 10)
	w.Key(seed[:])
	w.Varint(counter)
	return primitives.SHA3(w.Finish())
}

// weightedPick returns the index of the candidate chosen by mapping
// the seed's leading 8 bytes into the cumulative weight range, falling
// back to a uniform pick when every candidate's weight is zero.
// Candidates are compared in pool order, which ListCandidates returns
// in ascending public-key order, giving the lexicographic tie-break
// spec.md §4.4 step 3 requires.
func weightedPick(pool []Candidate, si primitives.Hash) int {
	var total uint64
	for _, c := range pool {
		total += c.TotalStake
	}
	r := binary.BigEndian.Uint64(si[:8])
	if total == 0 {
		return int(r % uint64(len(pool)))
	}
	target := r % total
	var cum uint64
	for i, c := range pool {
		cum += c.TotalStake
		if target < cum {
			return i
		}
	}
	return len(pool) - 1
}
