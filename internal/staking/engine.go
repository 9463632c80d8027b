package staking

import (
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
	"github.com/ivantse/turtlecoin-v2/internal/storage"
	"go.uber.org/zap"
)

const (
	dbCandidates = "candidates"
	dbStakes     = "stakes"
)

// Engine is the staking engine: the candidate registry, stake ledger,
// and election algorithm (spec.md §4.4).
type Engine struct {
	log    *zap.Logger
	params Params
	env    *storage.Environment

	candidates *storage.Database
	stakes     *storage.Database // dup-sort, keyed by candidate public key
}

// Open opens (or attaches to an already-open) staking store at path.
func Open(path string, params Params, log *zap.Logger) (*Engine, error) {
	env, err := storage.OpenEnvironment(path, log)
	if err != nil {
		return nil, err
	}
	candidates, err := env.OpenDatabase(dbCandidates, false)
	if err != nil {
		return nil, err
	}
	stakes, err := env.OpenDatabase(dbStakes, true)
	if err != nil {
		return nil, err
	}
	return &Engine{log: log, params: params, env: env, candidates: candidates, stakes: stakes}, nil
}

// Close releases the engine's reference on its environment.
func (e *Engine) Close() error { return e.env.Close() }

// GetCandidate fetches a candidate by public key.
func (e *Engine) GetCandidate(publicKey primitives.Key) (Candidate, error) {
	raw, err := e.candidates.Get(publicKey[:])
	if err == storage.ErrNotFound {
		return Candidate{}, ErrCandidateNotFound
	}
	if err != nil {
		return Candidate{}, err
	}
	return deserializeCandidate(raw)
}

// CandidateExists reports whether publicKey is a registered candidate.
func (e *Engine) CandidateExists(publicKey primitives.Key) (bool, error) {
	return e.candidates.Exists(publicKey[:])
}

// GetCandidateVotes is the candidate's current weight in the election,
// kept as a running total rather than re-summed from individual stake
// records on every call (spec.md §4.4: "weight each by
// get_candidate_votes(candidate) (sum of active stake amounts)").
func (e *Engine) GetCandidateVotes(publicKey primitives.Key) (uint64, error) {
	c, err := e.GetCandidate(publicKey)
	if err != nil {
		return 0, err
	}
	return c.TotalStake, nil
}

// AddStake registers a new candidate (version 1, spec.md §4.4
// add_stake(v1 STAKE tx)) or records a vote for an existing candidate
// (version 2, add_stake(v2 STAKE tx)).
func (e *Engine) AddStake(version uint64, candidatePublicKey, stakerViewKey, stakerSpendKey primitives.Key, amount uint64) error {
	if version == 1 {
		return e.addCandidacy(candidatePublicKey, stakerViewKey, stakerSpendKey, amount)
	}
	return e.addVote(version, candidatePublicKey, stakerViewKey, stakerSpendKey, amount)
}

func (e *Engine) addCandidacy(candidatePublicKey, stakerViewKey, stakerSpendKey primitives.Key, amount uint64) error {
	exists, err := e.CandidateExists(candidatePublicKey)
	if err != nil {
		return err
	}
	if exists {
		return ErrCandidateAlreadyExists
	}
	if amount != e.params.RequiredCandidacyAmount {
		return ErrCandidateAmountInvalid
	}

	c := Candidate{
		PublicKey:      candidatePublicKey,
		StakerViewKey:  stakerViewKey,
		StakerSpendKey: stakerSpendKey,
		TotalStake:     amount,
	}
	if err := e.candidates.Put(candidatePublicKey[:], c.serialize()); err != nil {
		return err
	}
	s := Stake{
		RecordVersion:      1,
		CandidatePublicKey: candidatePublicKey,
		StakerViewKey:      stakerViewKey,
		StakerSpendKey:     stakerSpendKey,
		Amount:             amount,
	}
	return e.stakes.PutDup(candidatePublicKey[:], s.serialize())
}

func (e *Engine) addVote(version uint64, candidatePublicKey, stakerViewKey, stakerSpendKey primitives.Key, amount uint64) error {
	c, err := e.GetCandidate(candidatePublicKey)
	if err != nil {
		return err
	}
	if amount < e.params.MinimumStakeAmount {
		return ErrStakeAmountInvalid
	}

	s := Stake{
		RecordVersion:      version,
		CandidatePublicKey: candidatePublicKey,
		StakerViewKey:      stakerViewKey,
		StakerSpendKey:     stakerSpendKey,
		Amount:             amount,
	}
	if err := e.stakes.PutDup(candidatePublicKey[:], s.serialize()); err != nil {
		return err
	}
	c.TotalStake += amount
	return e.candidates.Put(candidatePublicKey[:], c.serialize())
}

// RecallStake reverses a prior stake placed by the staker identified by
// stakerViewKey/stakerSpendKey against candidatePublicKey (spec.md
// §4.4 recall_stake). The caller validates the RECALL_STAKE/STAKE_REFUND
// pair together; this only updates the ledger.
func (e *Engine) RecallStake(candidatePublicKey, stakerViewKey, stakerSpendKey primitives.Key) (Stake, error) {
	return e.recallStake(candidatePublicKey, Stake{StakerViewKey: stakerViewKey, StakerSpendKey: stakerSpendKey}.ID())
}

// RecallStakeByID reverses a prior stake identified directly by its
// staker id (spec.md §3: "id = SHA3(view_key || spend_key)"). A
// RECALL_STAKE transaction's wire form carries only the staker id, not
// the raw view/spend keys (those stay hidden behind the staker's
// signatures) — this is the entry point the transaction-driven path
// in internal/node uses, while RecallStake stays available for callers
// that already hold the staker's keys.
func (e *Engine) RecallStakeByID(candidatePublicKey primitives.Key, stakerID primitives.Hash) (Stake, error) {
	return e.recallStake(candidatePublicKey, stakerID)
}

func (e *Engine) recallStake(candidatePublicKey primitives.Key, wantID primitives.Hash) (Stake, error) {
	c, err := e.GetCandidate(candidatePublicKey)
	if err != nil {
		return Stake{}, err
	}

	var found Stake
	var ok bool
	err = e.stakes.View(func(txn *storage.Txn) error {
		cur, err := txn.Cursor(e.stakes)
		if err != nil {
			return err
		}
		defer cur.Close()

		k, v, err := cur.Seek(storage.OpSet, candidatePublicKey[:])
		for err == nil {
			if !keyEqual(k, candidatePublicKey[:]) {
				break
			}
			s, derr := deserializeStake(v)
			if derr != nil {
				return derr
			}
			if s.ID() == wantID {
				found = s
				ok = true
				break
			}
			k, v, err = cur.Seek(storage.OpNext, nil)
		}
		return nil
	})
	if err != nil {
		return Stake{}, err
	}
	if !ok {
		return Stake{}, ErrStakerNotFound
	}

	remaining, err := e.listStakes(candidatePublicKey)
	if err != nil {
		return Stake{}, err
	}
	if err := e.stakes.Del(candidatePublicKey[:]); err != nil {
		return Stake{}, err
	}
	// Del on a dup-sort database removes every value under key; re-insert
	// every remaining vote for this candidate except the recalled one.
	for _, s := range remaining {
		if s.ID() == wantID {
			continue
		}
		if err := e.stakes.PutDup(candidatePublicKey[:], s.serialize()); err != nil {
			return Stake{}, err
		}
	}

	if c.TotalStake >= found.Amount {
		c.TotalStake -= found.Amount
	} else {
		c.TotalStake = 0
	}
	if err := e.candidates.Put(candidatePublicKey[:], c.serialize()); err != nil {
		return Stake{}, err
	}
	return found, nil
}

func (e *Engine) listStakes(candidatePublicKey primitives.Key) ([]Stake, error) {
	var out []Stake
	err := e.stakes.View(func(txn *storage.Txn) error {
		cur, err := txn.Cursor(e.stakes)
		if err != nil {
			return err
		}
		defer cur.Close()

		k, v, err := cur.Seek(storage.OpSet, candidatePublicKey[:])
		for err == nil {
			if !keyEqual(k, candidatePublicKey[:]) {
				break
			}
			s, derr := deserializeStake(v)
			if derr != nil {
				return derr
			}
			out = append(out, s)
			k, v, err = cur.Seek(storage.OpNext, nil)
		}
		return nil
	})
	if err == storage.ErrNotFound {
		return out, nil
	}
	return out, err
}

// ListCandidates returns every registered candidate, in ascending
// public-key order (the order the candidates database is stored in).
func (e *Engine) ListCandidates() ([]Candidate, error) {
	var out []Candidate
	err := e.candidates.View(func(txn *storage.Txn) error {
		cur, err := txn.Cursor(e.candidates)
		if err != nil {
			return err
		}
		defer cur.Close()

		_, v, err := cur.Seek(storage.OpFirst, nil)
		for err == nil {
			c, derr := deserializeCandidate(v)
			if derr != nil {
				return derr
			}
			out = append(out, c)
			_, v, err = cur.Seek(storage.OpNext, nil)
		}
		return nil
	})
	if err == storage.ErrNotFound {
		return out, nil
	}
	return out, err
}

func keyEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
