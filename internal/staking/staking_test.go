package staking

import (
	"testing"

	"github.com/ivantse/turtlecoin-v2/internal/primitives"
	"go.uber.org/zap"
)

func openTestEngine(t *testing.T, params Params) *Engine {
	t.Helper()
	e, err := Open(t.TempDir(), params, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestAddStakeCandidacyAndVote(t *testing.T) {
	e := openTestEngine(t, DefaultParams())

	candidate := primitives.Key{0x01}
	viewKey := primitives.Key{0x02}
	spendKey := primitives.Key{0x03}

	if err := e.AddStake(1, candidate, viewKey, spendKey, 100000); err != nil {
		t.Fatalf("AddStake v1: %v", err)
	}
	if err := e.AddStake(1, candidate, viewKey, spendKey, 100000); err != ErrCandidateAlreadyExists {
		t.Fatalf("second v1 AddStake error = %v, want ErrCandidateAlreadyExists", err)
	}

	votes, err := e.GetCandidateVotes(candidate)
	if err != nil {
		t.Fatalf("GetCandidateVotes: %v", err)
	}
	if votes != 100000 {
		t.Fatalf("GetCandidateVotes() = %d, want 100000", votes)
	}

	voterView := primitives.Key{0x04}
	voterSpend := primitives.Key{0x05}
	if err := e.AddStake(2, candidate, voterView, voterSpend, 500); err != nil {
		t.Fatalf("AddStake v2: %v", err)
	}
	votes, err = e.GetCandidateVotes(candidate)
	if err != nil {
		t.Fatalf("GetCandidateVotes: %v", err)
	}
	if votes != 100500 {
		t.Fatalf("GetCandidateVotes() after vote = %d, want 100500", votes)
	}
}

func TestAddStakeCandidacyWrongAmount(t *testing.T) {
	e := openTestEngine(t, DefaultParams())
	candidate := primitives.Key{0x01}
	err := e.AddStake(1, candidate, primitives.Key{0x02}, primitives.Key{0x03}, 1)
	if err != ErrCandidateAmountInvalid {
		t.Fatalf("AddStake v1 with wrong amount = %v, want ErrCandidateAmountInvalid", err)
	}
}

func TestAddStakeVoteUnknownCandidate(t *testing.T) {
	e := openTestEngine(t, DefaultParams())
	err := e.AddStake(2, primitives.Key{0x99}, primitives.Key{0x02}, primitives.Key{0x03}, 500)
	if err != ErrCandidateNotFound {
		t.Fatalf("AddStake v2 on unknown candidate = %v, want ErrCandidateNotFound", err)
	}
}

func TestRecallStake(t *testing.T) {
	e := openTestEngine(t, DefaultParams())
	candidate := primitives.Key{0x01}
	if err := e.AddStake(1, candidate, primitives.Key{0x02}, primitives.Key{0x03}, 100000); err != nil {
		t.Fatalf("AddStake v1: %v", err)
	}

	voterView := primitives.Key{0x04}
	voterSpend := primitives.Key{0x05}
	if err := e.AddStake(2, candidate, voterView, voterSpend, 500); err != nil {
		t.Fatalf("AddStake v2: %v", err)
	}

	recalled, err := e.RecallStake(candidate, voterView, voterSpend)
	if err != nil {
		t.Fatalf("RecallStake: %v", err)
	}
	if recalled.Amount != 500 {
		t.Fatalf("RecallStake returned amount %d, want 500", recalled.Amount)
	}

	votes, err := e.GetCandidateVotes(candidate)
	if err != nil {
		t.Fatalf("GetCandidateVotes: %v", err)
	}
	if votes != 100000 {
		t.Fatalf("GetCandidateVotes() after recall = %d, want 100000", votes)
	}

	if _, err := e.RecallStake(candidate, voterView, voterSpend); err != ErrStakerNotFound {
		t.Fatalf("second RecallStake error = %v, want ErrStakerNotFound", err)
	}
}

func permanentParams(permanents ...primitives.Key) Params {
	p := DefaultParams()
	p.PermanentCandidates = permanents
	return p
}

func TestRunElectionDeterministic(t *testing.T) {
	e := openTestEngine(t, DefaultParams())
	for i := byte(1); i <= 5; i++ {
		candidate := primitives.Key{i}
		if err := e.AddStake(1, candidate, primitives.Key{i, 0x10}, primitives.Key{i, 0x20}, 100000); err != nil {
			t.Fatalf("AddStake candidate %d: %v", i, err)
		}
		if err := e.AddStake(2, candidate, primitives.Key{i, 0x30}, primitives.Key{i, 0x40}, uint64(100*i)); err != nil {
			t.Fatalf("AddStake vote %d: %v", i, err)
		}
	}

	hashes := []primitives.Hash{primitives.SHA3([]byte("block-0")), primitives.SHA3([]byte("block-1"))}

	r1, err := e.RunElection(hashes, 3)
	if err != nil {
		t.Fatalf("RunElection: %v", err)
	}
	r2, err := e.RunElection(hashes, 3)
	if err != nil {
		t.Fatalf("RunElection (second call): %v", err)
	}

	if len(r1.Producers) != len(r2.Producers) || len(r1.Validators) != len(r2.Validators) {
		t.Fatalf("RunElection is not deterministic across calls: %+v vs %+v", r1, r2)
	}
	for i := range r1.Producers {
		if r1.Producers[i] != r2.Producers[i] {
			t.Fatalf("producer set differs across identical RunElection calls")
		}
	}

	producerSet := make(map[primitives.Key]bool, len(r1.Producers))
	for _, pk := range r1.Producers {
		producerSet[pk] = true
	}
	for _, vk := range r1.Validators {
		if producerSet[vk] {
			t.Fatalf("candidate %x elected as both producer and validator", vk)
		}
	}
}

func TestRunElectionPermanentCandidatesWithNoOtherStakes(t *testing.T) {
	p1 := primitives.Key{0xaa, 0x01}
	p2 := primitives.Key{0xaa, 0x02}
	p3 := primitives.Key{0xaa, 0x03}
	e := openTestEngine(t, permanentParams(p1, p2, p3))

	hashes := []primitives.Hash{primitives.SHA3([]byte("genesis"))}
	round, err := e.RunElection(hashes, 10)
	if err != nil {
		t.Fatalf("RunElection: %v", err)
	}

	if len(round.Producers) != 3 {
		t.Fatalf("Producers = %v, want exactly the 3 permanent candidates", round.Producers)
	}
	for _, pk := range []primitives.Key{p1, p2, p3} {
		found := false
		for _, got := range round.Producers {
			if got == pk {
				found = true
			}
		}
		if !found {
			t.Fatalf("permanent candidate %x missing from producers", pk)
		}
	}

	if len(round.Validators) != 0 {
		t.Fatalf("Validators = %v, want empty: with zero other candidates the overlap rule strips every permanent from the validator set", round.Validators)
	}
}

func TestValidatorThresholdMet(t *testing.T) {
	p := DefaultParams()
	if !p.ValidatorThresholdMet(6, 10) {
		t.Fatalf("6/10 signatures should meet the 60%% threshold")
	}
	if p.ValidatorThresholdMet(5, 10) {
		t.Fatalf("5/10 signatures should not meet the 60%% threshold")
	}
	if p.ValidatorThresholdMet(0, 0) {
		t.Fatalf("threshold over zero elected validators must never be met")
	}
}
