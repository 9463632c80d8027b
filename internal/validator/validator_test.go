package validator

import (
	"testing"

	"github.com/ivantse/turtlecoin-v2/internal/chain"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

// TestRequiredFeeWorkedExample encodes spec.md §8 scenario 3's exact
// numeric example: 400-byte transaction, 0 PoW zeros, required fee 4;
// the same size at 4 PoW zeros discounts by 2^(4-1)=8, bottoming at
// MinimumFee.
func TestRequiredFeeWorkedExample(t *testing.T) {
	p := DefaultParams()

	if got := p.RequiredFee(400, 0); got != 4 {
		t.Fatalf("RequiredFee(400, 0) = %d, want 4", got)
	}
	if got := p.RequiredFee(400, 4); got != 1 {
		t.Fatalf("RequiredFee(400, 4) = %d, want 1 (bottomed at MinimumFee)", got)
	}
	if got := p.RequiredFee(320, 0); got != 1 {
		t.Fatalf("RequiredFee(320, 0) = %d, want 1 (at or under BaseChunkSize)", got)
	}
	if got := p.RequiredFee(321, 0); got != 2 {
		t.Fatalf("RequiredFee(321, 0) = %d, want 2 (one byte over rounds up a whole chunk)", got)
	}
}

func buildGenesis(t *testing.T, p Params, secretKey primitives.Key, tamper func(outs []chain.Output)) *chain.Genesis {
	t.Helper()
	publicKey, ok := primitives.SecretToPublic(secretKey)
	if !ok {
		t.Fatalf("SecretToPublic failed")
	}

	secretScalar := primitives.Scalar(secretKey)
	derivation, ok := primitives.Derivation(p.GenesisDestinationView, secretScalar)
	if !ok {
		t.Fatalf("Derivation failed")
	}

	share := p.OutputAmount()
	outs := make([]chain.Output, 2*p.RingSize)
	for i := range outs {
		mask := primitives.DerivationToScalar(derivation, uint64(i))
		ephemeral, ok := primitives.DerivePublic(mask, p.GenesisDestinationSpend)
		if !ok {
			t.Fatalf("DerivePublic failed")
		}
		outs[i] = chain.Output{
			PublicEphemeral: ephemeral,
			Amount:          share,
			Commitment:      primitives.CommitmentFor(share, mask),
		}
	}
	if tamper != nil {
		tamper(outs)
	}

	return &chain.Genesis{
		Prefix: chain.Prefix{
			Header:    chain.Header{Type: chain.TypeGenesis, Version: 1},
			PublicKey: publicKey,
		},
		SecretKey:  secretKey,
		OutputList: outs,
	}
}

func genesisTestParams() Params {
	p := DefaultParams()
	p.RingSize = 2 // keep the output vector small for the test

	viewPub, _ := primitives.SecretToPublic(primitives.Key{0x02})
	spendPub, _ := primitives.SecretToPublic(primitives.Key{0x03})
	p.GenesisDestinationView = primitives.Point(viewPub)
	p.GenesisDestinationSpend = primitives.Point(spendPub)
	p.TotalAmount = uint64(2*p.RingSize) * 777
	p.GenesisSecretKey = primitives.Key{0x01} // the secret the genesis tests build with
	return p
}

// TestGenesisIntegrity encodes spec.md §8 scenario 1: a correctly
// constructed genesis validates, and tampering with any output field
// invalidates it.
func TestGenesisIntegrity(t *testing.T) {
	p := genesisTestParams()
	secretKey := primitives.Key{0x01}

	g := buildGenesis(t, p, secretKey, nil)
	v := New(p, nil)
	if err := v.Validate(g); err != nil {
		t.Fatalf("Validate(genesis) = %v, want nil", err)
	}

	tamperedAmount := buildGenesis(t, p, secretKey, func(outs []chain.Output) {
		outs[0].Amount++
	})
	if err := v.Validate(tamperedAmount); err != ErrGenesisAmountMismatch {
		t.Fatalf("Validate(tampered amount) = %v, want ErrGenesisAmountMismatch", err)
	}

	tamperedEphemeral := buildGenesis(t, p, secretKey, func(outs []chain.Output) {
		outs[0].PublicEphemeral[0] ^= 0xff
	})
	if err := v.Validate(tamperedEphemeral); err != ErrGenesisDerivationBad {
		t.Fatalf("Validate(tampered ephemeral) = %v, want ErrGenesisDerivationBad", err)
	}

	tamperedCommitment := buildGenesis(t, p, secretKey, func(outs []chain.Output) {
		outs[0].Commitment[0] ^= 0xff
	})
	if err := v.Validate(tamperedCommitment); err != ErrGenesisCommitmentBad {
		t.Fatalf("Validate(tampered commitment) = %v, want ErrGenesisCommitmentBad", err)
	}
}

func TestCheckGenesisWrongOutputCount(t *testing.T) {
	p := genesisTestParams()
	secretKey := primitives.Key{0x01}
	g := buildGenesis(t, p, secretKey, nil)
	g.OutputList = g.OutputList[:len(g.OutputList)-1]

	v := New(p, nil)
	if err := v.Check(g); err != ErrInvalidOutputCount {
		t.Fatalf("Check(short output list) = %v, want ErrInvalidOutputCount", err)
	}
}

func TestCheckGenesisKeypairMismatch(t *testing.T) {
	p := genesisTestParams()
	g := buildGenesis(t, p, primitives.Key{0x01}, nil)
	g.SecretKey = primitives.Key{0x09}

	v := New(p, nil)
	if err := v.Check(g); err != ErrKeypairMismatch {
		t.Fatalf("Check(wrong secret) = %v, want ErrKeypairMismatch", err)
	}
}

func TestCheckStakerRewardVersion(t *testing.T) {
	v := New(DefaultParams(), nil)
	ok := &chain.StakerReward{Header: chain.Header{Type: chain.TypeStakerReward, Version: 1}}
	if err := v.Check(ok); err != nil {
		t.Fatalf("Check(staker reward v1) = %v, want nil", err)
	}
	bad := &chain.StakerReward{Header: chain.Header{Type: chain.TypeStakerReward, Version: 2}}
	if err := v.Check(bad); err != ErrInvalidVersion {
		t.Fatalf("Check(staker reward v2) = %v, want ErrInvalidVersion", err)
	}
}
