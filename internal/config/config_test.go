package config

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestBuildDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts := Flags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := opts.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if cfg.Port != 12897 {
		t.Fatalf("Port = %d, want 12897", cfg.Port)
	}
	if cfg.DBPath != "./data" {
		t.Fatalf("DBPath = %q, want ./data", cfg.DBPath)
	}
	if cfg.Reset {
		t.Fatalf("Reset = true, want false by default")
	}
	if cfg.Staking.RequiredCandidacyAmount != 100000 {
		t.Fatalf("Staking.RequiredCandidacyAmount = %d, want 100000", cfg.Staking.RequiredCandidacyAmount)
	}
	if cfg.Validator.RingSize != 512 {
		t.Fatalf("Validator.RingSize = %d, want 512", cfg.Validator.RingSize)
	}
}

func TestBuildSeedNodesAndNetworkID(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts := Flags(fs)
	if err := fs.Parse([]string{
		"--seed-node", "1.2.3.4:12897",
		"--seed-node", "5.6.7.8:12897",
		"--network-id", "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff",
		"--reset",
	}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := opts.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(cfg.SeedNodes) != 2 {
		t.Fatalf("SeedNodes = %v, want 2 entries", cfg.SeedNodes)
	}
	if !cfg.Reset {
		t.Fatalf("Reset = false, want true")
	}
	if cfg.NetworkID.Empty() {
		t.Fatalf("NetworkID should not be empty after --network-id")
	}
}

func TestBuildRejectsBadNetworkID(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts := Flags(fs)
	if err := fs.Parse([]string{"--network-id", "not-hex"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := opts.Build(); err == nil {
		t.Fatalf("Build: want error for malformed --network-id")
	}
}
