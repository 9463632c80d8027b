// Package config builds the node's immutable configuration from
// defaults plus CLI flags (SPEC_FULL.md's AMBIENT STACK: "an immutable
// config.Config struct built once at startup from defaults +
// spf13/pflag-based flags"). It replaces the teacher's cmd/settings.go
// package-level constants with fields on a struct built once and
// passed by value into every component constructor.
package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ivantse/turtlecoin-v2/internal/primitives"
	"github.com/ivantse/turtlecoin-v2/internal/staking"
	"github.com/ivantse/turtlecoin-v2/internal/validator"
	"github.com/spf13/pflag"
)

// PublicAddressPrefix and the protocol version are fixed network
// constants confirmed by original_source/include/config.h (see
// SPEC_FULL.md's SUPPLEMENTED FEATURES).
const (
	PublicAddressPrefix uint32 = 0x6bb3b1d
	ProtocolVersion     uint64 = 1
	MinimumVersion      uint64 = 1
)

// Config is the node's full runtime configuration, built once at
// startup and never mutated afterward (spec.md §9 "Config as a
// registered option set").
type Config struct {
	DBPath   string
	Port     uint16
	Reset    bool
	LogLevel int

	SeedNodes []string
	SeedMode  bool
	NetworkID primitives.Key

	CurveServerPublicKey string
	CurveServerSecretKey string

	Staking   staking.Params
	Validator validator.Params

	ConnectTimeout time.Duration
}

// Flags registers every recognized option spec.md §6 lists onto fs,
// mirroring the teacher's CLI surface (--db-path, --port, --reset,
// --seed-node, --log-level) but through spf13/pflag instead of
// os.Args indexing.
func Flags(fs *pflag.FlagSet) *Options {
	o := &Options{}
	fs.StringVar(&o.DBPath, "db-path", "./data", "path to the node's on-disk state")
	fs.Uint16Var(&o.Port, "port", 12897, "ROUTER bind port")
	fs.BoolVar(&o.Reset, "reset", false, "delete the peer database before starting")
	fs.StringArrayVar(&o.SeedNodes, "seed-node", nil, "seed peer address host:port, may repeat")
	fs.IntVar(&o.LogLevel, "log-level", 3, "log level, 0 (silent) to 6 (trace)")
	fs.BoolVar(&o.SeedMode, "seed", false, "run as a seed node: accept all network_ids, never relay DATA")
	fs.StringVar(&o.NetworkID, "network-id", "", "32-byte hex network identifier")
	fs.StringVar(&o.CurveServerPublicKeyZ85, "curve-server-public-key", "", "Z85-encoded static CurveZMQ server public key")
	fs.StringVar(&o.CurveServerSecretKeyZ85, "curve-server-secret-key", "", "Z85-encoded static CurveZMQ server secret key")
	return o
}

// Options is the pflag-bound staging area Flags populates; Build
// converts it into an immutable Config after Execute.
type Options struct {
	DBPath                  string
	Port                    uint16
	Reset                   bool
	LogLevel                int
	SeedNodes               []string
	SeedMode                bool
	NetworkID               string
	CurveServerPublicKeyZ85 string
	CurveServerSecretKeyZ85 string
}

// Build resolves Options (post flag-parse) into an immutable Config,
// layering in the non-CLI defaults spec.md §6 names (fee/PoW/staking
// constants, ring size, permanent candidates).
func (o *Options) Build() (Config, error) {
	var networkID primitives.Key
	if o.NetworkID != "" {
		raw, err := hex.DecodeString(o.NetworkID)
		if err != nil || len(raw) != primitives.Size {
			return Config{}, fmt.Errorf("config: --network-id must be %d hex bytes", primitives.Size)
		}
		copy(networkID[:], raw)
	}

	return Config{
		DBPath:                o.DBPath,
		Port:                  o.Port,
		Reset:                 o.Reset,
		LogLevel:              o.LogLevel,
		SeedNodes:             o.SeedNodes,
		SeedMode:              o.SeedMode,
		NetworkID:             networkID,
		CurveServerPublicKey:  o.CurveServerPublicKeyZ85,
		CurveServerSecretKey:  o.CurveServerSecretKeyZ85,
		Staking:               staking.DefaultParams(),
		Validator:             validator.DefaultParams(),
		ConnectTimeout:        2000 * time.Millisecond,
	}, nil
}
