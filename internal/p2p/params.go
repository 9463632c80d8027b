package p2p

import (
	"time"

	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

// Timing and sizing constants per spec.md §6 ("P2P:").
const (
	KeepaliveInterval         = 30 * time.Second
	PeerExchangeInterval      = 120 * time.Second
	ConnectionManagerInterval = 30 * time.Second
	DefaultConnectionTimeout  = 2000 * time.Millisecond

	MaxPeersExchanged = 250
	DefaultBindPort   = 12897

	MinimumVersion  = 1
	ProtocolVersion = 1
)

// Params configures one Overlay instance (spec.md §4.6, §6).
type Params struct {
	// NetworkID scopes which peers this node gossips with; ignored for
	// peer acceptance while SeedMode is set.
	NetworkID primitives.Key

	// BindAddress is the local ROUTER bind endpoint, e.g. "tcp://*:12897".
	BindAddress string

	// SeedNodes lists "host:port" outbound targets dialed at startup
	// and used to compute DefaultConnectionCount (spec.md §6:
	// "DEFAULT_CONNECTION_COUNT=|SEED_NODES|+8").
	SeedNodes []string

	// SeedMode, when true, accepts/tracks peers across all network_ids
	// and never forwards DATA packets (spec.md §4.6 "Seed mode").
	SeedMode bool

	// CurveServerPublicKey/SecretKey are the node's static Z85-encoded
	// CurveZMQ keypair. Every node in the network shares the same
	// server keypair so clients can authenticate the server they
	// connect to (spec.md §4.6, §6).
	CurveServerPublicKey string
	CurveServerSecretKey string
}

// DefaultConnectionCount is spec.md §6's |SEED_NODES|+8.
func (p Params) DefaultConnectionCount() int {
	return len(p.SeedNodes) + 8
}
