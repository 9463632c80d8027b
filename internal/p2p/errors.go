package p2p

import "errors"

// Error kinds per spec.md §7 ("Network").
var (
	ErrBindFailure       = errors.New("p2p: failed to bind server socket")
	ErrConnectFailure    = errors.New("p2p: failed to connect to peer")
	ErrDuplicateConnect  = errors.New("p2p: already connected to this peer")
	ErrSeedConnectFailure = errors.New("p2p: no configured seed node was reachable")

	// ErrProtocolViolation covers every case spec.md §4.6 lists under
	// "Protocol violations": HANDSHAKE received twice, a non-HANDSHAKE
	// packet before handshake, an oversized peer vector, a version
	// below MinimumVersion, a self-connection, or a network_id
	// mismatch on DATA outside seed mode. The caller logs and drops
	// the packet; no further detail is needed by the state machine.
	ErrProtocolViolation = errors.New("p2p: protocol violation")
)
