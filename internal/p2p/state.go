package p2p

import (
	"sync"

	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

// ConnectionState is a peer connection's position in the handshake
// state machine (spec.md §4.6 "Connection state machine per peer").
type ConnectionState int

const (
	StateInitial ConnectionState = iota
	StateHandshaked
	StateEstablished
)

// PeerConnection tracks one peer's handshake progress and identity on
// either side of a connection: the overlay keeps one per inbound peer
// and one per outbound client (spec.md §4.6).
type PeerConnection struct {
	mu sync.Mutex

	Identity  []byte // ROUTER frame-one identity for this peer
	State     ConnectionState
	PeerID    primitives.Key
	PeerPort  uint64
	NetworkID primitives.Key
}

// Advance applies a received packet to the state machine, returning
// ErrProtocolViolation for any transition spec.md §4.6 disallows. On
// a valid HANDSHAKE it records the peer's identity fields and moves
// INITIAL -> HANDSHAKED; any ESTABLISHED-only packet is accepted once
// in HANDSHAKED or ESTABLISHED.
func (c *PeerConnection) Advance(selfID primitives.Key, p Packet, seedMode bool, selfNetworkID primitives.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch pkt := p.(type) {
	case *Handshake:
		if c.State != StateInitial {
			return ErrProtocolViolation
		}
		if pkt.Version() < MinimumVersion {
			return ErrProtocolViolation
		}
		if pkt.PeerID == selfID {
			return ErrProtocolViolation
		}
		if len(pkt.Peers) > MaxPeersExchanged {
			return ErrProtocolViolation
		}
		c.PeerID = pkt.PeerID
		c.PeerPort = pkt.PeerPort
		c.NetworkID = pkt.NetworkID
		c.State = StateHandshaked
		return nil

	default:
		if c.State == StateInitial {
			return ErrProtocolViolation
		}
		if c.State == StateHandshaked {
			c.State = StateEstablished
		}
		switch typed := pkt.(type) {
		case *PeerExchange:
			if len(typed.Peers) > MaxPeersExchanged {
				return ErrProtocolViolation
			}
		case *Data:
			if !seedMode && typed.NetworkID != selfNetworkID {
				return ErrProtocolViolation
			}
		}
		return nil
	}
}

// PeerSnapshot is a read-only copy of a PeerConnection's fields, safe
// to pass around without holding its mutex.
type PeerSnapshot struct {
	Identity  []byte
	State     ConnectionState
	PeerID    primitives.Key
	PeerPort  uint64
	NetworkID primitives.Key
}

// Snapshot returns a copy of the connection's current fields.
func (c *PeerConnection) Snapshot() PeerSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return PeerSnapshot{
		Identity:  append([]byte(nil), c.Identity...),
		State:     c.State,
		PeerID:    c.PeerID,
		PeerPort:  c.PeerPort,
		NetworkID: c.NetworkID,
	}
}
