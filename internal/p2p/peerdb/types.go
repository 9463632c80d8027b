// Package peerdb implements the P2P overlay's persisted peer database
// (spec.md §4.6 "Peer database", §3's NetworkPeer). It is grounded on
// internal/storage's LMDB environment/database wrapper, the same way
// internal/chain's Store and internal/staking's Engine are, generalized
// from a block/candidate schema to a peer_id-keyed peer list plus a
// single local-identity record.
package peerdb

import (
	"net"

	"github.com/ivantse/turtlecoin-v2/internal/codec"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

// NetworkPeer is one entry in the peer database, and the shape carried
// inside HANDSHAKE/PEER_EXCHANGE packets (spec.md §3, §6).
type NetworkPeer struct {
	Address   net.IP // always stored/serialized in 16-byte (v4-in-v6) form
	Flags     uint64
	PeerID    primitives.Key
	Port      uint64
	NetworkID primitives.Key
	LastSeen  uint64
}

// Serialize writes the peer in the wire shape spec.md §6 defines for a
// HANDSHAKE/PEER_EXCHANGE peer entry: ip16 || varint(flags) ||
// key(peer_id) || varint(port) || key(network_id) || varint(last_seen).
func (p NetworkPeer) Serialize(w *codec.Writer) {
	ip := p.Address.To16()
	if ip == nil {
		ip = make(net.IP, 16)
	}
	w.Key(ip)
	w.Varint(p.Flags)
	w.Key(p.PeerID[:])
	w.Varint(p.Port)
	w.Key(p.NetworkID[:])
	w.Varint(p.LastSeen)
}

// Deserialize reads one peer entry in the wire shape Serialize writes.
func Deserialize(r *codec.Reader) (NetworkPeer, error) {
	ip, err := r.Key(16)
	if err != nil {
		return NetworkPeer{}, err
	}
	flags, err := r.Varint()
	if err != nil {
		return NetworkPeer{}, err
	}
	pid, err := r.Key(primitives.Size)
	if err != nil {
		return NetworkPeer{}, err
	}
	port, err := r.Varint()
	if err != nil {
		return NetworkPeer{}, err
	}
	nid, err := r.Key(primitives.Size)
	if err != nil {
		return NetworkPeer{}, err
	}
	lastSeen, err := r.Varint()
	if err != nil {
		return NetworkPeer{}, err
	}

	var out NetworkPeer
	out.Address = net.IP(ip)
	out.Flags = flags
	copy(out.PeerID[:], pid)
	out.Port = port
	copy(out.NetworkID[:], nid)
	out.LastSeen = lastSeen
	return out, nil
}
