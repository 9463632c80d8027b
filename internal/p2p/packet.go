// Package p2p implements the peer-to-peer overlay: ROUTER/DEALER
// sockets authenticated with CurveZMQ, the handshake/keepalive/
// peer-exchange packet types, the per-peer connection state machine,
// and the connection-manager/keepalive/peer-exchange loops spec.md
// §4.6 defines. It is grounded on the teacher's network package (a
// Node owning a connection map, a Handle(type, func) dispatch table,
// and a Broadcast helper over a length-prefixed JSON wire format),
// generalized from raw TCP + JSON to ROUTER/DEALER + the binary
// varint-tagged packet codec spec.md §6 requires (see SPEC_FULL.md's
// DOMAIN STACK section for why the transport substitution was made).
package p2p

import (
	"errors"

	"github.com/ivantse/turtlecoin-v2/internal/codec"
	"github.com/ivantse/turtlecoin-v2/internal/p2p/peerdb"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

// PacketType tags the first varint of a packet payload (spec.md §4.6).
type PacketType uint64

const (
	PacketHandshake    PacketType = 1000
	PacketKeepalive    PacketType = 1100
	PacketPeerExchange PacketType = 1200
	PacketData         PacketType = 2000
)

// ErrUnknownPacketType is returned when the leading varint does not
// match one of the four packet types (spec.md §7 "Codec": "tag
// unknown").
var ErrUnknownPacketType = errors.New("p2p: unknown packet type")

// Packet is the sum type over the four wire packets spec.md §4.6
// names.
type Packet interface {
	Type() PacketType
	Version() uint64
	Serialize() []byte
}

// Handshake carries a node's identity and a snapshot of peers it
// knows about (spec.md §3, §6). PEER_EXCHANGE shares this exact shape.
type Handshake struct {
	Ver       uint64
	PeerID    primitives.Key
	PeerPort  uint64
	NetworkID primitives.Key
	Peers     []peerdb.NetworkPeer
}

func (h *Handshake) Version() uint64 { return h.Ver }
func (h *Handshake) Type() PacketType { return PacketHandshake }

func (h *Handshake) Serialize() []byte {
	return serializeHandshakeLike(PacketHandshake, h.Ver, h.PeerID, h.PeerPort, h.NetworkID, h.Peers)
}

// PeerExchange has the same wire shape as Handshake (spec.md §6: "Wire:
// PEER_EXCHANGE (1200) = same shape as HANDSHAKE").
type PeerExchange struct {
	Ver       uint64
	PeerID    primitives.Key
	PeerPort  uint64
	NetworkID primitives.Key
	Peers     []peerdb.NetworkPeer
}

func (p *PeerExchange) Version() uint64  { return p.Ver }
func (p *PeerExchange) Type() PacketType { return PacketPeerExchange }

func (p *PeerExchange) Serialize() []byte {
	return serializeHandshakeLike(PacketPeerExchange, p.Ver, p.PeerID, p.PeerPort, p.NetworkID, p.Peers)
}

func serializeHandshakeLike(t PacketType, version uint64, peerID primitives.Key, peerPort uint64, networkID primitives.Key, peers []peerdb.NetworkPeer) []byte {
	w := codec.NewWriter(96 + len(peers)*64)
	w.Varint(uint64(t))
	w.Varint(version)
	w.Key(peerID[:])
	w.Varint(peerPort)
	w.Key(networkID[:])
	w.Varint(uint64(len(peers)))
	for _, p := range peers {
		p.Serialize(w)
	}
	return w.Finish()
}

func deserializeHandshakeLike(r *codec.Reader) (version uint64, peerID primitives.Key, peerPort uint64, networkID primitives.Key, peers []peerdb.NetworkPeer, err error) {
	if version, err = r.Varint(); err != nil {
		return
	}
	var pid []byte
	if pid, err = r.Key(primitives.Size); err != nil {
		return
	}
	copy(peerID[:], pid)
	if peerPort, err = r.Varint(); err != nil {
		return
	}
	var nid []byte
	if nid, err = r.Key(primitives.Size); err != nil {
		return
	}
	copy(networkID[:], nid)

	n, verr := r.Varint()
	if verr != nil {
		err = verr
		return
	}
	peers = make([]peerdb.NetworkPeer, 0, n)
	for i := uint64(0); i < n; i++ {
		p, derr := peerdb.Deserialize(r)
		if derr != nil {
			err = derr
			return
		}
		peers = append(peers, p)
	}
	return
}

// Keepalive pokes a peer to keep its connection alive (spec.md §6:
// "Wire: KEEPALIVE (1100) = key(peer_id)").
type Keepalive struct {
	Ver    uint64
	PeerID primitives.Key
}

func (k *Keepalive) Version() uint64  { return k.Ver }
func (k *Keepalive) Type() PacketType { return PacketKeepalive }

func (k *Keepalive) Serialize() []byte {
	w := codec.NewWriter(48)
	w.Varint(uint64(PacketKeepalive))
	w.Varint(k.Ver)
	w.Key(k.PeerID[:])
	return w.Finish()
}

// Data carries an opaque application payload scoped to a network id
// (spec.md §6: "Wire: DATA (2000) = key(network_id) ||
// varint(|blob|) || blob").
type Data struct {
	Ver       uint64
	NetworkID primitives.Key
	Blob      []byte
}

func (d *Data) Version() uint64  { return d.Ver }
func (d *Data) Type() PacketType { return PacketData }

func (d *Data) Serialize() []byte {
	w := codec.NewWriter(48 + len(d.Blob))
	w.Varint(uint64(PacketData))
	w.Varint(d.Ver)
	w.Key(d.NetworkID[:])
	w.Bytes(d.Blob)
	return w.Finish()
}

// DeserializePacket reads (and consumes) the leading type varint, then
// dispatches on it to the matching packet decoder.
func DeserializePacket(payload []byte) (Packet, error) {
	r := codec.NewReader(payload)
	tag, err := r.Varint()
	if err != nil {
		return nil, err
	}

	switch PacketType(tag) {
	case PacketHandshake:
		ver, peerID, peerPort, networkID, peers, err := deserializeHandshakeLike(r)
		if err != nil {
			return nil, err
		}
		return &Handshake{Ver: ver, PeerID: peerID, PeerPort: peerPort, NetworkID: networkID, Peers: peers}, nil
	case PacketPeerExchange:
		ver, peerID, peerPort, networkID, peers, err := deserializeHandshakeLike(r)
		if err != nil {
			return nil, err
		}
		return &PeerExchange{Ver: ver, PeerID: peerID, PeerPort: peerPort, NetworkID: networkID, Peers: peers}, nil
	case PacketKeepalive:
		ver, err := r.Varint()
		if err != nil {
			return nil, err
		}
		pid, err := r.Key(primitives.Size)
		if err != nil {
			return nil, err
		}
		var k Keepalive
		k.Ver = ver
		copy(k.PeerID[:], pid)
		return &k, nil
	case PacketData:
		ver, err := r.Varint()
		if err != nil {
			return nil, err
		}
		nid, err := r.Key(primitives.Size)
		if err != nil {
			return nil, err
		}
		blob, err := r.Bytes()
		if err != nil {
			return nil, err
		}
		var d Data
		d.Ver = ver
		copy(d.NetworkID[:], nid)
		d.Blob = blob
		return &d, nil
	default:
		return nil, ErrUnknownPacketType
	}
}
