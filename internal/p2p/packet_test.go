package p2p

import (
	"bytes"
	"testing"

	"github.com/ivantse/turtlecoin-v2/internal/codec"
	"github.com/ivantse/turtlecoin-v2/internal/p2p/peerdb"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
)

func key(b byte) primitives.Key {
	var k primitives.Key
	k[0] = b
	return k
}

func TestPacketRoundTrip(t *testing.T) {
	peers := []peerdb.NetworkPeer{
		{PeerID: key(1), Port: 12897, NetworkID: key(2), LastSeen: 100},
		{PeerID: key(3), Port: 12898, NetworkID: key(2), LastSeen: 200},
	}

	cases := []Packet{
		&Handshake{Ver: 1, PeerID: key(9), PeerPort: 12897, NetworkID: key(2), Peers: peers},
		&PeerExchange{Ver: 1, PeerID: key(9), PeerPort: 12897, NetworkID: key(2), Peers: peers},
		&Keepalive{Ver: 1, PeerID: key(9)},
		&Data{Ver: 1, NetworkID: key(2), Blob: []byte("application payload")},
	}

	for _, want := range cases {
		got, err := DeserializePacket(want.Serialize())
		if err != nil {
			t.Fatalf("%T: %v", want, err)
		}
		if got.Type() != want.Type() {
			t.Fatalf("%T: type mismatch", want)
		}

		switch w := want.(type) {
		case *Handshake:
			g := got.(*Handshake)
			if g.PeerID != w.PeerID || g.PeerPort != w.PeerPort || g.NetworkID != w.NetworkID || len(g.Peers) != len(w.Peers) {
				t.Fatalf("Handshake round-trip mismatch: %+v vs %+v", g, w)
			}
		case *PeerExchange:
			g := got.(*PeerExchange)
			if g.PeerID != w.PeerID || len(g.Peers) != len(w.Peers) {
				t.Fatalf("PeerExchange round-trip mismatch")
			}
		case *Keepalive:
			g := got.(*Keepalive)
			if g.PeerID != w.PeerID {
				t.Fatalf("Keepalive round-trip mismatch")
			}
		case *Data:
			g := got.(*Data)
			if g.NetworkID != w.NetworkID || !bytes.Equal(g.Blob, w.Blob) {
				t.Fatalf("Data round-trip mismatch")
			}
		}
	}
}

func TestDeserializePacketUnknownType(t *testing.T) {
	w := codec.NewWriter(8)
	w.Varint(9999)
	if _, err := DeserializePacket(w.Finish()); err != ErrUnknownPacketType {
		t.Fatalf("got %v, want ErrUnknownPacketType", err)
	}
}
