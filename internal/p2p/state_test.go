package p2p

import (
	"testing"

	"github.com/ivantse/turtlecoin-v2/internal/p2p/peerdb"
)

func TestConnectionStateMachineHappyPath(t *testing.T) {
	self := key(1)
	network := key(2)
	c := &PeerConnection{}

	hs := &Handshake{Ver: ProtocolVersion, PeerID: key(9), PeerPort: 12897, NetworkID: network}
	if err := c.Advance(self, hs, false, network); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if c.Snapshot().State != StateHandshaked {
		t.Fatalf("want StateHandshaked, got %v", c.Snapshot().State)
	}

	ka := &Keepalive{Ver: ProtocolVersion, PeerID: key(9)}
	if err := c.Advance(self, ka, false, network); err != nil {
		t.Fatalf("keepalive: %v", err)
	}
	if c.Snapshot().State != StateEstablished {
		t.Fatalf("want StateEstablished, got %v", c.Snapshot().State)
	}
}

func TestConnectionStateMachineViolations(t *testing.T) {
	self := key(1)
	network := key(2)

	t.Run("non-handshake before handshake", func(t *testing.T) {
		c := &PeerConnection{}
		ka := &Keepalive{Ver: ProtocolVersion, PeerID: key(9)}
		if err := c.Advance(self, ka, false, network); err != ErrProtocolViolation {
			t.Fatalf("got %v, want ErrProtocolViolation", err)
		}
	})

	t.Run("double handshake", func(t *testing.T) {
		c := &PeerConnection{}
		hs := &Handshake{Ver: ProtocolVersion, PeerID: key(9), NetworkID: network}
		if err := c.Advance(self, hs, false, network); err != nil {
			t.Fatalf("first handshake: %v", err)
		}
		if err := c.Advance(self, hs, false, network); err != ErrProtocolViolation {
			t.Fatalf("got %v, want ErrProtocolViolation", err)
		}
	})

	t.Run("version below minimum", func(t *testing.T) {
		c := &PeerConnection{}
		hs := &Handshake{Ver: 0, PeerID: key(9), NetworkID: network}
		if err := c.Advance(self, hs, false, network); err != ErrProtocolViolation {
			t.Fatalf("got %v, want ErrProtocolViolation", err)
		}
	})

	t.Run("self peer id", func(t *testing.T) {
		c := &PeerConnection{}
		hs := &Handshake{Ver: ProtocolVersion, PeerID: self, NetworkID: network}
		if err := c.Advance(self, hs, false, network); err != ErrProtocolViolation {
			t.Fatalf("got %v, want ErrProtocolViolation", err)
		}
	})

	t.Run("oversized peer vector", func(t *testing.T) {
		c := &PeerConnection{}
		peers := make([]peerdb.NetworkPeer, MaxPeersExchanged+1)
		hs := &Handshake{Ver: ProtocolVersion, PeerID: key(9), NetworkID: network, Peers: peers}
		if err := c.Advance(self, hs, false, network); err != ErrProtocolViolation {
			t.Fatalf("got %v, want ErrProtocolViolation", err)
		}
	})

	t.Run("data network id mismatch outside seed mode", func(t *testing.T) {
		c := &PeerConnection{}
		hs := &Handshake{Ver: ProtocolVersion, PeerID: key(9), NetworkID: network}
		if err := c.Advance(self, hs, false, network); err != nil {
			t.Fatalf("handshake: %v", err)
		}
		d := &Data{Ver: ProtocolVersion, NetworkID: key(77), Blob: []byte("x")}
		if err := c.Advance(self, d, false, network); err != ErrProtocolViolation {
			t.Fatalf("got %v, want ErrProtocolViolation", err)
		}
	})

	t.Run("data network id mismatch tolerated in seed mode", func(t *testing.T) {
		c := &PeerConnection{}
		hs := &Handshake{Ver: ProtocolVersion, PeerID: key(9), NetworkID: network}
		if err := c.Advance(self, hs, true, network); err != nil {
			t.Fatalf("handshake: %v", err)
		}
		d := &Data{Ver: ProtocolVersion, NetworkID: key(77), Blob: []byte("x")}
		if err := c.Advance(self, d, true, network); err != nil {
			t.Fatalf("seed mode should tolerate any network id: %v", err)
		}
	})
}
