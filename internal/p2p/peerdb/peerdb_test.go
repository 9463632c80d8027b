package peerdb

import (
	"net"
	"testing"

	"github.com/ivantse/turtlecoin-v2/internal/primitives"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func testPeer(id byte, lastSeen uint64) NetworkPeer {
	return NetworkPeer{
		Address:   net.ParseIP("203.0.113.1"),
		PeerID:    primitives.Key{id},
		Port:      12897,
		NetworkID: primitives.Key{0xaa},
		LastSeen:  lastSeen,
	}
}

func TestLocalPeerIDStable(t *testing.T) {
	d := openTestDB(t)
	first, err := d.LocalPeerID()
	if err != nil {
		t.Fatalf("LocalPeerID: %v", err)
	}
	second, err := d.LocalPeerID()
	if err != nil {
		t.Fatalf("LocalPeerID (second call): %v", err)
	}
	if first != second {
		t.Fatalf("LocalPeerID changed across calls: %x vs %x", first, second)
	}
}

func TestAddRejectsSelf(t *testing.T) {
	d := openTestDB(t)
	self := primitives.Key{0x01}
	peer := testPeer(0x01, 1000)
	if err := d.Add(peer, self, 1000); err != ErrSelfPeer {
		t.Fatalf("Add(self) = %v, want ErrSelfPeer", err)
	}
}

func TestAddRejectsStale(t *testing.T) {
	d := openTestDB(t)
	self := primitives.Key{0x99}
	peer := testPeer(0x01, 1000)
	now := uint64(1000 + PeerPruneTime + 1)
	if err := d.Add(peer, self, now); err != ErrStalePeer {
		t.Fatalf("Add(stale) = %v, want ErrStalePeer", err)
	}
}

func TestAddGetTouch(t *testing.T) {
	d := openTestDB(t)
	self := primitives.Key{0x99}
	peer := testPeer(0x01, 1000)
	if err := d.Add(peer, self, 1000); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := d.Get(peer.PeerID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LastSeen != 1000 {
		t.Fatalf("Get().LastSeen = %d, want 1000", got.LastSeen)
	}

	if err := d.Touch(peer.PeerID, 5000); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	got, err = d.Get(peer.PeerID)
	if err != nil {
		t.Fatalf("Get after touch: %v", err)
	}
	if got.LastSeen != 5000 {
		t.Fatalf("Get().LastSeen after touch = %d, want 5000", got.LastSeen)
	}
}

func TestPrune(t *testing.T) {
	d := openTestDB(t)
	self := primitives.Key{0x99}
	fresh := testPeer(0x01, 1000)
	stale := testPeer(0x02, 1000)
	if err := d.Add(fresh, self, 1000); err != nil {
		t.Fatalf("Add fresh: %v", err)
	}
	if err := d.Add(stale, self, 1000); err != nil {
		t.Fatalf("Add stale-to-be: %v", err)
	}

	removed, err := d.Prune(1000 + PeerPruneTime + 1)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("Prune removed = %d, want 2 (both now stale)", removed)
	}

	if _, err := d.Get(fresh.PeerID); err != ErrPeerNotFound {
		t.Fatalf("Get(fresh) after prune = %v, want ErrPeerNotFound", err)
	}
}

func TestPeersFilterByNetworkAndCount(t *testing.T) {
	d := openTestDB(t)
	self := primitives.Key{0x99}
	networkA := primitives.Key{0xaa}
	networkB := primitives.Key{0xbb}

	for i := byte(1); i <= 5; i++ {
		p := testPeer(i, 1000)
		p.NetworkID = networkA
		if err := d.Add(p, self, 1000); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	other := testPeer(0x10, 1000)
	other.NetworkID = networkB
	if err := d.Add(other, self, 1000); err != nil {
		t.Fatalf("Add other-network peer: %v", err)
	}

	got, err := d.Peers(3, &networkA, 1000)
	if err != nil {
		t.Fatalf("Peers: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Peers(3, networkA) returned %d peers, want 3", len(got))
	}
	for _, p := range got {
		if p.NetworkID != networkA {
			t.Fatalf("Peers returned a peer from the wrong network: %x", p.NetworkID)
		}
	}

	all, err := d.Peers(100, nil, 1000)
	if err != nil {
		t.Fatalf("Peers(nil): %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("Peers(nil) returned %d, want 6 (seed-mode, all networks)", len(all))
	}
}
