package peerdb

import (
	"crypto/rand"
	mrand "math/rand"

	"github.com/ivantse/turtlecoin-v2/internal/codec"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
	"github.com/ivantse/turtlecoin-v2/internal/storage"
	"go.uber.org/zap"
)

const (
	dbPeerlist = "peerlist"
	dbLocal    = "local"

	// PeerPruneTime is spec.md §6's PEER_PRUNE_TIME: entries whose
	// last_seen is older than this are stale.
	PeerPruneTime = 86400 // seconds

	// MaxPeersExchanged caps a single HANDSHAKE/PEER_EXCHANGE peer
	// vector (spec.md §6).
	MaxPeersExchanged = 250
)

var localPeerIDKey = []byte("peer_id_identifier")

// DB is the persisted peer database: one LMDB environment holding the
// `peerlist` and `local` sub-databases spec.md §6 names.
type DB struct {
	log      *zap.Logger
	env      *storage.Environment
	peerlist *storage.Database
	local    *storage.Database
}

// Open opens (or attaches to) the peer store at path.
func Open(path string, log *zap.Logger) (*DB, error) {
	env, err := storage.OpenEnvironment(path, log)
	if err != nil {
		return nil, err
	}
	peerlist, err := env.OpenDatabase(dbPeerlist, false)
	if err != nil {
		return nil, err
	}
	local, err := env.OpenDatabase(dbLocal, false)
	if err != nil {
		return nil, err
	}
	return &DB{log: log, env: env, peerlist: peerlist, local: local}, nil
}

// Close releases this handle's reference on the underlying environment.
func (d *DB) Close() error { return d.env.Close() }

// LocalPeerID returns this node's persisted peer_id, generating and
// storing a fresh random one on first run (spec.md §6's "local (holds
// a single peer_id_identifier -> peer_id entry generated on first
// run)").
func (d *DB) LocalPeerID() (primitives.Key, error) {
	raw, err := d.local.Get(localPeerIDKey)
	if err == nil {
		var out primitives.Key
		copy(out[:], raw)
		return out, nil
	}
	if err != storage.ErrNotFound {
		return primitives.Key{}, err
	}

	var out primitives.Key
	if _, err := rand.Read(out[:]); err != nil {
		return primitives.Key{}, err
	}
	if err := d.local.Put(localPeerIDKey, out[:]); err != nil {
		return primitives.Key{}, err
	}
	return out, nil
}

// Add inserts or replaces peer, rejecting self and already-stale
// entries (spec.md §4.6 "add rejecting self and peers whose
// last_seen < now - PEER_PRUNE_TIME").
func (d *DB) Add(peer NetworkPeer, selfID primitives.Key, now uint64) error {
	if peer.PeerID == selfID {
		return ErrSelfPeer
	}
	if isStale(peer.LastSeen, now) {
		return ErrStalePeer
	}
	return d.peerlist.Put(peer.PeerID[:], encode(peer))
}

// Touch updates peerID's last_seen to now (spec.md §4.6).
func (d *DB) Touch(peerID primitives.Key, now uint64) error {
	peer, err := d.Get(peerID)
	if err != nil {
		return err
	}
	peer.LastSeen = now
	return d.peerlist.Put(peerID[:], encode(peer))
}

// Get fetches one peer by id.
func (d *DB) Get(peerID primitives.Key) (NetworkPeer, error) {
	raw, err := d.peerlist.Get(peerID[:])
	if err == storage.ErrNotFound {
		return NetworkPeer{}, ErrPeerNotFound
	}
	if err != nil {
		return NetworkPeer{}, err
	}
	return Deserialize(codec.NewReader(raw))
}

// Prune removes every entry whose last_seen is older than
// PeerPruneTime relative to now, returning the count removed
// (spec.md §4.6 "prune() removes stale entries").
func (d *DB) Prune(now uint64) (int, error) {
	all, err := d.all()
	if err != nil {
		return 0, err
	}
	var removed int
	for _, p := range all {
		if isStale(p.LastSeen, now) {
			if err := d.peerlist.Del(p.PeerID[:]); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// Peers returns a deterministic-random shuffle of every stored peer,
// optionally filtered by networkID, truncated to count (spec.md §4.6:
// "a deterministic-random shuffle (wall-clock seeded) ... optionally
// filtered by network id, truncated to count"). networkID == nil
// matches every network (seed mode).
func (d *DB) Peers(count int, networkID *primitives.Key, now uint64) ([]NetworkPeer, error) {
	all, err := d.all()
	if err != nil {
		return nil, err
	}

	filtered := make([]NetworkPeer, 0, len(all))
	for _, p := range all {
		if networkID != nil && p.NetworkID != *networkID {
			continue
		}
		filtered = append(filtered, p)
	}

	mrand.New(mrand.NewSource(int64(now))).Shuffle(len(filtered), func(i, j int) {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	})

	if count >= 0 && len(filtered) > count {
		filtered = filtered[:count]
	}
	return filtered, nil
}

func (d *DB) all() ([]NetworkPeer, error) {
	var out []NetworkPeer
	err := d.peerlist.View(func(txn *storage.Txn) error {
		cur, err := txn.Cursor(d.peerlist)
		if err != nil {
			return err
		}
		defer cur.Close()

		_, v, err := cur.Seek(storage.OpFirst, nil)
		for err == nil {
			p, derr := Deserialize(codec.NewReader(v))
			if derr != nil {
				return derr
			}
			out = append(out, p)
			_, v, err = cur.Seek(storage.OpNext, nil)
		}
		return nil
	})
	if err == storage.ErrNotFound {
		return out, nil
	}
	return out, err
}

func isStale(lastSeen, now uint64) bool {
	if now <= lastSeen {
		return false
	}
	return now-lastSeen > PeerPruneTime
}

func encode(p NetworkPeer) []byte {
	w := codec.NewWriter(64)
	p.Serialize(w)
	return w.Finish()
}
