package peerdb

import "errors"

// Error kinds per spec.md §7 ("Peer database"): "add-failure (self,
// stale, duplicate write)".
var (
	ErrSelfPeer      = errors.New("peerdb: cannot add self as a peer")
	ErrStalePeer     = errors.New("peerdb: peer last_seen is older than the prune window")
	ErrPeerNotFound  = errors.New("peerdb: peer not found")
)
