// Package node wires the storage engine, blockchain store, staking
// engine, transaction validator, and P2P overlay into the single
// running process spec.md §2 describes: "the node boots the storage
// engine, restores the peer database, binds the server socket, opens
// outbound clients to seed peers, performs handshakes, then enters a
// steady state where incoming packets are decoded by the codec,
// dispatched by the overlay into per-type handlers, validated
// transactions/blocks are written via the blockchain store, and the
// staking engine is updated from committed stake/recall transactions."
//
// It plays the role the teacher's cmd/union-bc/main.go init()+main()
// pair plays (load-or-create the chain, wire the network, run), but
// generalized into a reusable, dependency-injected type instead of
// package-level globals.
package node

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ivantse/turtlecoin-v2/internal/chain"
	"github.com/ivantse/turtlecoin-v2/internal/config"
	"github.com/ivantse/turtlecoin-v2/internal/p2p"
	"github.com/ivantse/turtlecoin-v2/internal/p2p/peerdb"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
	"github.com/ivantse/turtlecoin-v2/internal/staking"
	"github.com/ivantse/turtlecoin-v2/internal/validator"
	"go.uber.org/zap"
)

// Node owns every long-lived component of one running instance.
type Node struct {
	log     *zap.Logger
	cfg     config.Config
	store   *chain.Store
	engine  *staking.Engine
	peers   *peerdb.DB
	val     *validator.Validator
	overlay *p2p.Overlay
}

// New opens the storage engine and every subsystem above it, restores
// the peer database (optionally wiping it first when cfg.Reset is
// set, spec.md §6's --reset), and registers the packet handlers that
// drive the blockchain store and staking engine from the network
// (spec.md §2's steady-state dispatch). It does not bind any socket;
// call Run for that.
func New(cfg config.Config, log *zap.Logger) (*Node, error) {
	chainPath := filepath.Join(cfg.DBPath, "chain")
	stakingPath := filepath.Join(cfg.DBPath, "staking")
	peerPath := filepath.Join(cfg.DBPath, "peers")

	if cfg.Reset {
		if err := os.RemoveAll(peerPath); err != nil {
			return nil, fmt.Errorf("node: reset peer db: %w", err)
		}
	}

	store, err := chain.Open(chainPath, log)
	if err != nil {
		return nil, fmt.Errorf("node: open blockchain store: %w", err)
	}
	engine, err := staking.Open(stakingPath, cfg.Staking, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("node: open staking engine: %w", err)
	}
	peers, err := peerdb.Open(peerPath, log)
	if err != nil {
		store.Close()
		engine.Close()
		return nil, fmt.Errorf("node: open peer database: %w", err)
	}

	val := validator.New(cfg.Validator, store)

	params := p2p.Params{
		NetworkID:            cfg.NetworkID,
		BindAddress:          fmt.Sprintf("tcp://*:%d", cfg.Port),
		SeedNodes:            cfg.SeedNodes,
		SeedMode:             cfg.SeedMode,
		CurveServerPublicKey: cfg.CurveServerPublicKey,
		CurveServerSecretKey: cfg.CurveServerSecretKey,
	}
	overlay, err := p2p.New(params, peers, log)
	if err != nil {
		store.Close()
		engine.Close()
		peers.Close()
		return nil, fmt.Errorf("node: build overlay: %w", err)
	}

	n := &Node{
		log:     log,
		cfg:     cfg,
		store:   store,
		engine:  engine,
		peers:   peers,
		val:     val,
		overlay: overlay,
	}
	n.registerHandlers()
	return n, nil
}

// registerHandlers wires the DATA packet type to apply-on-validate
// (spec.md §2 "validated transactions/blocks are written via the
// blockchain store, and the staking engine is updated from committed
// stake/recall transactions"). HANDSHAKE/KEEPALIVE/PEER_EXCHANGE are
// fully handled inside the overlay itself (spec.md §4.6); only the
// application-level DATA packet needs a node-level handler, mirroring
// the teacher's Node.Handle(MsgSetTX, ...) / Handle(MsgSetBlock, ...)
// registrations in cmd/union-bc/main.go.
func (n *Node) registerHandlers() {
	n.overlay.Handle(p2p.PacketData, func(o *p2p.Overlay, peerID primitives.Key, raw p2p.Packet) {
		data, ok := raw.(*p2p.Data)
		if !ok {
			return
		}
		n.handleData(peerID, data.Blob)
	})
}

// handleData decodes an inbound DATA blob as either a transaction or a
// block and applies it through the validator and blockchain store,
// dropping anything that fails validation (spec.md §7 "a protocol
// violation is logged at TRACE and the packet is dropped; no
// exception propagates").
func (n *Node) handleData(peerID primitives.Key, blob []byte) {
	if tx, err := chain.Deserialize(blob); err == nil {
		n.applyTransaction(peerID, tx)
		return
	}
	if block, err := chain.DeserializeBlock(blob); err == nil {
		n.applyBlock(peerID, block)
		return
	}
	n.log.Debug("node: dropped undecodable DATA payload", zap.Stringer("peer_id", peerID))
}

func (n *Node) applyTransaction(peerID primitives.Key, tx chain.Transaction) {
	if err := n.val.Check(tx); err != nil {
		n.log.Debug("node: rejected transaction (construction)", zap.Error(err), zap.Stringer("peer_id", peerID))
		return
	}
	if err := n.val.Validate(tx); err != nil {
		n.log.Debug("node: rejected transaction (validation)", zap.Error(err), zap.Stringer("peer_id", peerID))
		return
	}
	n.log.Info("node: accepted transaction", zap.Stringer("hash", tx.Hash()), zap.Stringer("peer_id", peerID))
	n.applyStaking(tx)
}

// applyStaking updates the staking engine from a committed STAKE or
// RECALL_STAKE transaction (spec.md §2, §4.4). Only committed forms
// reach here in steady state: a node relays DATA after its own
// to_committed projection, matching spec.md §3's pruning rationale.
func (n *Node) applyStaking(tx chain.Transaction) {
	user, ok := tx.(*chain.CommittedUser)
	if !ok {
		return
	}
	switch user.Prefix.Header.Type {
	case chain.TypeStake:
		data, ok := user.Data.(chain.StakeData)
		if !ok {
			return
		}
		if err := n.engine.AddStake(user.Prefix.Header.Version, data.CandidatePublicKey, data.StakerPublicViewKey, data.StakerPublicSpendKey, data.StakeAmount); err != nil {
			n.log.Debug("node: stake rejected by staking engine", zap.Error(err))
		}
	case chain.TypeRecallStake:
		data, ok := user.Data.(chain.RecallStakeData)
		if !ok {
			return
		}
		if _, err := n.engine.RecallStakeByID(data.CandidatePublicKey, data.StakerID); err != nil {
			n.log.Debug("node: recall rejected by staking engine", zap.Error(err))
		}
	}
}

func (n *Node) applyBlock(peerID primitives.Key, block *chain.Block) {
	if err := block.Validate(); err != nil {
		n.log.Debug("node: rejected block (structure)", zap.Error(err), zap.Stringer("peer_id", peerID))
		return
	}
	hash, err := block.Hash()
	if err != nil {
		return
	}
	if exists, _ := n.store.BlockExists(hash); exists {
		return
	}

	txs := make([]chain.Transaction, 0, len(block.Transactions))
	for _, h := range block.Transactions {
		tx, _, err := n.store.GetTransaction(h)
		if err != nil {
			n.log.Debug("node: block references unknown transaction, dropping", zap.Stringer("tx_hash", h))
			return
		}
		txs = append(txs, tx)
	}
	if err := n.store.PutBlock(block, txs); err != nil {
		n.log.Warn("node: rejected block (store)", zap.Error(err))
		return
	}
	n.log.Info("node: accepted block", zap.Stringer("hash", hash), zap.Uint64("index", block.BlockIndex))
}

// Run binds the overlay's ROUTER socket, dials seed nodes, and returns
// once the overlay's loops are started; it does not block. A startup
// error (bind or seed connection failure) is returned to the caller.
func (n *Node) Run() error {
	if err := n.overlay.Start(); err != nil {
		return fmt.Errorf("node: start overlay: %w", err)
	}
	n.log.Info("node: started",
		zap.String("peer_id", fmt.Sprintf("%x", n.overlay.SelfID())),
		zap.Uint16("port", n.cfg.Port),
		zap.Bool("seed_mode", n.cfg.SeedMode),
	)
	return nil
}

// Stop releases every subsystem in reverse dependency order,
// guaranteeing every socket and storage handle is released on any
// shutdown path (spec.md §5 "Scoped resource release").
func (n *Node) Stop() {
	n.overlay.Stop()
	n.peers.Close()
	n.engine.Close()
	n.store.Close()
}

// SendData broadcasts an application payload to every connected peer,
// exposed for CLI/test callers the way the teacher's Node.Broadcast
// was exposed to cmd/union-bc/main.go's REPL.
func (n *Node) SendData(blob []byte) {
	n.overlay.SendData(blob)
}
