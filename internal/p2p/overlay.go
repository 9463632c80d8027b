package p2p

import (
	"sync"
	"time"

	"github.com/ivantse/turtlecoin-v2/internal/p2p/peerdb"
	"github.com/ivantse/turtlecoin-v2/internal/primitives"
	zmq "github.com/pebbe/zmq4"
	"go.uber.org/zap"
)

// HandleFunc processes one decoded packet from peer (spec.md §4.6
// "Poller loop: ... dispatch to the typed handler"), mirroring the
// teacher's Node.Handle(MsgType, HandleFunc) dispatch table.
type HandleFunc func(o *Overlay, peerID primitives.Key, p Packet)

// client is one outbound DEALER connection to a peer.
type client struct {
	mu     sync.Mutex
	socket *zmq.Socket
	conn   *PeerConnection
	addr   string
}

// Overlay is the P2P node: one ROUTER server socket, one DEALER client
// per outbound peer, the peer database, and the periodic loops
// spec.md §4.6 describes. It plays the role of the teacher's NodeT,
// re-pointed at ROUTER/DEALER + CurveZMQ instead of raw TCP.
type Overlay struct {
	log    *zap.Logger
	params Params
	peers  *peerdb.DB
	selfID primitives.Key

	ctx    *zmq.Context
	server *zmq.Socket

	mu          sync.Mutex
	inbound     map[string]*PeerConnection // keyed by ROUTER identity (string(identity))
	outbound    map[string]*client         // keyed by "host:port"
	handleFuncs map[PacketType]HandleFunc

	stopping chan struct{}
	wg       sync.WaitGroup
}

// New builds an Overlay bound to its own ZMQ context. It does not
// start any socket or loop; call Start for that.
func New(params Params, peers *peerdb.DB, log *zap.Logger) (*Overlay, error) {
	selfID, err := peers.LocalPeerID()
	if err != nil {
		return nil, err
	}
	ctx, err := zmq.NewContext()
	if err != nil {
		return nil, err
	}
	return &Overlay{
		log:         log,
		params:      params,
		peers:       peers,
		selfID:      selfID,
		ctx:         ctx,
		inbound:     make(map[string]*PeerConnection),
		outbound:    make(map[string]*client),
		handleFuncs: make(map[PacketType]HandleFunc),
		stopping:    make(chan struct{}),
	}, nil
}

// Handle registers the handler invoked for packets of type t, mirroring
// the teacher's Node.Handle chaining API.
func (o *Overlay) Handle(t PacketType, fn HandleFunc) *Overlay {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handleFuncs[t] = fn
	return o
}

// SelfID returns this node's persisted peer_id.
func (o *Overlay) SelfID() primitives.Key { return o.selfID }

// Start binds the ROUTER server, dials configured seed nodes, and
// launches the server poller plus the three periodic loops spec.md
// §4.6 names (connection manager, keepalive, peer exchange).
func (o *Overlay) Start() error {
	server, err := o.ctx.NewSocket(zmq.ROUTER)
	if err != nil {
		return ErrBindFailure
	}
	if err := server.SetRouterMandatory(1); err != nil {
		return ErrBindFailure
	}
	if o.params.CurveServerSecretKey != "" {
		if err := server.SetCurveServer(1); err != nil {
			return ErrBindFailure
		}
		if err := server.SetCurveSecretkey(o.params.CurveServerSecretKey); err != nil {
			return ErrBindFailure
		}
	}
	if err := server.Bind(o.params.BindAddress); err != nil {
		return ErrBindFailure
	}
	o.server = server

	o.wg.Add(1)
	go o.serverPoller()

	for _, addr := range o.params.SeedNodes {
		if err := o.connect(addr); err != nil {
			o.log.Warn("p2p: seed connect failed", zap.String("addr", addr), zap.Error(err))
		}
	}

	o.wg.Add(3)
	go o.connectionManagerLoop()
	go o.keepaliveLoop()
	go o.peerExchangeLoop()
	return nil
}

// Stop signals every loop and the poller to exit and closes all
// sockets (spec.md §5 "Cancellation").
func (o *Overlay) Stop() {
	close(o.stopping)
	o.wg.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()
	for _, c := range o.outbound {
		c.socket.Close()
	}
	if o.server != nil {
		o.server.Close()
	}
	o.ctx.Term()
}

// connect opens a DEALER socket to addr and registers it under
// outbound (spec.md §4.6 connection-manager step 2). Duplicate dials
// to an already-connected address are rejected.
func (o *Overlay) connect(addr string) error {
	o.mu.Lock()
	if _, ok := o.outbound[addr]; ok {
		o.mu.Unlock()
		return ErrDuplicateConnect
	}
	o.mu.Unlock()

	socket, err := o.ctx.NewSocket(zmq.DEALER)
	if err != nil {
		return ErrConnectFailure
	}
	if o.params.CurveServerPublicKey != "" {
		pub, sec, kerr := zmq.NewCurveKeypair()
		if kerr != nil {
			socket.Close()
			return ErrConnectFailure
		}
		if err := socket.SetCurveServerkey(o.params.CurveServerPublicKey); err != nil {
			socket.Close()
			return ErrConnectFailure
		}
		if err := socket.SetCurvePublickey(pub); err != nil {
			socket.Close()
			return ErrConnectFailure
		}
		if err := socket.SetCurveSecretkey(sec); err != nil {
			socket.Close()
			return ErrConnectFailure
		}
	}
	if err := socket.Connect("tcp://" + addr); err != nil {
		socket.Close()
		return ErrConnectFailure
	}

	c := &client{socket: socket, conn: &PeerConnection{}, addr: addr}
	o.mu.Lock()
	o.outbound[addr] = c
	o.mu.Unlock()

	o.wg.Add(1)
	go o.clientPoller(c)

	hs := o.handshakePacket()
	o.sendClient(c, hs)
	return nil
}

func (o *Overlay) handshakePacket() *Handshake {
	now := uint64(time.Now().Unix())
	var networkID *primitives.Key
	if !o.params.SeedMode {
		networkID = &o.params.NetworkID
	}
	peers, _ := o.peers.Peers(MaxPeersExchanged, networkID, now)
	return &Handshake{
		Ver:       ProtocolVersion,
		PeerID:    o.selfID,
		PeerPort:  uint64(DefaultBindPort),
		NetworkID: o.params.NetworkID,
		Peers:     peers,
	}
}

func (o *Overlay) sendClient(c *client, p Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.socket.SendBytes(p.Serialize(), 0); err != nil {
		o.log.Debug("p2p: send to outbound peer failed", zap.String("addr", c.addr), zap.Error(err))
	}
}

func (o *Overlay) sendServer(identity []byte, p Packet) {
	o.mu.Lock()
	server := o.server
	o.mu.Unlock()
	if server == nil {
		return
	}
	if _, err := server.SendBytes(identity, zmq.SNDMORE); err != nil {
		return
	}
	if _, err := server.SendBytes(p.Serialize(), 0); err != nil {
		o.log.Debug("p2p: send via server failed", zap.Error(err))
	}
}

// Broadcast sends p to every outbound client, mirroring the teacher's
// Node.Broadcast.
func (o *Overlay) Broadcast(p Packet) {
	o.mu.Lock()
	clients := make([]*client, 0, len(o.outbound))
	for _, c := range o.outbound {
		clients = append(clients, c)
	}
	o.mu.Unlock()

	for _, c := range clients {
		go o.sendClient(c, p)
	}
}

func (o *Overlay) serverPoller() {
	defer o.wg.Done()
	for {
		select {
		case <-o.stopping:
			return
		default:
		}

		frames, err := o.server.RecvMessageBytes(zmq.DONTWAIT)
		if err != nil || len(frames) != 2 {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		identity, payload := frames[0], frames[1]
		o.handleServerPayload(identity, payload)
	}
}

func (o *Overlay) handleServerPayload(identity, payload []byte) {
	p, err := DeserializePacket(payload)
	if err != nil {
		o.log.Debug("p2p: dropped undecodable packet", zap.Error(err))
		return
	}

	conn := o.connectionFor(identity)
	if err := conn.Advance(o.selfID, p, o.params.SeedMode, o.params.NetworkID); err != nil {
		o.log.Debug("p2p: protocol violation, dropping packet", zap.String("type", "server"))
		return
	}

	if hs, ok := p.(*Handshake); ok {
		o.onHandshake(identity, hs)
	}
	o.dispatch(conn.Snapshot().PeerID, p)
}

func (o *Overlay) connectionFor(identity []byte) *PeerConnection {
	key := string(identity)
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.inbound[key]
	if !ok {
		c = &PeerConnection{Identity: append([]byte(nil), identity...)}
		o.inbound[key] = c
	}
	return c
}

func (o *Overlay) onHandshake(identity []byte, hs *Handshake) {
	now := uint64(time.Now().Unix())
	o.peers.Add(peerdb.NetworkPeer{
		PeerID:    hs.PeerID,
		Port:      hs.PeerPort,
		NetworkID: hs.NetworkID,
		LastSeen:  now,
	}, o.selfID, now)
	for _, p := range hs.Peers {
		o.peers.Add(p, o.selfID, now)
	}
	o.sendServer(identity, o.handshakePacket())
}

func (o *Overlay) clientPoller(c *client) {
	defer o.wg.Done()
	for {
		select {
		case <-o.stopping:
			return
		default:
		}

		payload, err := c.socket.RecvBytes(zmq.DONTWAIT)
		if err != nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		p, err := DeserializePacket(payload)
		if err != nil {
			continue
		}
		if err := c.conn.Advance(o.selfID, p, o.params.SeedMode, o.params.NetworkID); err != nil {
			continue
		}
		if hs, ok := p.(*Handshake); ok {
			now := uint64(time.Now().Unix())
			o.peers.Add(peerdb.NetworkPeer{PeerID: hs.PeerID, Port: hs.PeerPort, NetworkID: hs.NetworkID, LastSeen: now}, o.selfID, now)
		}
		o.dispatch(c.conn.Snapshot().PeerID, p)
	}
}

func (o *Overlay) dispatch(peerID primitives.Key, p Packet) {
	o.mu.Lock()
	fn, ok := o.handleFuncs[p.Type()]
	o.mu.Unlock()
	if !ok {
		return
	}
	fn(o, peerID, p)
}

// connectionManagerLoop runs every ConnectionManagerInterval and tops up
// outgoing connections toward DefaultConnectionCount from the peer
// database. It does not detect or evict disconnected clients; a client
// stays in the client map and counts as an outgoing connection until Stop.
func (o *Overlay) connectionManagerLoop() {
	defer o.wg.Done()
	ticker := time.NewTicker(ConnectionManagerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.stopping:
			return
		case <-ticker.C:
			o.runConnectionManager()
		}
	}
}

func (o *Overlay) runConnectionManager() {
	o.mu.Lock()
	current := len(o.outbound)
	o.mu.Unlock()

	target := o.params.DefaultConnectionCount()
	if current >= target {
		return
	}
	delta := target - current

	now := uint64(time.Now().Unix())
	var networkID *primitives.Key
	if !o.params.SeedMode {
		networkID = &o.params.NetworkID
	}
	candidates, err := o.peers.Peers(delta, networkID, now)
	if err != nil {
		return
	}
	for _, peer := range candidates {
		if peer.PeerID == o.selfID {
			continue
		}
		addr := peer.Address.String() + ":" + itoa(peer.Port)
		o.connect(addr)
	}
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// keepaliveLoop implements spec.md §4.6's 30s keepalive broadcast to
// outbound clients and poke-back through the server ROUTER.
func (o *Overlay) keepaliveLoop() {
	defer o.wg.Done()
	ticker := time.NewTicker(KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.stopping:
			return
		case <-ticker.C:
			ka := &Keepalive{Ver: ProtocolVersion, PeerID: o.selfID}
			o.Broadcast(ka)

			o.mu.Lock()
			inbound := make([]*PeerConnection, 0, len(o.inbound))
			for _, c := range o.inbound {
				inbound = append(inbound, c)
			}
			o.mu.Unlock()
			for _, c := range inbound {
				snap := c.Snapshot()
				if snap.State == StateEstablished {
					o.sendServer(snap.Identity, ka)
				}
			}
		}
	}
}

// peerExchangeLoop implements spec.md §4.6's 120s PEER_EXCHANGE
// broadcast to outbound clients.
func (o *Overlay) peerExchangeLoop() {
	defer o.wg.Done()
	ticker := time.NewTicker(PeerExchangeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.stopping:
			return
		case <-ticker.C:
			hs := o.handshakePacket()
			o.Broadcast(&PeerExchange{Ver: hs.Ver, PeerID: hs.PeerID, PeerPort: hs.PeerPort, NetworkID: hs.NetworkID, Peers: hs.Peers})
		}
	}
}

// SendData broadcasts an application DATA packet to every outbound
// client, skipped entirely in seed mode (spec.md §4.6 "it never
// forwards application data").
func (o *Overlay) SendData(blob []byte) {
	if o.params.SeedMode {
		return
	}
	o.Broadcast(&Data{Ver: ProtocolVersion, NetworkID: o.params.NetworkID, Blob: blob})
}
