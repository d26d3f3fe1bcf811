package client

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ValentinKolb/sdcs/lib/envelope"
	"github.com/ValentinKolb/sdcs/lib/store"
	"github.com/ValentinKolb/sdcs/rpc/common"
	"github.com/ValentinKolb/sdcs/rpc/serializer"
	"github.com/ValentinKolb/sdcs/rpc/transport"
	"github.com/ValentinKolb/sdcs/rpc/transport/base"
	"github.com/puzpuzpuz/xsync/v3"
)

// ErrPoolClosed is returned by Peer after Close
var ErrPoolClosed = errors.New("peer pool is closed")

// TransportFactory creates an unconnected client transport
type TransportFactory func() transport.IRPCClientTransport

// EndpointFunc returns the RPC endpoint of a node
type EndpointFunc func(nodeID uint64) string

// PeerPool hands out one RPC client per peer node. Clients are created on the
// first request for a node and reused afterwards. A client whose request
// failed in the transport is dropped, so the next request dials again and a
// failed connection attempt is never remembered.
//
// PeerPool implements node.IPeerProvider and is safe for concurrent use.
type PeerPool struct {
	config       common.ServerConfig
	endpoint     EndpointFunc
	newTransport TransportFactory
	serializer   serializer.IRPCSerializer
	peers        *xsync.MapOf[uint64, *pooledPeer]
	closed       atomic.Bool
}

// NewPeerPool creates an empty pool. endpoint resolves node ids to addresses,
// config.PeerEndpoint implements the default convention.
func NewPeerPool(
	config common.ServerConfig,
	endpoint EndpointFunc,
	newTransport TransportFactory,
	serializer serializer.IRPCSerializer,
) *PeerPool {
	return &PeerPool{
		config:       config,
		endpoint:     endpoint,
		newTransport: newTransport,
		serializer:   serializer,
		peers:        xsync.NewMapOf[uint64, *pooledPeer](),
	}
}

// Peer returns the client for the given node, connecting it if needed
func (p *PeerPool) Peer(nodeID uint64) (store.IStore, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	if nodeID == p.config.NodeID {
		return nil, fmt.Errorf("node %d is the local node", nodeID)
	}
	if peer, ok := p.peers.Load(nodeID); ok {
		return peer, nil
	}

	// Dial without holding any lock, a concurrent dial for the same node loses below
	endpoint := p.endpoint(nodeID)
	t := p.newTransport()
	rpc, err := newRPCStore(nodeID, true, p.config.PeerClientConfig(endpoint), t, p.serializer)
	if err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("failed to connect to node %d at %s: %w", nodeID, endpoint, err)
	}
	Logger.Infof("Connected to node %d at %s", nodeID, endpoint)

	peer := &pooledPeer{pool: p, nodeID: nodeID, rpc: rpc}
	actual, loaded := p.peers.LoadOrStore(nodeID, peer)
	if loaded {
		_ = rpc.Close()
	}

	// Close may have run between the check above and LoadOrStore
	if p.closed.Load() {
		p.evict(actual)
		return nil, ErrPoolClosed
	}
	return actual, nil
}

// Size returns the number of connected peers
func (p *PeerPool) Size() int {
	return p.peers.Size()
}

// Close closes all peer connections. Peer fails afterwards.
func (p *PeerPool) Close() error {
	p.closed.Store(true)
	p.peers.Range(func(_ uint64, peer *pooledPeer) bool {
		p.evict(peer)
		return true
	})
	return nil
}

// evict removes peer from the pool (if it is still the pooled one) and closes it
func (p *PeerPool) evict(peer *pooledPeer) {
	var removed bool
	p.peers.Compute(peer.nodeID, func(old *pooledPeer, loaded bool) (*pooledPeer, bool) {
		removed = loaded && old == peer
		if !removed {
			return old, !loaded
		}
		return nil, true
	})
	if removed {
		_ = peer.rpc.Close()
		Logger.Debugf("Dropped connection to node %d", peer.nodeID)
	}
}

// --------------------------------------------------------------------------
// Pooled peer
// --------------------------------------------------------------------------

// pooledPeer is the store.IStore handed out by the pool
type pooledPeer struct {
	pool   *PeerPool
	nodeID uint64
	rpc    *rpcStore
}

func (c *pooledPeer) Set(key string, value envelope.Envelope) error {
	err := c.rpc.Set(key, value)
	c.check(err)
	return err
}

func (c *pooledPeer) Get(key string) (envelope.Envelope, bool, error) {
	value, ok, err := c.rpc.Get(key)
	c.check(err)
	return value, ok, err
}

func (c *pooledPeer) Remove(key string) (bool, error) {
	existed, err := c.rpc.Remove(key)
	c.check(err)
	return existed, err
}

// check evicts the peer after a transport failure. Errors reported by the
// remote node and timeouts leave the connection usable.
func (c *pooledPeer) check(err error) {
	if err == nil {
		return
	}
	var remote *store.Error
	if errors.As(err, &remote) || errors.Is(err, base.ErrTimeout) {
		return
	}
	c.pool.evict(c)
}
