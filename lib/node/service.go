package node

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/sdcs/lib/envelope"
	"github.com/ValentinKolb/sdcs/lib/router"
	"github.com/ValentinKolb/sdcs/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("node")

// ErrNoPeers is returned when a key is owned by another node but no peer provider is configured
var ErrNoPeers = errors.New("no peer provider configured")

// --------------------------------------------------------------------------
// Interface Definitions for dependency injection
// --------------------------------------------------------------------------

// IPeerProvider hands out a store.IStore that talks to the given node.
// Implementations may pool connections, the returned store must be safe
// for concurrent use.
type IPeerProvider interface {
	Peer(nodeID uint64) (store.IStore, error)
}

// --------------------------------------------------------------------------
// Node Service
// --------------------------------------------------------------------------

// Service is the single entry point for Set, Get and Remove on a node.
// A request for a key owned by this node is served from the local store,
// any other request is forwarded unchanged to the owning node and its
// result (or error) is returned verbatim. Nothing is retried.
type Service struct {
	topology router.Topology
	local    store.IStore
	peers    IPeerProvider
	metrics  *serviceMetrics
}

// NewNodeService creates the node service for the given topology.
// local must hold this node's partition, peers resolves the other nodes
// (it may be nil for a single node cluster).
func NewNodeService(topology router.Topology, local store.IStore, peers IPeerProvider) *Service {
	return &Service{
		topology: topology,
		local:    local,
		peers:    peers,
		metrics:  newServiceMetrics(local),
	}
}

// Topology returns the topology the service routes with
func (s *Service) Topology() router.Topology {
	return s.topology
}

// WritePrometheus writes the metrics of this service in Prometheus text format
func (s *Service) WritePrometheus(w io.Writer) {
	s.metrics.set.WritePrometheus(w)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Service) Set(key string, value envelope.Envelope) error {
	return s.dispatch(opSet, key, func(target store.IStore) error {
		return target.Set(key, value)
	})
}

func (s *Service) Get(key string) (value envelope.Envelope, loaded bool, err error) {
	err = s.dispatch(opGet, key, func(target store.IStore) (err error) {
		value, loaded, err = target.Get(key)
		return err
	})
	return value, loaded, err
}

func (s *Service) Remove(key string) (existed bool, err error) {
	err = s.dispatch(opRemove, key, func(target store.IStore) (err error) {
		existed, err = target.Remove(key)
		return err
	})
	return existed, err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dispatch resolves the owner of key and runs call against the local store
// or against the owner's peer client
func (s *Service) dispatch(op string, key string, call func(target store.IStore) error) error {
	owner := s.topology.Route(key)

	// Case local: the key belongs to this partition
	if owner == s.topology.SelfID() {
		s.metrics.request(op, routeLocal)
		Logger.Debugf("%s %q served locally by node %d", op, key, owner)
		return call(s.local)
	}

	// Case remote: forward to the owning node
	s.metrics.request(op, routeRemote)
	Logger.Debugf("%s %q forwarded from node %d to node %d", op, key, s.topology.SelfID(), owner)

	if s.peers == nil {
		s.metrics.forwardError(op)
		return fmt.Errorf("%w: key %q is owned by node %d", ErrNoPeers, key, owner)
	}

	peer, err := s.peers.Peer(owner)
	if err != nil {
		s.metrics.forwardError(op)
		Logger.Warningf("%s %q: no connection to node %d: %v", op, key, owner, err)
		return err
	}

	start := time.Now()
	err = call(peer)
	s.metrics.forwardDuration(op, start)
	if err != nil {
		s.metrics.forwardError(op)
		Logger.Warningf("%s %q: forwarding to node %d failed: %v", op, key, owner, err)
	}
	return err
}
