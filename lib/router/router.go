package router

import (
	"crypto/md5"
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidTopology is returned when a topology violates 1 <= selfID <= totalNodes
var ErrInvalidTopology = errors.New("invalid cluster topology")

// Topology is the immutable view a node has of the cluster: its own id and
// the number of nodes. Node ids start at 1.
type Topology struct {
	selfID     uint64
	totalNodes uint64
}

// NewTopology validates and creates a Topology.
// It must be called once at startup, an error here is a configuration error.
func NewTopology(selfID, totalNodes uint64) (Topology, error) {
	if totalNodes == 0 {
		return Topology{}, fmt.Errorf("%w: total node count must be at least 1", ErrInvalidTopology)
	}
	if selfID < 1 || selfID > totalNodes {
		return Topology{}, fmt.Errorf("%w: node id %d is not in [1, %d]", ErrInvalidTopology, selfID, totalNodes)
	}
	return Topology{selfID: selfID, totalNodes: totalNodes}, nil
}

// SelfID returns the id of the local node
func (t Topology) SelfID() uint64 { return t.selfID }

// TotalNodes returns the number of nodes in the cluster
func (t Topology) TotalNodes() uint64 { return t.totalNodes }

// Route returns the id of the node owning key
func (t Topology) Route(key string) uint64 { return Route(key, t.totalNodes) }

// Owns reports whether the local node owns key
func (t Topology) Owns(key string) bool { return t.Route(key) == t.selfID }

// Route maps a key to its owning node in [1, totalNodes].
// The MD5 digest of the raw key bytes is read as an unsigned big-endian
// integer and reduced modulo totalNodes.
//
// Thread-safety: Route is a pure function and safe for concurrent use.
func Route(key string, totalNodes uint64) uint64 {
	if totalNodes == 0 {
		panic("router: total node count must be at least 1")
	}

	sum := md5.Sum([]byte(key))
	digest := new(big.Int).SetBytes(sum[:])
	mod := new(big.Int).Mod(digest, new(big.Int).SetUint64(totalNodes))

	return mod.Uint64() + 1
}
