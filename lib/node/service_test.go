package node

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/ValentinKolb/sdcs/lib/envelope"
	"github.com/ValentinKolb/sdcs/lib/router"
	"github.com/ValentinKolb/sdcs/lib/store"
	"github.com/ValentinKolb/sdcs/lib/store/lstore"
	storetesting "github.com/ValentinKolb/sdcs/lib/store/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// In-process cluster helpers
// --------------------------------------------------------------------------

// mapPeers resolves node ids to in-process stores
type mapPeers map[uint64]store.IStore

func (p mapPeers) Peer(nodeID uint64) (store.IStore, error) {
	s, ok := p[nodeID]
	if !ok {
		return nil, fmt.Errorf("unknown node %d", nodeID)
	}
	return s, nil
}

type testCluster struct {
	nodes  map[uint64]*Service
	locals map[uint64]*lstore.LocalStore
}

// newTestCluster wires n node services as each other's peers
func newTestCluster(t testing.TB, n uint64) *testCluster {
	c := &testCluster{
		nodes:  make(map[uint64]*Service),
		locals: make(map[uint64]*lstore.LocalStore),
	}
	peers := mapPeers{}
	for id := uint64(1); id <= n; id++ {
		topo, err := router.NewTopology(id, n)
		require.NoError(t, err)
		c.locals[id] = lstore.NewLocalStore()
		c.nodes[id] = NewNodeService(topo, c.locals[id], peers)
		peers[id] = c.nodes[id]
	}
	return c
}

// failingStore fails every call with err
type failingStore struct{ err error }

func (f failingStore) Set(string, envelope.Envelope) error { return f.err }
func (f failingStore) Get(string) (envelope.Envelope, bool, error) {
	return envelope.Envelope{}, false, f.err
}
func (f failingStore) Remove(string) (bool, error) { return false, f.err }

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestSuite(t *testing.T) {
	storetesting.RunStoreTests(t, "SingleNode", func() store.IStore {
		return newTestCluster(t, 1).nodes[1]
	})
	storetesting.RunStoreTests(t, "ThreeNodes", func() store.IStore {
		return newTestCluster(t, 3).nodes[1]
	})
	storetesting.RunStoreTests(t, "FiveNodes", func() store.IStore {
		return newTestCluster(t, 5).nodes[4]
	})
}

func TestScenarios(t *testing.T) {
	c := newTestCluster(t, 3)
	n1 := c.nodes[1]

	// "a" is owned by node 2, "n" by node 2, "flag" and "lst" by node 1
	require.NoError(t, n1.Set("a", envelope.String("hello")))
	v, ok, err := n1.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, envelope.String("hello").Equal(v))

	require.NoError(t, n1.Set("n", envelope.Int32(42)))
	v, _, err = n1.Get("n")
	require.NoError(t, err)
	assert.Equal(t, envelope.KindInt32, v.Kind())

	require.NoError(t, n1.Set("flag", envelope.Bool(true)))
	v, _, err = n1.Get("flag")
	require.NoError(t, err)
	assert.True(t, envelope.Bool(true).Equal(v))

	lst, err := envelope.Encode([]any{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, n1.Set("lst", lst))
	v, _, err = n1.Get("lst")
	require.NoError(t, err)
	decoded, err := envelope.Decode(v)
	require.NoError(t, err)
	assert.Len(t, decoded, 3)

	existed, err := n1.Remove("missing")
	require.NoError(t, err)
	assert.False(t, existed)
	_, ok, err = n1.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	// the entries live on their owners only
	_, ok, _ = c.locals[2].Get("a")
	assert.True(t, ok)
	_, ok, _ = c.locals[1].Get("a")
	assert.False(t, ok)
}

func TestTransparentForwarding(t *testing.T) {
	const total = 3
	c := newTestCluster(t, total)

	for i := 0; i < 300; i++ {
		key := fmt.Sprintf("key-%d", i)
		owner := router.Route(key, total)

		// write through a random entry node
		entry := uint64(i%total) + 1
		require.NoError(t, c.nodes[entry].Set(key, envelope.Int32(int32(i))))

		// every node answers exactly like the owner
		want, wantOk, err := c.nodes[owner].Get(key)
		require.NoError(t, err)
		require.True(t, wantOk)
		for id := uint64(1); id <= total; id++ {
			got, gotOk, err := c.nodes[id].Get(key)
			require.NoError(t, err)
			assert.Equal(t, wantOk, gotOk)
			assert.True(t, want.Equal(got), "node %d returned %#v, owner %d returned %#v", id, got, owner, want)
		}
	}

	// a node never stores a key it does not own
	for id, local := range c.locals {
		for i := 0; i < 300; i++ {
			key := fmt.Sprintf("key-%d", i)
			_, ok, _ := local.Get(key)
			assert.Equal(t, router.Route(key, total) == id, ok, "key %s on node %d", key, id)
		}
	}

	// remove through a non-owner reports the owner's existence flag
	for i := 0; i < 300; i++ {
		key := fmt.Sprintf("key-%d", i)
		entry := (router.Route(key, total) % total) + 1
		existed, err := c.nodes[entry].Remove(key)
		require.NoError(t, err)
		assert.True(t, existed)
		existed, err = c.nodes[entry].Remove(key)
		require.NoError(t, err)
		assert.False(t, existed)
	}
}

func TestForwardingFailurePropagates(t *testing.T) {
	boom := errors.New("connection refused")

	topo, err := router.NewTopology(1, 3)
	require.NoError(t, err)
	local := lstore.NewLocalStore()
	svc := NewNodeService(topo, local, mapPeers{2: failingStore{boom}, 3: failingStore{boom}})

	// "a" is owned by node 2
	err = svc.Set("a", envelope.Int32(1))
	assert.ErrorIs(t, err, boom)
	_, _, err = svc.Get("a")
	assert.ErrorIs(t, err, boom)
	_, err = svc.Remove("a")
	assert.ErrorIs(t, err, boom)

	// no local fallback
	assert.Equal(t, 0, local.Size())

	// local keys are unaffected
	require.NoError(t, svc.Set("flag", envelope.Bool(false)))
	_, ok, err := svc.Get("flag")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPeerLookupFailurePropagates(t *testing.T) {
	topo, err := router.NewTopology(1, 3)
	require.NoError(t, err)

	svc := NewNodeService(topo, lstore.NewLocalStore(), mapPeers{})
	err = svc.Set("a", envelope.Int32(1))
	assert.EqualError(t, err, "unknown node 2")

	svc = NewNodeService(topo, lstore.NewLocalStore(), nil)
	err = svc.Set("a", envelope.Int32(1))
	assert.ErrorIs(t, err, ErrNoPeers)
}

func TestMetrics(t *testing.T) {
	c := newTestCluster(t, 3)
	n1 := c.nodes[1]

	require.NoError(t, n1.Set("a", envelope.Int32(1)))    // remote (node 2)
	require.NoError(t, n1.Set("flag", envelope.Int32(1))) // local
	_, _, _ = n1.Get("flag")

	var buf bytes.Buffer
	n1.WritePrometheus(&buf)
	out := buf.String()

	assert.Contains(t, out, `sdcs_requests_total{op="set",route="remote"} 1`)
	assert.Contains(t, out, `sdcs_requests_total{op="set",route="local"} 1`)
	assert.Contains(t, out, `sdcs_requests_total{op="get",route="local"} 1`)
	assert.Contains(t, out, `sdcs_local_keys 1`)
}
