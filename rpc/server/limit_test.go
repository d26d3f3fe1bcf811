package server_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/sdcs/lib/envelope"
	"github.com/ValentinKolb/sdcs/lib/node"
	"github.com/ValentinKolb/sdcs/lib/store"
	"github.com/ValentinKolb/sdcs/rpc/client"
	"github.com/ValentinKolb/sdcs/rpc/common"
	"github.com/ValentinKolb/sdcs/rpc/gateway"
	"github.com/ValentinKolb/sdcs/rpc/serializer"
	"github.com/ValentinKolb/sdcs/rpc/server"
	"github.com/ValentinKolb/sdcs/rpc/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowStore blocks every call and records the peak number of concurrent calls
type slowStore struct {
	delay   time.Duration
	running atomic.Int32
	peak    atomic.Int32
}

func (s *slowStore) enter() func() {
	n := s.running.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(s.delay)
	return func() { s.running.Add(-1) }
}

func (s *slowStore) Set(string, envelope.Envelope) error {
	defer s.enter()()
	return nil
}

func (s *slowStore) Get(string) (envelope.Envelope, bool, error) {
	defer s.enter()()
	return envelope.Int32(1), true, nil
}

func (s *slowStore) Remove(string) (bool, error) {
	defer s.enter()()
	return true, nil
}

// startSingleNode serves target on a single node cluster with the given worker limit
func startSingleNode(t *testing.T, target store.IStore, workers int) common.ClientConfig {
	endpoint := tcpEndpoint(t, 1)
	config := common.ServerConfig{
		NodeID:        1,
		TotalNodes:    1,
		TimeoutSecond: 5,
		Workers:       workers,
		Transport: common.ServerTransportConfig{
			Endpoint:       endpoint,
			WorkersPerConn: 64,
			TCPConf:        common.TCPConf{TCPNoDelay: true, TCPLingerSec: -1},
		},
	}

	srv, err := server.NewRPCServer(config, tcp.NewTCPDefaultServerTransport(), serializer.NewBinarySerializer(), target)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()
	t.Cleanup(func() {
		_ = srv.Close()
		<-done
	})

	clientConfig := common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:  []string{endpoint},
			RetryCount: 1,
			TCPConf:    common.TCPConf{TCPNoDelay: true, TCPLingerSec: -1},
		},
	}
	require.Eventually(t, func() bool {
		conn := tcp.NewTCPClientTransport()
		defer conn.Close()
		return conn.Connect(clientConfig) == nil
	}, 5*time.Second, 20*time.Millisecond)
	return clientConfig
}

func TestWorkerLimitIsSharedWithGateway(t *testing.T) {
	const workers = 3
	slow := &slowStore{delay: 30 * time.Millisecond}
	bounded := node.NewBoundedStore(slow, workers)

	clientConfig := startSingleNode(t, bounded, workers)
	kv, err := client.NewRPCStore(0, clientConfig, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
	require.NoError(t, err)

	gw := httptest.NewServer(gateway.NewHandler(bounded, nil))
	defer gw.Close()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, err := kv.Get("k")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			resp, err := http.Get(gw.URL + "/k")
			if assert.NoError(t, err) {
				assert.Equal(t, http.StatusOK, resp.StatusCode)
				_ = resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, slow.peak.Load(), int32(workers))
}

func TestStandaloneServerBoundsClientRequests(t *testing.T) {
	const workers = 2
	slow := &slowStore{delay: 30 * time.Millisecond}

	clientConfig := startSingleNode(t, slow, workers)
	kv, err := client.NewRPCStore(0, clientConfig, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := kv.Remove("k")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, slow.peak.Load(), int32(workers))
}

func TestForwardedRequestsBypassWorkerLimit(t *testing.T) {
	slow := &slowStore{delay: 50 * time.Millisecond}
	clientConfig := startSingleNode(t, node.NewBoundedStore(slow, 1), 1)

	conn := tcp.NewTCPClientTransport()
	require.NoError(t, conn.Connect(clientConfig))
	defer conn.Close()

	s := serializer.NewBinarySerializer()
	req, err := s.Serialize(*common.NewGetRequest("k").AsForwarded())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := conn.Send(1, req)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Greater(t, slow.peak.Load(), int32(1))
}
