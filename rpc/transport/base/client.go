package base

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/sdcs/rpc/common"
	"github.com/ValentinKolb/sdcs/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/rpc")

var (
	// ErrTransportClosed is returned by Send after Close
	ErrTransportClosed = errors.New("transport is closed")
	// ErrTimeout is returned when no response arrived within the configured timeout
	ErrTimeout = errors.New("request timed out")
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint. A timeout of 0 means no timeout.
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult contains the result of a request
type responseResult struct {
	data []byte
	err  error
}

// wire is one established net connection together with the requests waiting on it.
// It is replaced as a whole when the connection breaks.
type wire struct {
	conn    net.Conn
	pending *xsync.MapOf[uint64, chan responseResult]
}

// clientConnection is a single logical connection to an endpoint.
// A broken wire is redialed by the next request.
type clientConnection struct {
	endpoint string
	parent   *clientTransport
	mu       sync.Mutex // Protects current and serializes writes
	current  *wire
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connections   []*clientConnection
	nextConnIndex uint64 // Atomic counter for Round Robin
	nextRequestID uint64 // Atomic counter for unique request IDs
	closed        atomic.Bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}
	if len(t.connections) > 0 {
		return fmt.Errorf("transport is already connected")
	}

	t.config = config
	connectionsPerEP := max(1, config.Transport.ConnectionsPerEndpoint)

	var lastErr error
	for _, endpoint := range config.Transport.Endpoints {
		for i := 0; i < connectionsPerEP; i++ {
			clientConn := &clientConnection{
				endpoint: endpoint,
				parent:   t,
			}

			// Establish the initial connection
			clientConn.mu.Lock()
			_, err := clientConn.dial()
			clientConn.mu.Unlock()
			if err != nil {
				lastErr = err
				Logger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
				continue
			}

			t.connections = append(t.connections, clientConn)
			Logger.Debugf("Connected to %s (connection %d/%d)", endpoint, i+1, connectionsPerEP)
		}
	}

	if len(t.connections) == 0 {
		return fmt.Errorf("failed to connect to any endpoint: %w", lastErr)
	}

	Logger.Debugf("Connected %d out of %d connections to %d endpoints using %s transport",
		len(t.connections), len(config.Transport.Endpoints)*connectionsPerEP, len(config.Transport.Endpoints), t.connector.GetName())

	return nil
}

func (t *clientTransport) Send(nodeID uint64, req []byte) (resp []byte, err error) {
	if len(t.connections) == 0 {
		return nil, fmt.Errorf("transport not connected")
	}

	// We always try at least once, and up to RetryCount times
	maxRetries := max(1, t.config.Transport.RetryCount)

	// Initial backoff duration in milliseconds
	backoffMs := 50

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if t.closed.Load() {
			return nil, ErrTransportClosed
		}

		data, err := t.nextConnection().send(nodeID, atomic.AddUint64(&t.nextRequestID, 1), req)
		if err == nil {
			return data, nil
		}

		lastErr = err
		Logger.Debugf("Request attempt %d/%d failed: %v", i+1, maxRetries, err)

		if i+1 < maxRetries {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			time.Sleep(time.Duration(jitter) * time.Millisecond)
			backoffMs *= 2
		}
	}

	if maxRetries == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("failed to send request after %d attempts: %w", maxRetries, lastErr)
}

func (t *clientTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	for _, c := range t.connections {
		c.mu.Lock()
		if c.current != nil {
			_ = c.current.conn.Close()
			c.current = nil
		}
		c.mu.Unlock()
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// timeout returns the configured request timeout, 0 means none
func (t *clientTransport) timeout() time.Duration {
	return time.Duration(t.config.TimeoutSecond) * time.Second
}

// nextConnection selects the next connection via Round Robin
func (t *clientTransport) nextConnection() *clientConnection {
	if len(t.connections) == 1 {
		return t.connections[0]
	}
	index := atomic.AddUint64(&t.nextConnIndex, 1) % uint64(len(t.connections))
	return t.connections[index]
}

// send writes one request and waits for its response
func (c *clientConnection) send(nodeID, requestID uint64, req []byte) ([]byte, error) {
	timeout := c.parent.timeout()
	respCh := make(chan responseResult, 1)

	c.mu.Lock()
	w := c.current
	if w == nil {
		var err error
		if w, err = c.dial(); err != nil {
			c.mu.Unlock()
			return nil, err
		}
	}

	// Register the request before writing, the response may arrive at once
	w.pending.Store(requestID, respCh)
	defer w.pending.Delete(requestID)

	if timeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	err := writeFrame(w.conn, nodeID, requestID, req)
	if err != nil {
		c.drop(w)
	}
	c.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("failed to write request to %s: %w", c.endpoint, err)
	}

	// Wait for response or timeout
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case result := <-respCh:
		return result.data, result.err
	case <-timeoutCh:
		return nil, fmt.Errorf("%w after %s waiting for %s", ErrTimeout, timeout, c.endpoint)
	}
}

// dial establishes a new wire and starts its reader. c.mu must be held.
func (c *clientConnection) dial() (*wire, error) {
	if c.parent.closed.Load() {
		return nil, ErrTransportClosed
	}

	conn, err := c.parent.connector.Connect(c.endpoint, c.parent.timeout())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.endpoint, err)
	}

	if err := c.parent.connector.UpgradeConnection(conn, c.parent.config); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection to %s: %w", c.endpoint, err)
	}

	w := &wire{
		conn:    conn,
		pending: xsync.NewMapOf[uint64, chan responseResult](),
	}
	c.current = w
	go c.readResponses(w)
	return w, nil
}

// drop closes a broken wire. c.mu must be held.
func (c *clientConnection) drop(w *wire) {
	if c.current == w {
		c.current = nil
	}
	_ = w.conn.Close()
}

// readResponses reads responses in a loop and distributes them to waiting requests.
// On the first read error the wire is dropped and all its waiting requests fail.
func (c *clientConnection) readResponses(w *wire) {
	for {
		nodeID, requestID, data, err := readFrame(w.conn, nil)
		if err != nil {
			c.mu.Lock()
			c.drop(w)
			c.mu.Unlock()

			if !c.parent.closed.Load() {
				Logger.Debugf("Connection to %s lost: %v", c.endpoint, err)
			}

			failure := fmt.Errorf("connection to %s lost: %w", c.endpoint, err)
			w.pending.Range(func(_ uint64, respCh chan responseResult) bool {
				select {
				case respCh <- responseResult{nil, failure}:
				default:
				}
				return true
			})
			return
		}

		respCh, found := w.pending.Load(requestID)
		if !found {
			// the request already timed out
			Logger.Warningf("Received response for unknown request ID %d from node %d", requestID, nodeID)
			continue
		}

		select {
		case respCh <- responseResult{data, nil}:
		default:
		}
	}
}
