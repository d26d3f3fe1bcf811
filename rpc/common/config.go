package common

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/sdcs/lib/router"
)

// --------------------------------------------------------------------------
// Socket configuration (shared by client and server transports)
// --------------------------------------------------------------------------

// SocketConf holds the socket buffer settings of the framed transports
type SocketConf struct {
	WriteBufferSize int // in bytes, 0 keeps the OS default
	ReadBufferSize  int // in bytes, 0 keeps the OS default
}

// TCPConf holds TCP specific connection settings
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int // 0 disables keep-alive
	TCPLingerSec    int // negative keeps the OS default
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerTransportConfig holds the settings of the server side transport
type ServerTransportConfig struct {
	// Endpoint the RPC server listens on (host:port for tcp and http, a socket path for unix)
	Endpoint string
	// WorkersPerConn bounds the number of requests processed concurrently per connection
	WorkersPerConn int
	SocketConf     SocketConf
	TCPConf        TCPConf
}

// ServerConfig holds all configuration parameters of a single node.
type ServerConfig struct {
	// Cluster identity
	NodeID     uint64
	TotalNodes uint64

	// Peer addressing, a peer with id N is reached at <PeerAddressPrefix><N>:<PeerPort>
	PeerAddressPrefix string
	PeerPort          int

	// Timeout for forwarded requests and connection deadlines, at least 1
	TimeoutSecond int

	// Workers bounds the number of requests the node processes concurrently
	Workers int

	// RPC transport settings
	Transport ServerTransportConfig

	// GatewayEndpoint is the listen address of the HTTP gateway, empty disables it
	GatewayEndpoint string

	// Logging configuration
	LogLevel string
}

// Validate checks the configuration, every error is a configuration error
func (c *ServerConfig) Validate() error {
	if _, err := c.Topology(); err != nil {
		return err
	}
	if c.Transport.Endpoint == "" {
		return errors.New("no rpc endpoint configured")
	}
	if c.TotalNodes > 1 && c.PeerAddressPrefix == "" {
		return errors.New("peer address prefix is required for more than one node")
	}
	if c.PeerPort < 0 || c.PeerPort > 65535 {
		return fmt.Errorf("peer port %d is out of range", c.PeerPort)
	}
	if c.TimeoutSecond < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", c.TimeoutSecond)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Topology returns the cluster topology described by the configuration
func (c *ServerConfig) Topology() (router.Topology, error) {
	return router.NewTopology(c.NodeID, c.TotalNodes)
}

// PeerEndpoint returns the RPC endpoint of the node with the given id
func (c *ServerConfig) PeerEndpoint(nodeID uint64) string {
	endpoint := c.PeerAddressPrefix + strconv.FormatUint(nodeID, 10)
	if c.PeerPort > 0 {
		endpoint += ":" + strconv.Itoa(c.PeerPort)
	}
	return endpoint
}

// PeerClientConfig returns the client configuration used to reach the given endpoint.
// Forwarding never retries, a failed forward is reported to the caller.
func (c *ServerConfig) PeerClientConfig(endpoint string) ClientConfig {
	return ClientConfig{
		TimeoutSecond: c.TimeoutSecond,
		Transport: ClientTransportConfig{
			Endpoints:              []string{endpoint},
			RetryCount:             1,
			ConnectionsPerEndpoint: 1,
			SocketConf:             c.Transport.SocketConf,
			TCPConf:                c.Transport.TCPConf,
		},
	}
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Node Identity
	addSection("Node Identity")
	addField("Node ID", strconv.FormatUint(c.NodeID, 10))
	addField("Total Nodes", strconv.FormatUint(c.TotalNodes, 10))

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Workers", strconv.Itoa(c.Workers))
	addField("Workers Per Connection", strconv.Itoa(max(1, c.Transport.WorkersPerConn)))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	// Peers
	addSection("Peers")
	for id := uint64(1); id <= c.TotalNodes; id++ {
		if id == c.NodeID {
			addField(strconv.FormatUint(id, 10), "(self)")
			continue
		}
		addField(strconv.FormatUint(id, 10), c.PeerEndpoint(id))
	}

	// Gateway
	addSection("Gateway")
	if c.GatewayEndpoint == "" {
		addField("Endpoint", "(disabled)")
	} else {
		addField("Endpoint", c.GatewayEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the settings of the client side transport
type ClientTransportConfig struct {
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
	SocketConf             SocketConf
	TCPConf                TCPConf
}

type ClientConfig struct {
	TimeoutSecond int
	Transport     ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Conns Per Endpoint", strconv.Itoa(max(1, c.Transport.ConnectionsPerEndpoint)))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
