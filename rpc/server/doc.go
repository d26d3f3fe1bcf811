// Package server implements the RPC server of an sdcs node. It accepts
// requests from clients and from other nodes over any transport.IRPCServerTransport
// and answers them from a store.IStore, in practice the node.Service of the node.
//
// Request handling:
//
//   - A request addressed to another node id is rejected (RetCMisaddressed).
//     Node id 0 addresses whichever node receives the request.
//   - A forwarded request for a key this node does not own is rejected
//     (RetCMisrouted). Nodes with diverging topologies therefore fail fast
//     instead of forwarding a request in circles.
//   - At most Workers requests coming from clients are processed at the same
//     time. Forwarded requests do not take a worker slot. Pass a
//     node.BoundedStore to share the limit with the HTTP gateway.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  NodeID:            1,
//	  TotalNodes:        3,
//	  PeerAddressPrefix: "cache",
//	  PeerPort:          50051,
//	  TimeoutSecond:     5,
//	  Workers:           10,
//	  Transport:         common.ServerTransportConfig{Endpoint: "0.0.0.0:50051"},
//	  LogLevel:          "info",
//	}
//
//	s, err := server.NewRPCServer(config, tcp.NewTCPDefaultServerTransport(),
//	  serializer.NewBinarySerializer(), nodeService)
//	if err != nil {
//	  log.Fatalf("Config error: %v", err)
//	}
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
package server
