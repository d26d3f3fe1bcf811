// Package client implements the RPC side of store.IStore: a client talking to
// one sdcs node, and the peer pool a node uses to forward requests.
//
// Key Components:
//
//   - NewRPCStore: Factory function that creates a client implementing the
//     store.IStore interface. Every operation becomes one request to the node
//     with the given id (0 for whichever node the transport reaches). Errors
//     reported by the node come back as *store.Error with the remote return
//     code, transport errors are returned unchanged.
//
//   - PeerPool: the node.IPeerProvider of a running node. One client per peer,
//     created on first use with the peer endpoint convention of
//     common.ServerConfig. Requests sent by the pool are marked as forwarded and
//     are never retried. A client that failed in the transport is dropped
//     and redialed on the next request.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:  []string{"cache1:50051"},
//	    RetryCount: 3,
//	  },
//	}
//
//	kv, err := client.NewRPCStore(0, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//	  log.Fatal(err)
//	}
//	_ = kv.Set("n", envelope.Int32(42))
//	value, found, err := kv.Get("n")
//
// Thread Safety:
//
//	All clients and the pool are safe for concurrent use.
package client
