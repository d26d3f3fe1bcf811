// Package rpc is the communication layer of sdcs. Nodes use it to forward
// requests to the owner of a key, clients use it to reach any node.
//
// The package is organized into several subpackages:
//
//   - common: the Message protocol, configuration structures and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization (Binary, JSON, GOB).
//
//   - client: the store.IStore client of a remote node and the peer pool used
//     for forwarding.
//
//   - server: the RPC server answering requests from a node's store.
//
//   - gateway: the HTTP/JSON interface for external users.
package rpc
