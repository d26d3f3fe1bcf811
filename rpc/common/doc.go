// Package common provides the data structures shared by the rpc packages
// of sdcs: the message protocol, the server and client configuration and
// the logger setup.
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication between nodes and
//     clients. One struct carries requests and responses, the message type
//     decides which fields are used. Values travel as the binary form of
//     envelope.Envelope. Factory methods exist for every request and response.
//
//   - MessageType: Enumeration of the supported operations (set, get, remove)
//     and the control messages (success, error).
//
//   - ServerConfig: Configuration of a single node: its identity in the cluster,
//     peer addressing, transport, worker and gateway settings. Validate reports
//     configuration errors before anything is started.
//
//   - ClientConfig: Configuration for client components, controlling endpoints,
//     timeouts and retry behavior.
//
//   - Logger: Custom logging implementation based on dragonboat's
//     logger package, giving all named loggers a consistent format.
package common
