// Package unix implements the framed RPC transport over Unix domain sockets,
// for nodes and clients sharing one machine. The endpoint is the socket path,
// an existing file at that path is removed when the server starts listening.
//
// Peers reached over unix sockets are addressed as <prefix><id>, so the peer
// port of the server configuration must be 0.
package unix
