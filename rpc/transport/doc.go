// Package transport defines the interfaces of the RPC transport layer of sdcs.
// A transport moves opaque byte slices between a client and a node, the
// message format is the business of the serializer package.
//
// Every request carries the id of the node it is addressed to. 0 addresses
// whichever node receives the request, a server rejects requests addressed
// to another node.
//
// Implementations live in the sub packages: tcp and unix (framed, on top of
// base) and http.
package transport
