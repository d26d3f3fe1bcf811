// Package store defines the IStore interface shared by every component that
// can answer Set, Get and Remove requests: the local in-memory store (lstore),
// the node service that routes a key to its owner, and the RPC client that
// talks to a remote node.
//
// Because all of them implement the same interface they can be swapped
// freely. The node service, for example, picks either its local store or the
// client of a peer and calls the very same method on it.
//
// Errors that originate in a store are reported as *Error carrying a RetCode.
// An absent key is never an error, Get reports it through its boolean result.
package store
