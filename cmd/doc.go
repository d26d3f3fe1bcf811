// Package cmd implements the command-line interface of sdcs. It provides a
// hierarchical command structure with operations for running a cache node
// and interacting with a cluster as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts a node (RPC server, peer pool and HTTP gateway)
//   - kv: Commands for key-value operations against a node (set, get, rm, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See sdcs -help for a list of all commands.
package cmd
