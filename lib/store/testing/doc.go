// Package testing provides a standardised test suite and benchmarks for
// every implementation of the store.IStore interface.
//
// The same suite runs against the local store, against the node service of a
// single node and of an in-process cluster, and against the RPC client of
// a cluster reached over the network. This is how forwarding is shown to be
// transparent: a remote store must pass exactly the same tests as a local one.
//
// Example usage:
//
//	factory := func() store.IStore {
//		return lstore.NewLocalStore()
//	}
//
//	sdcstesting.RunStoreTests(t, "LocalStore", factory)
//	sdcstesting.RunStoreBenchmarks(b, "LocalStore", factory)
package testing
