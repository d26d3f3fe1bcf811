// Package lstore implements the local, in-memory key-value store owned by a
// single node. It holds exactly the keys of the node's partition and lives
// for the lifetime of the process, nothing is persisted.
//
// Implementation Details:
//
//   - Storage: entries are kept in an xsync.MapOf, a concurrent hash map with
//     per-bucket locking. Set, Get and Remove are atomic with respect to each
//     other on the same key, there is no ordering between different keys.
//
//   - Remove uses LoadAndDelete, so the existence flag it returns always
//     belongs to the entry that was actually deleted, even when several
//     workers remove the same key at once.
//
//   - No eviction and no size bound. Growth is only limited by memory.
//
// Usage Example:
//
//	s := lstore.NewLocalStore()
//	_ = s.Set("greeting", envelope.String("hello"))
//	v, found, _ := s.Get("greeting")
//	existed, _ := s.Remove("greeting")
package lstore
