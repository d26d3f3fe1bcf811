// Package router decides which node of the cluster owns a key.
//
// Ownership is a pure function of the key bytes and the total node count:
// md5(key) interpreted as a big-endian unsigned integer, modulo the node
// count, plus one. There is no consistent hashing ring, so changing the node
// count remaps most keys and existing entries are not migrated.
package router
