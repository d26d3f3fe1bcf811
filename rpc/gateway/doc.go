/*
Package gateway implements the client facing HTTP interface of a node.

Every node runs the gateway next to its RPC server. Requests are served by the
node service, so any node answers for any key:

	GET    /          banner
	POST   /          body {"key": value}, stores exactly one entry
	GET    /{key}     200 {"key": value} or 404
	DELETE /{key}     "1\n" if an entry was removed, "0\n" otherwise
	GET    /metrics   Prometheus text format

Values are JSON literals. Integers become Int32, other numbers Float32,
strings String, booleans Bool. Arrays and objects are stored as their JSON text
and returned as structured values again. null and integers outside the int32
range are rejected with 400.
*/
package gateway
