// Package node implements the node service, the request handler every node of
// the cluster runs. It decides for each request whether the key belongs to the
// local partition and dispatches accordingly:
//
//	Received -> RouteLocal  -> local store           -> Completed
//	         -> RouteRemote -> peer client -> owner  -> Completed
//
// The service implements store.IStore itself, so it can be called by the RPC
// server, by the HTTP gateway or directly in-process. A forwarded request
// returns exactly what the owning node returned, including absence and
// errors. Failures are never retried, never cached and never answered from
// the local store.
//
// BoundedStore limits how many client requests run at the same time. A node
// hands the same BoundedStore to the RPC server and the gateway, forwarded
// requests are served without taking a slot.
//
// Each service exposes its own VictoriaMetrics set (request counts per
// operation and route, forwarding errors and latency, local key count) via
// WritePrometheus.
package node
