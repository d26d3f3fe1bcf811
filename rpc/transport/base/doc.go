// Package base implements the framed client and server transports shared by
// the tcp and unix packages. The protocol specific parts (dialing, listening,
// socket options) are injected through IClientConnector and IServerConnector.
//
// Frame format (all integers big endian):
//
//	[8 byte node id][8 byte request id][4 byte length][payload]
//
// The request id correlates responses with requests, so many requests can be
// in flight on one connection and responses may arrive out of order.
//
// Client:
//
//   - One or more connections per endpoint, picked round robin.
//   - A response is awaited for at most TimeoutSecond seconds.
//   - A broken connection fails all of its waiting requests and is redialed
//     by the next request. Retries with exponential backoff are only made when
//     RetryCount is greater than 1.
//
// Server:
//
//   - One goroutine per connection reads frames, a bounded number of workers
//     per connection runs the handler. Read buffers are pooled.
//   - Idle connections are kept open. Close stops the listener and closes all
//     connections.
//
// All exported functions and methods are safe for concurrent use.
package base
