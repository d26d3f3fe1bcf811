// Package http implements the RPC transport over plain HTTP.
//
// Every request is a POST to /{nodeId} with the serialized message as body,
// the response body holds the serialized response. Clients round-robin over
// their endpoints and retry failed requests up to RetryCount times. Endpoints
// without a scheme are treated as http:// endpoints, so the same peer address
// convention works for all transports.
//
// The HTTP transport is slower than tcp and unix but passes through proxies
// and can be inspected with ordinary HTTP tooling.
package http
