// Package tcp implements the framed RPC transport over TCP sockets. It only
// provides the connectors, framing, request correlation and worker limits
// come from the base package.
//
// Socket settings (buffer sizes, TCP_NODELAY, keep-alive, linger) are taken
// from common.SocketConf and common.TCPConf on both sides. This is the
// default transport between sdcs nodes.
package tcp
