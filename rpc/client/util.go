package client

import (
	"fmt"

	"github.com/ValentinKolb/sdcs/lib/store"
	"github.com/ValentinKolb/sdcs/rpc/common"
	"github.com/ValentinKolb/sdcs/rpc/serializer"
	"github.com/ValentinKolb/sdcs/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	nodeID     uint64
	forwarded  bool
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invoke sends a request with the settings of the adapter
func (a *rpcClientAdapter) invoke(req *common.Message) (*common.Message, error) {
	if a.forwarded {
		req.AsForwarded()
	}
	return invokeRPCRequest(a.nodeID, req, a.transport, a.serializer)
}

// invokeRPCRequest is a helper function used for all RPC Clients to send requests
// It takes a node ID, a request message, a transport layer and a serializer as parameters
// It returns a response message and an error if any occurs
// Errors reported by the remote node are returned as *store.Error, transport errors unchanged
func invokeRPCRequest(nodeID uint64, req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	respBytes, err := transport.Send(nodeID, reqBytes)
	if err != nil {
		return nil, err
	}

	resp := &common.Message{}
	if err := serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("RPC IStoreAdapter - invalid response: %w", err)
	}

	// Check if the response is an error response
	if resp.MsgType == common.MsgTError || resp.Err != "" {
		code := store.RetCode(resp.Code)
		if code == store.RetCSuccess {
			code = store.RetCInternalError
		}
		return nil, store.NewError(code, resp.Err)
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("RPC IStoreAdapter - Unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	return resp, nil
}
