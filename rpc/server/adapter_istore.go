package server

import (
	"fmt"

	"github.com/ValentinKolb/sdcs/lib/envelope"
	"github.com/ValentinKolb/sdcs/lib/router"
	"github.com/ValentinKolb/sdcs/lib/store"
	"github.com/ValentinKolb/sdcs/rpc/common"
)

// NewIStoreServerAdapter creates the adapter translating RPC requests to
// store.IStore calls. Forwarded requests are only accepted for keys the
// topology assigns to this node.
func NewIStoreServerAdapter(topology router.Topology) IRPCServerAdapter {
	return &iStoreServerAdapterImpl{topology: topology}
}

type iStoreServerAdapterImpl struct {
	topology router.Topology
}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message, target store.IStore) *common.Message {
	if target == nil {
		return errorResponse(store.NewError(store.RetCInternalError, "handler: store is nil"))
	}

	// A forwarded request for a key we do not own would be forwarded again.
	// The sender uses another topology, refuse instead of looping.
	if req.Forwarded && !adapter.topology.Owns(req.Key) {
		return errorResponse(store.NewError(store.RetCMisrouted, fmt.Sprintf(
			"key %q was forwarded to node %d but is owned by node %d (topology mismatch?)",
			req.Key, adapter.topology.SelfID(), adapter.topology.Route(req.Key),
		)))
	}

	switch req.MsgType {
	case common.MsgTKVSet:
		value, err := envelope.Unmarshal(req.Value)
		if err != nil {
			return common.NewSetResponse(store.NewError(store.RetCInvalidValue, err.Error()))
		}
		err = target.Set(req.Key, value)
		return common.NewSetResponse(err)
	case common.MsgTKVGet:
		value, ok, err := target.Get(req.Key)
		if err != nil || !ok {
			return common.NewGetResponse(nil, ok, err)
		}
		raw, err := value.MarshalBinary()
		if err != nil {
			return common.NewGetResponse(nil, false, store.NewError(store.RetCInternalError, err.Error()))
		}
		return common.NewGetResponse(raw, true, nil)
	case common.MsgTKVRemove:
		existed, err := target.Remove(req.Key)
		return common.NewRemoveResponse(existed, err)
	default:
		return errorResponse(store.NewError(store.RetCUnsupported,
			fmt.Sprintf("RPC IStoreAdapter - Unsupported message type: %s", req.MsgType),
		))
	}
}

// errorResponse converts a store error to an error message
func errorResponse(err *store.Error) *common.Message {
	return common.NewErrorResponse(err.RetCode(), err.Msg)
}
