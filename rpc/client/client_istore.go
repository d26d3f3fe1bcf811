package client

import (
	"fmt"

	"github.com/ValentinKolb/sdcs/lib/envelope"
	"github.com/ValentinKolb/sdcs/lib/store"
	"github.com/ValentinKolb/sdcs/rpc/common"
	"github.com/ValentinKolb/sdcs/rpc/serializer"
	"github.com/ValentinKolb/sdcs/rpc/transport"
)

// NewRPCStore creates a new RPC store
// The function takes a node ID (0 for whichever node the transport reaches),
// a config, a transport and a serializer as parameters.
// The returned store also implements io.Closer to release the transport.
func NewRPCStore(
	nodeID uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IStore, error) {
	return newRPCStore(nodeID, false, config, transport, serializer)
}

func newRPCStore(
	nodeID uint64,
	forwarded bool,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*rpcStore, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &rpcStore{
		rpcClientAdapter{
			nodeID:     nodeID,
			forwarded:  forwarded,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Set(key string, value envelope.Envelope) error {
	raw, err := value.MarshalBinary()
	if err != nil {
		return store.NewError(store.RetCInvalidValue, err.Error())
	}
	_, err = i.invoke(common.NewSetRequest(key, raw))
	return err
}

func (i *rpcStore) Get(key string) (envelope.Envelope, bool, error) {
	resp, err := i.invoke(common.NewGetRequest(key))
	if err != nil {
		return envelope.Envelope{}, false, err
	}
	if !resp.Ok {
		return envelope.Envelope{}, false, nil
	}

	value, err := envelope.Unmarshal(resp.Value)
	if err != nil {
		return envelope.Envelope{}, false, fmt.Errorf("RPC IStoreAdapter - invalid value for key %q: %w", key, err)
	}
	return value, true, nil
}

func (i *rpcStore) Remove(key string) (bool, error) {
	resp, err := i.invoke(common.NewRemoveRequest(key))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

// --------------------------------------------------------------------------
// Additional Methods
// --------------------------------------------------------------------------

// Close closes the underlying transport
func (i *rpcStore) Close() error {
	return i.transport.Close()
}
