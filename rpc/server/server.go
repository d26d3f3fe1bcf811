package server

import (
	"fmt"

	"github.com/ValentinKolb/sdcs/lib/node"
	"github.com/ValentinKolb/sdcs/lib/router"
	"github.com/ValentinKolb/sdcs/lib/store"
	"github.com/ValentinKolb/sdcs/rpc/common"
	"github.com/ValentinKolb/sdcs/rpc/serializer"
	"github.com/ValentinKolb/sdcs/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

// RPCServer exposes the store of a node (usually its node.Service) over an
// RPC transport.
type RPCServer struct {
	config     common.ServerConfig
	topology   router.Topology
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	store      *node.BoundedStore
	adapter    IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport, serializer and the store to serve as parameters.
// The config is validated, an error is a configuration error.
//
// Client requests are limited by a node.BoundedStore. If target is one, its
// limit is shared with every other user of it (e.g. the HTTP gateway),
// otherwise target is wrapped in a new one with config.Workers slots.
//
// Usage:
//
//	s, err := server.NewRPCServer(
//		*config,
//		tcp.NewTCPDefaultServerTransport(),
//		serializer.NewBinarySerializer(),
//		nodeService,
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
	target store.IStore,
) (*RPCServer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	topology, err := config.Topology()
	if err != nil {
		return nil, err
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	s := &RPCServer{
		config:     config,
		topology:   topology,
		transport:  transport,
		serializer: serializer,
		store:      bounded(target, config.Workers),
		adapter:    NewIStoreServerAdapter(topology),
	}
	s.transport.RegisterHandler(s.handle)

	return s, nil
}

// Serve starts the transport layer and blocks until Close is called
func (s *RPCServer) Serve() error {
	return s.transport.Listen(s.config)
}

// Close stops the transport layer
func (s *RPCServer) Close() error {
	return s.transport.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handle is the transport handler: decode, check the addressee, dispatch, encode
func (s *RPCServer) handle(nodeID uint64, req []byte) []byte {
	var respMsg *common.Message

	var msg common.Message
	if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(uint64(store.RetCInvalidValue), fmt.Sprintf("failed to deserialize request: %s", err))
	} else if nodeID != 0 && nodeID != s.topology.SelfID() {
		respMsg = common.NewErrorResponse(uint64(store.RetCMisaddressed),
			fmt.Sprintf("request for node %d was sent to node %d", nodeID, s.topology.SelfID()))
	} else {
		respMsg = s.dispatch(&msg)
	}

	resp, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		resp, _ = s.serializer.Serialize(*common.NewErrorResponse(
			uint64(store.RetCInternalError), fmt.Sprintf("failed to serialize response: %s", err),
		))
	}
	return resp
}

// dispatch runs the adapter. Requests entering the cluster here take a worker
// slot, forwarded requests are served locally by the owner and never block on
// the pool, so two nodes forwarding to each other cannot starve.
func (s *RPCServer) dispatch(msg *common.Message) *common.Message {
	if msg.Forwarded {
		return s.adapter.Handle(msg, s.store.Unbounded())
	}
	return s.adapter.Handle(msg, s.store)
}

// bounded returns target if it already limits concurrency, else wraps it
func bounded(target store.IStore, workers int) *node.BoundedStore {
	if b, ok := target.(*node.BoundedStore); ok {
		return b
	}
	return node.NewBoundedStore(target, workers)
}
