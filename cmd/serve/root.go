package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/sdcs/cmd/util"
	"github.com/ValentinKolb/sdcs/lib/node"
	"github.com/ValentinKolb/sdcs/lib/store/lstore"
	"github.com/ValentinKolb/sdcs/rpc/client"
	"github.com/ValentinKolb/sdcs/rpc/common"
	"github.com/ValentinKolb/sdcs/rpc/gateway"
	"github.com/ValentinKolb/sdcs/rpc/server"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds the graceful shutdown of the gateway
const shutdownTimeout = 5 * time.Second

var (
	Logger = logger.GetLogger("node")

	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start a cache node",
		Long: `Start a cache node with the specified configuration. The node serves the RPC interface for its peers and the HTTP gateway for clients.
The configuration can be set via command line flags or environment variables. The format of the environment variables is SDCS_<flag> (e.g. SDCS_NODE_ID=1)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "node-id"
	ServeCmd.PersistentFlags().Uint64(key, 0, cmdUtil.WrapString("(required) The id of this node, in [1, total-nodes]"))

	key = "total-nodes"
	ServeCmd.PersistentFlags().Uint64(key, 0, cmdUtil.WrapString("(required) The number of nodes in the cluster. All nodes must use the same value"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:50051", cmdUtil.WrapString("The address on which the RPC server will listen (e.g. 0.0.0.0:50051, /tmp/sdcs-1, ...)"))

	key = "peer-prefix"
	ServeCmd.PersistentFlags().String(key, "cache", cmdUtil.WrapString("Prefix of the peer addresses. The node with id N is reached at <peer-prefix>N:<peer-port>"))

	key = "peer-port"
	ServeCmd.PersistentFlags().Int(key, 50051, cmdUtil.WrapString("RPC port of the peers, 0 omits the port (e.g. for the unix transport)"))

	key = "gateway-endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the HTTP gateway will listen, empty disables the gateway"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int(key, 5, cmdUtil.WrapString("Timeout in seconds for forwarded requests and connection deadlines (at least 1)"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, 10, cmdUtil.WrapString("How many client requests (RPC and gateway together) the node processes concurrently"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 100, cmdUtil.WrapString("How many requests are processed concurrently per connection (ignored for http)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	cmdUtil.SetupSocketFlags(ServeCmd)
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	socketConf, tcpConf := cmdUtil.GetSocketConfig()

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.NodeID = viper.GetUint64("node-id")
	serveCmdConfig.TotalNodes = viper.GetUint64("total-nodes")
	serveCmdConfig.PeerAddressPrefix = viper.GetString("peer-prefix")
	serveCmdConfig.PeerPort = viper.GetInt("peer-port")
	serveCmdConfig.TimeoutSecond = viper.GetInt("timeout")
	serveCmdConfig.Workers = viper.GetInt("workers")
	serveCmdConfig.GatewayEndpoint = viper.GetString("gateway-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Transport = common.ServerTransportConfig{
		Endpoint:       viper.GetString("endpoint"),
		WorkersPerConn: viper.GetInt("workers-per-conn"),
		SocketConf:     socketConf,
		TCPConf:        tcpConf,
	}

	if err := serveCmdConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the RPC server and the gateway and blocks until SIGINT or SIGTERM
func run(cmd *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}
	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}
	newPeerTransport, err := cmdUtil.GetTransportFactory()
	if err != nil {
		return err
	}

	topology, err := serveCmdConfig.Topology()
	if err != nil {
		return err
	}

	// wire the node: local partition, peer pool and the service routing between them
	peers := client.NewPeerPool(*serveCmdConfig, serveCmdConfig.PeerEndpoint, newPeerTransport, s)
	defer peers.Close()

	service := node.NewNodeService(topology, lstore.NewLocalStore(), peers)

	// one worker limit shared by the RPC server and the gateway
	bounded := node.NewBoundedStore(service, serveCmdConfig.Workers)

	rpcServer, err := server.NewRPCServer(*serveCmdConfig, t, s, bounded)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// RPC server
	g.Go(rpcServer.Serve)
	g.Go(func() error {
		<-ctx.Done()
		return rpcServer.Close()
	})

	// HTTP gateway
	if serveCmdConfig.GatewayEndpoint != "" {
		httpServer := &http.Server{
			Addr:              serveCmdConfig.GatewayEndpoint,
			Handler:           gateway.NewHandler(bounded, service.WritePrometheus),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			Logger.Infof("Gateway listening on %s", serveCmdConfig.GatewayEndpoint)
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("gateway: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	Logger.Infof("Node %d of %d started", topology.SelfID(), topology.TotalNodes())
	err = g.Wait()
	Logger.Infof("Node %d stopped", topology.SelfID())
	return err
}
