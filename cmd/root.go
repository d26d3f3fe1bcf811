package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/sdcs/cmd/kv"
	"github.com/ValentinKolb/sdcs/cmd/serve"
	"github.com/ValentinKolb/sdcs/cmd/util"
	"github.com/ValentinKolb/sdcs/lib/router"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "sdcs",
		Short: "simple distributed cache system",
		Long: fmt.Sprintf(`sdcs (v%s)

A simple distributed in-memory cache. Keys are partitioned over a fixed number
of nodes, every node accepts every request and forwards it to the owning node.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sdcs",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sdcs v%s\n", Version)
		},
	}

	// routeCmd prints the owning node of keys without contacting the cluster
	routeCmd = &cobra.Command{
		Use:   "route [key...]",
		Short: "Print the node owning each key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			totalNodes, _ := cmd.Flags().GetUint64("total-nodes")
			if totalNodes == 0 {
				return fmt.Errorf("%w: total-nodes must be at least 1", router.ErrInvalidTopology)
			}
			for _, key := range args {
				fmt.Printf("%s -> node %d\n", key, router.Route(key, totalNodes))
			}
			return nil
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(routeCmd)

	// Add Flags for route command
	routeCmd.Flags().Uint64("total-nodes", 3, util.WrapString("The number of nodes in the cluster"))

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix, http)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
