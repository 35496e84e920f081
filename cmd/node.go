package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TopiaNetwork/blockproducer/configuration"
	tpnode "github.com/TopiaNetwork/blockproducer/node"
)

const (
	nodeFuncName = "node"
	nodeCmdDes   = "Operate a block producer node: start."
)

var configPath string

var nodeStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts the node.",
	Long:  `Starts a node which produces a block every block interval until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 {
			return fmt.Errorf("trailing args detected")
		}
		// Parsing of the command line is done so silence cmd usage
		cmd.SilenceUsage = true

		conf, err := configuration.LoadConfiguration(configPath)
		if err != nil {
			return err
		}

		n, err := tpnode.NewNode(conf)
		if err != nil {
			return err
		}

		return n.Run()
	},
}

func startCmd() *cobra.Command {
	flags := nodeStartCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "the configuration file, BP_* environment variables override it")
	return nodeStartCmd
}

var nodeCmd = &cobra.Command{
	Use:   nodeFuncName,
	Short: fmt.Sprint(nodeCmdDes),
	Long:  fmt.Sprint(nodeCmdDes),
}

func NodeCmd() *cobra.Command {
	nodeCmd.AddCommand(startCmd())

	return nodeCmd
}
