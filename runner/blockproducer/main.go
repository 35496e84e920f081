package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/TopiaNetwork/blockproducer/cmd"
)

var mainCmd = &cobra.Command{Use: "blockproducer"}

func main() {
	mainCmd.AddCommand(cmd.NodeCmd())
	mainCmd.AddCommand(cmd.NewKeyCmd())

	if mainCmd.Execute() != nil {
		os.Exit(1)
	}
}
