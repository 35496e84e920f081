package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	tpcrt "github.com/TopiaNetwork/blockproducer/crypt"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
)

const (
	keyFuncName = "key"
	keyCmdDes   = "Manage the producer key: generate."
)

// NewKeyCmd is rebuilt per call so the flag values don't leak between invocations.
func NewKeyCmd() *cobra.Command {
	var (
		out       string
		cryptName string
		network   string
	)

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generates a producer key file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("trailing args detected")
			}
			cmd.SilenceUsage = true

			cryptType, err := tpcrtypes.ParseCryptType(cryptName)
			if err != nil {
				return err
			}
			netType, err := tpcrtypes.ParseNetworkType(network)
			if err != nil {
				return err
			}

			log, err := tplog.CreateMainLogger(tplogcmm.WarnLevel, tplog.TextFormat, tplog.StdErrOutput, "")
			if err != nil {
				return err
			}
			cryptService, err := tpcrt.CreateCryptService(log, cryptType)
			if err != nil {
				return err
			}

			priKey, pubKey, err := cryptService.GeneratePriPubKey()
			if err != nil {
				return err
			}
			addr, err := tpcrt.CreateAddress(netType, cryptType, pubKey)
			if err != nil {
				return err
			}
			if err = tpcrt.SaveKeyFile(out, cryptType, priKey, pubKey); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Key written to %s, producer address %s\n", out, addr)
			return nil
		},
	}

	flags := generateCmd.Flags()
	flags.StringVarP(&out, "out", "o", "producer.key", "the key file to write")
	flags.StringVarP(&cryptName, "crypt", "", tpcrtypes.CryptType_Ed25519.String(), "the signature scheme, ed25519 or secp256")
	flags.StringVarP(&network, "network", "", "testnet", "the network the producer address is derived for")

	keyCmd := &cobra.Command{
		Use:   keyFuncName,
		Short: keyCmdDes,
		Long:  keyCmdDes,
	}
	keyCmd.AddCommand(generateCmd)

	return keyCmd
}
