package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/powchain/foundation/blockchain/identity"
	"github.com/spf13/cobra"
)

var showPublicKey bool

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print account for the specific wallet",
	Run:   accountRun,
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.Flags().BoolVarP(&showPublicKey, "public-key", "k", false, "Also print the public key.")
}

func accountRun(cmd *cobra.Command, args []string) {
	id, err := identity.Load(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(id.Account())
	if showPublicKey {
		fmt.Println(id.PublicKeyHex())
	}
}
