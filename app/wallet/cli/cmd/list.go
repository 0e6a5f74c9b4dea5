package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/powchain/foundation/nameservice"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the accounts in the key folder",
	Run:   listRun,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func listRun(cmd *cobra.Command, args []string) {
	ns, err := nameservice.New(accountPath)
	if err != nil {
		log.Fatal(err)
	}

	for _, entry := range ns.Names() {
		fmt.Printf("%-20s %s\n", entry.Name, entry.Account)
	}
}
