package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/powchain/foundation/blockchain/identity"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new key pair",
	Run:   generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func generateRun(cmd *cobra.Command, args []string) {
	id, err := generate(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(id.Account())
}

// generate creates a new identity and saves it to the key file.
func generate(path string) (identity.Identity, error) {
	id, err := identity.Generate()
	if err != nil {
		return identity.Identity{}, err
	}

	if err := id.Save(path); err != nil {
		return identity.Identity{}, err
	}

	return id, nil
}
