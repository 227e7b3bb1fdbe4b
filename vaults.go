package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github/itish2003/vaultchat/services"
)

var vaultsCmd = &cobra.Command{
	Use:   "vaults",
	Short: "List the notes vaults found on this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		vaults := services.DiscoverVaults()
		if len(vaults) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No vaults found in common locations.")
			return nil
		}
		for i, v := range vaults {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, v)
		}
		return nil
	},
}
