package cli

import (
	"fmt"

	"github.com/goliatone/go-storefront/store"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the storefront tables",
	Long:  "Creates the categories, products and users tables when they do not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := store.CreateSchema(cmd.Context(), rt.container.DB()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
