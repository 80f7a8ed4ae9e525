package cli

import (
	"fmt"

	"github.com/goliatone/go-storefront/model"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	categoryFilter string
	activeOnly     bool
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Read the catalog through the cache",
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		categories, err := rt.container.Catalog().AllCategories(cmd.Context())
		if err != nil {
			return err
		}
		if activeOnly {
			categories = model.ActiveCategories(categories)
		}
		return printJSON(cmd.OutOrStdout(), categories)
	},
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List products, optionally of one category",
	RunE: func(cmd *cobra.Command, args []string) error {
		var categoryID uuid.UUID
		if categoryFilter != "" {
			id, err := uuid.Parse(categoryFilter)
			if err != nil {
				return fmt.Errorf("invalid category id %q: %w", categoryFilter, err)
			}
			categoryID = id
		}

		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		cat := rt.container.Catalog()
		var products []*model.Product
		if categoryID != uuid.Nil {
			products, err = cat.ProductsByCategory(cmd.Context(), categoryID)
		} else {
			products, err = cat.AllProducts(cmd.Context())
		}
		if err != nil {
			return err
		}
		if activeOnly {
			products = model.ActiveProducts(products)
		}
		return printJSON(cmd.OutOrStdout(), products)
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop every cached catalog entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.container.Catalog().Purge(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Catalog cache purged")
		return nil
	},
}

func init() {
	catalogCmd.PersistentFlags().BoolVar(&activeOnly, "active", false, "only list active records")
	productsCmd.Flags().StringVar(&categoryFilter, "category", "", "category id to filter by")

	catalogCmd.AddCommand(categoriesCmd, productsCmd, purgeCmd)
	rootCmd.AddCommand(catalogCmd)
}
