package cli

import (
	"fmt"

	"github.com/goliatone/go-storefront/model"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var deactivateCmd = &cobra.Command{
	Use:   "deactivate <category|product|user> <id>",
	Short: "Soft delete a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeStatus(cmd, args, false)
	},
}

var reactivateCmd = &cobra.Command{
	Use:   "reactivate <category|product|user> <id>",
	Short: "Restore a soft deleted record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeStatus(cmd, args, true)
	},
}

func init() {
	rootCmd.AddCommand(deactivateCmd)
	rootCmd.AddCommand(reactivateCmd)
}

func parseTarget(args []string) (model.EntityType, uuid.UUID, error) {
	entityType, err := model.ParseEntityType(args[0])
	if err != nil {
		return "", uuid.Nil, err
	}
	id, err := uuid.Parse(args[1])
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("invalid id %q: %w", args[1], err)
	}
	return entityType, id, nil
}

func changeStatus(cmd *cobra.Command, args []string, active bool) error {
	entityType, id, err := parseTarget(args)
	if err != nil {
		return err
	}

	rt, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	lc := rt.container.Lifecycle()
	apply := lc.Deactivate
	if active {
		apply = lc.Reactivate
	}
	if err := apply(cmd.Context(), entityType, id); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s is now %s\n", entityType, id, statusLabel(active))
	return nil
}

func statusLabel(active bool) model.Status {
	if active {
		return model.StatusActive
	}
	return model.StatusInactive
}
