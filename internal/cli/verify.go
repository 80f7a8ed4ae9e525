package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <email> <key>",
	Short: "Consume an activation link",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		result := rt.container.Gate().Verify(cmd.Context(), args[0], args[1])
		if err := printJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
		if !result.Verified {
			return fmt.Errorf("activation failed: %s", result.Reason)
		}
		return nil
	},
}

var resendCmd = &cobra.Command{
	Use:   "resend <email>",
	Short: "Issue a fresh activation key and mail it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		user, err := rt.container.Registrar().Resend(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Activation key reissued for %s, valid until %s\n",
			user.Email, user.ActivationKeyExpires.Format("2006-01-02 15:04 MST"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(resendCmd)
}
