package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Broker session management",
		Long:  "Authenticate with the broker and manage the persisted session.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "login",
		Short: "Start the broker login flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Kite.Login(cmd.Context()); err != nil {
				output.Info("%v", err)
				return nil
			}
			output.Success("✓ Session is valid")
			return nil
		},
	})

	complete := &cobra.Command{
		Use:   "complete <request-token>",
		Short: "Complete the login flow with a request token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Kite.CompleteLogin(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("completing login: %w", err)
			}
			output.Success("✓ Logged in, session persisted")
			return nil
		},
	}
	cmd.AddCommand(complete)

	cmd.AddCommand(&cobra.Command{
		Use:   "totp",
		Short: "Print the current 2FA code",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			code, err := app.Kite.TOTPCode()
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"code": code})
			}
			output.Println(code)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show session status",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			authenticated := app.Kite.IsAuthenticated()
			if output.IsJSON() {
				output.JSON(map[string]bool{"authenticated": authenticated})
				return
			}
			if authenticated {
				output.Success("✓ Authenticated")
			} else {
				output.Warning("Not authenticated, run 'session login'")
			}
		},
	})

	return cmd
}
