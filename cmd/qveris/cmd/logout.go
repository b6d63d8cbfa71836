package cmd

import "github.com/spf13/cobra"

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and delete the stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.negotiator.Logout(); err != nil {
			return err
		}
		printSuccess("Logged out.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
