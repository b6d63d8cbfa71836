package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show login state and managed file targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cred, err := app.st.LoadCredential()
		if err != nil {
			return err
		}

		if cred.APIKey != "" {
			if cred.Email != "" {
				printSuccess("Logged in as %s", cred.Email)
			} else {
				printSuccess("Logged in")
			}
		} else {
			fmt.Println("Not logged in. Run `qveris login` to get started.")
		}

		fmt.Printf("Host:      %s\n", app.cfg.Host)
		if app.cfg.Workspace != "" {
			fmt.Printf("Workspace: %s\n", app.cfg.Workspace)
		}
		for _, target := range app.reconciler.MCPTargets() {
			fmt.Printf("MCP:       %s\n", target)
		}
		fmt.Printf("Rules:     %s\n", app.reconciler.RulesPath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
