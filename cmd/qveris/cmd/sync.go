package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qverisai/qveris-cli/store"
)

var syncForce bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rewrite the managed MCP and rules files",
	Long: `Reconcile the MCP server descriptor and the rules files with the
stored API key. With --force the generated content is rewritten even
when it already looks current.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		apiKey, err := app.st.GetSecret(store.SlotAPIKey)
		if err != nil || apiKey == "" {
			return fmt.Errorf("no stored API key; run `qveris login` first")
		}

		written, err := app.reconciler.Apply(apiKey, syncForce)
		for _, path := range written {
			fmt.Printf("updated %s\n", path)
		}
		if err != nil {
			return err
		}
		printSuccess("All managed files are up to date.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVarP(&syncForce, "force", "f", false, "rewrite even when already current")
}
