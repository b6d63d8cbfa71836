package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for tools",
	Long: `Search the Qveris catalog. Free text runs a ranked search; a
dot-separated tool identifier looks the tool up directly.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := app.dispatcher.Search(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		printToolResults(resp)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
