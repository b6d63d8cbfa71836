package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var executeParams []string

var executeCmd = &cobra.Command{
	Use:     "exec <tool-id>",
	Aliases: []string{"execute"},
	Short:   "Execute a tool",
	Long: `Execute a tool by identifier. Parameters are passed as repeated
--param key=value flags; values that parse as JSON are sent typed,
anything else is sent as a string.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(executeParams)
		if err != nil {
			return err
		}

		result, err := app.dispatcher.Execute(cmd.Context(), args[0], params)
		if err != nil {
			return err
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, result, "", "  "); err != nil {
			os.Stdout.Write(result)
			fmt.Println()
			return nil
		}
		fmt.Println(pretty.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(executeCmd)
	executeCmd.Flags().StringArrayVar(&executeParams, "param", nil, "tool parameter as key=value (repeatable)")
}

func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		var typed any
		if err := json.Unmarshal([]byte(value), &typed); err == nil {
			params[key] = typed
		} else {
			params[key] = value
		}
	}
	return params, nil
}
