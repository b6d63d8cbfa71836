package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/qverisai/qveris-cli/auth"
	"github.com/qverisai/qveris-cli/client"
	"github.com/qverisai/qveris-cli/reconcile"
	"github.com/qverisai/qveris-cli/search"
)

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.Faint)
)

func printSuccess(format string, args ...any) {
	successColor.Fprintf(os.Stdout, format+"\n", args...)
}

func printError(err error) {
	errorColor.Fprintf(os.Stderr, "Error: %s\n", userMessage(err))
}

// userMessage folds every error kind the commands can surface into one
// human-readable line. Domain kinds are matched first; anything else
// falls through to the transport mapping.
func userMessage(err error) string {
	var werr *reconcile.WriteError
	switch {
	case errors.Is(err, auth.ErrValidation):
		return "Email and password are both required."
	case errors.Is(err, auth.ErrAuth):
		return "Login failed. Check your email and password and try again."
	case errors.Is(err, auth.ErrStateMismatch):
		return "The browser login could not be verified. Please start the login again."
	case errors.Is(err, auth.ErrKeyProvisioning):
		return "Logged in, but no API key could be obtained. Please try again."
	case errors.Is(err, search.ErrBlankQuery):
		return "Enter a search query."
	case errors.Is(err, search.ErrNotLoggedIn):
		return "You are not logged in. Run `qveris login` first."
	case errors.Is(err, search.ErrNoSession):
		return "The local session is missing. Restart the client and try again."
	case errors.As(err, &werr):
		paths := make([]string, 0, len(werr.Failed))
		for p := range werr.Failed {
			paths = append(paths, p)
		}
		return "Some configuration files could not be updated: " + strings.Join(paths, ", ")
	default:
		return client.UserMessage(err)
	}
}

func printToolResults(resp *client.SearchResponse) {
	if len(resp.Results) == 0 {
		fmt.Println("No tools found.")
		return
	}
	for _, tool := range resp.Results {
		fmt.Printf("%s  %s\n", color.CyanString(tool.ID), tool.Name)
		if tool.Description != "" {
			dimColor.Printf("    %s\n", tool.Description)
		}
	}
	dimColor.Printf("%d result(s)\n", resp.Total)
}
