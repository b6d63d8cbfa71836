package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/qverisai/qveris-cli/auth"
	"github.com/qverisai/qveris-cli/internal/browser"
)

var (
	loginEmail    string
	loginPassword string
	loginBrowser  bool
)

// browserLoginTimeout bounds how long the command waits for the user to
// finish the browser handshake.
const browserLoginTimeout = 5 * time.Minute

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the Qveris platform",
	Long: `Log in with an email and password, or with --browser to delegate
authentication to the Qveris login page. Either flow stores an API key
locally and updates the MCP server descriptor.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginBrowser {
			return runBrowserLogin(cmd)
		}
		return runPasswordLogin(cmd)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password (prompted when omitted)")
	loginCmd.Flags().BoolVar(&loginBrowser, "browser", false, "log in through the browser")
}

func runPasswordLogin(cmd *cobra.Command) error {
	email := loginEmail
	if email == "" {
		v, err := promptLine("Email: ")
		if err != nil {
			return err
		}
		email = v
	}
	password := loginPassword
	if password == "" {
		v, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		password = v
	}

	cred, err := app.negotiator.LoginWithPassword(cmd.Context(), email, password)
	if err != nil {
		return err
	}
	printSuccess("Logged in as %s", cred.Email)
	return nil
}

func runBrowserLogin(cmd *cobra.Command) error {
	listener, err := auth.StartCallbackListener(app.cfg.CallbackPort)
	if err != nil {
		return err
	}
	defer listener.Close()

	app.negotiator.SetPrompt(func(message string) (string, error) {
		return promptLine(message + ": ")
	})

	loginURL, err := app.negotiator.BeginOAuth(listener.URL())
	if err != nil {
		return err
	}

	fmt.Printf("Opening %s\n", loginURL)
	if err := browser.Open(loginURL); err != nil {
		fmt.Println("Could not open a browser; visit the URL above to continue.")
	}

	deadline := time.After(browserLoginTimeout)
	for {
		select {
		case uri := <-listener.URIs():
			cred, handled, err := app.negotiator.HandleCallback(cmd.Context(), uri, listener.URL())
			if !handled {
				continue
			}
			if err != nil {
				return err
			}
			printSuccess("Logged in as %s", cred.Email)
			return nil
		case <-deadline:
			return fmt.Errorf("browser login timed out after %s", browserLoginTimeout)
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		}
	}
}

func promptLine(message string) (string, error) {
	fmt.Print(message)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(message string) (string, error) {
	fmt.Print(message)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(data), nil
}
