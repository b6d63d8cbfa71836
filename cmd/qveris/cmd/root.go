package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/qverisai/qveris-cli/auth"
	"github.com/qverisai/qveris-cli/client"
	"github.com/qverisai/qveris-cli/config"
	"github.com/qverisai/qveris-cli/reconcile"
	"github.com/qverisai/qveris-cli/search"
	"github.com/qverisai/qveris-cli/store"
)

// Version is stamped at build time.
var Version = "dev"

var (
	configPath string
	verbose    bool
)

// app is the activated client shared by every subcommand: the store is
// open, the session identifier exists, and startup reconciliation ran.
var app struct {
	cfg        *config.Config
	st         *store.Store
	cl         *client.Client
	negotiator *auth.Negotiator
	dispatcher *search.Dispatcher
	reconciler *reconcile.Reconciler
	transition reconcile.Transition
}

var rootCmd = &cobra.Command{
	Use:   "qveris",
	Short: "Qveris is the tool-search platform client",
	Long: `The Qveris client connects an editor to the Qveris tool-search
platform: it manages login credentials and API keys, keeps the MCP
server descriptor and rules files up to date, and searches and
executes tools.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return activate()
	},
}

func Execute() {
	// Not a PersistentPostRun: cobra skips those when RunE fails, and
	// the store must be released on failed commands too.
	err := rootCmd.Execute()
	closeApp()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func closeApp() {
	if app.st != nil {
		app.st.Close()
		app.st = nil
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// activate brings the client to its ready state: config, store, session
// identifier, version transition, key adoption and startup
// reconciliation. Reconciliation failures are logged, not fatal; the
// next startup retries them.
func activate() error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.ExpandPath(cfg.DataDir), cfg.Host)
	if err != nil {
		return err
	}

	if _, err := st.EnsureSessionID(); err != nil {
		st.Close()
		return err
	}

	transition, err := reconcile.DetectTransition(st, Version)
	if err != nil {
		st.Close()
		return err
	}

	rec := reconcile.New(cfg, st, Version)

	// A previous installation may have left a usable key in the MCP
	// descriptor; adopt it instead of forcing a fresh login.
	if !st.LoggedIn() {
		if key, ok := rec.DiscoverAPIKey(); ok {
			if err := st.SetSecret(store.SlotAPIKey, key); err != nil {
				slog.Warn("adopting discovered api key failed", "error", err)
			} else {
				slog.Debug("adopted api key from mcp descriptor")
			}
		}
	}

	if key, err := st.GetSecret(store.SlotAPIKey); err == nil && key != "" {
		if written, err := rec.Apply(key, transition.Force()); err != nil {
			slog.Warn("startup reconciliation incomplete", "written", written, "error", err)
		}
	}
	if err := transition.Commit(st); err != nil {
		slog.Warn("recording client version failed", "error", err)
	}

	cl := client.New(cfg.BaseURL)
	app.cfg = cfg
	app.st = st
	app.cl = cl
	app.reconciler = rec
	app.transition = transition
	app.negotiator = auth.New(cfg, st, cl, rec)
	app.dispatcher = search.New(cfg, st, cl)
	return nil
}
