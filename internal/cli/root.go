// Package cli wires the command tree. Commands are thin: they ask the
// lifecycle manager for tokens, call the API glue, and format output. All
// authentication decisions live in internal/auth.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sumesh2279/ecobee-cli/internal/api"
	"github.com/sumesh2279/ecobee-cli/internal/auth"
	"github.com/sumesh2279/ecobee-cli/internal/config"
	"github.com/sumesh2279/ecobee-cli/internal/driver"
	"github.com/sumesh2279/ecobee-cli/internal/logging"
	"github.com/sumesh2279/ecobee-cli/internal/store"
)

// app holds the wired components shared by every command. Built once in the
// root PersistentPreRunE after flags are parsed.
type app struct {
	cfg     *config.Config
	manager *auth.Manager
	client  *api.Client
}

var (
	current  app
	cfgFile  string
	debugLog bool
)

var rootCmd = &cobra.Command{
	Use:   "ecobee",
	Short: "Unofficial CLI for Ecobee thermostats",
	Long: `Control an Ecobee thermostat through its consumer web API.

Sign in once with "ecobee login"; the saved browser session then refreshes
the access token automatically for later commands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.ecobee/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "enable debug logging")
}

func setup() error {
	path := cfgFile
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = defaultPath
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	if debugLog {
		cfg.Debug = true
	}
	if err = logging.ConfigureLogOutput(cfg); err != nil {
		return err
	}

	chrome := driver.NewChrome(driver.Options{
		PortalURL:     cfg.PortalURL,
		ChromePath:    cfg.ChromePath,
		ReplayTimeout: cfg.ReplayTimeout(),
		LoginTimeout:  cfg.LoginTimeout(),
	})
	manager := auth.NewManager(store.NewFileStore(cfg.DataDir), chrome, chrome)
	manager.SetRefreshMargin(cfg.RefreshMargin())

	current = app{
		cfg:     cfg,
		manager: manager,
		client:  api.NewClient(cfg.APIBaseURL, manager),
	}
	return nil
}

// Execute runs the command tree and maps lifecycle failures onto terminal
// guidance and a non-zero exit.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			fmt.Fprintln(os.Stderr, auth.UserFriendlyMessage(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
