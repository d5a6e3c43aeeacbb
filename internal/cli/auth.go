package cli

import (
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/sumesh2279/ecobee-cli/internal/browser"
	"github.com/sumesh2279/ecobee-cli/internal/driver"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to Ecobee through a browser (one-time setup)",
	Long: `Opens a browser on the Ecobee portal and waits for you to sign in,
MFA included. The resulting session is saved locally so later commands can
refresh the access token without you.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := current.manager.InteractiveLogin(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println("Login successful.")
		fmt.Printf("Session saved under %s\n", current.cfg.DataDir)
		fmt.Printf("Token valid until %s\n", token.Expiry.Local().Format(time.RFC1123))
		fmt.Println("The session auto-refreshes tokens; you should only need to log in again if you sign out on the web.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete the saved token, session, and credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.manager.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Cleared saved authentication state.")
		return nil
	},
}

var autoLoginCmd = &cobra.Command{
	Use:   "auto-login",
	Short: "Store your Ecobee credentials for headless fallback login",
	Long: `Stores your Ecobee username and password locally (sealed under a key in
the same directory) so that token refresh can fall back to a headless form
login when the saved session expires. Opt-in; the password is only ever sent
to Ecobee's own login form. Accounts with MFA enabled cannot use this
fallback, since the challenge cannot be answered headlessly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var answers struct {
			Username string
			Password string
		}
		questions := []*survey.Question{
			{
				Name:     "username",
				Prompt:   &survey.Input{Message: "Ecobee username (email):"},
				Validate: survey.Required,
			},
			{
				Name:     "password",
				Prompt:   &survey.Password{Message: "Ecobee password:"},
				Validate: survey.Required,
			},
		}
		if err := survey.Ask(questions, &answers); err != nil {
			return err
		}
		if err := current.manager.SetupAutoLogin(cmd.Context(), answers.Username, answers.Password); err != nil {
			return err
		}
		fmt.Println("Credential stored. Token refresh will fall back to it when the saved session expires.")
		return nil
	},
}

var portalCmd = &cobra.Command{
	Use:   "portal",
	Short: "Open the Ecobee consumer portal in your default browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		url := current.cfg.PortalURL
		if url == "" {
			url = driver.DefaultPortalURL
		}
		fmt.Printf("Opening %s\n", url)
		return browser.OpenURL(url)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, autoLoginCmd, portalCmd)
}
