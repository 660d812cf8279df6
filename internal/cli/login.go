package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/cvelabhub/labhub/internal/labhub/backend"
)

// newLoginCmd creates and returns a new login command
func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the LabHub gateway",
		Long: `Login to the LabHub gateway and cache the issued bearer token in the
CLI configuration file. The password comes from --passwd or the
LABHUB_PASSWORD environment variable.

Example:
  labhub login --email you@example.com --passwd secret`,
		RunE: runLogin,
	}

	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("passwd", "", "Password (prompted when omitted)")
	return cmd
}

// runLogin handles the login command execution
func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		email = cfg.Email
		if email == "" {
			return fmt.Errorf("no email provided. Use --email flag or set email in config file")
		}
	}

	passwd, _ := cmd.Flags().GetString("passwd")
	if passwd == "" {
		passwd = os.Getenv("LABHUB_PASSWORD")
		if passwd == "" {
			return fmt.Errorf("no password provided. Use --passwd flag or set LABHUB_PASSWORD")
		}
	}

	body, _ := sjson.Set(`{}`, "email", email)
	body, _ = sjson.Set(body, "password", passwd)

	client := backend.NewClient(cfg.ServerURL, 30*time.Second, 1)
	rsp, err := client.Post(cmd.Context(), "/api/v1/auth/login", []byte(body), "")
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}

	token := gjson.GetBytes(rsp, "accessToken")
	if !token.Exists() {
		token = gjson.GetBytes(rsp, "token")
	}
	if !token.Exists() {
		return fmt.Errorf("login response carries no token")
	}

	cfg.Email = email
	cfg.AccessToken = token.String()
	if err := cfg.WriteConfig(configFile); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if jsonOutput {
		printJSON(map[string]string{"status": "logged in", "email": email})
		return nil
	}
	okLabel.Printf("Logged in as %s\n", email)
	return nil
}
