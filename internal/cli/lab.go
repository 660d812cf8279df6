package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/cvelabhub/labhub/internal/labhub/backend"
)

// newLabCmd groups the lab session lifecycle commands.
func newLabCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lab",
		Short: "Control lab sessions",
		Long: `Start, inspect, extend, and terminate time-boxed lab sessions.

A started session is remembered as the active session; extend, status, and
terminate operate on it unless a session uuid is given.

Examples:
  labhub lab start CVE-2021-44228
  labhub lab status
  labhub lab extend
  labhub lab terminate`,
	}
	cmd.AddCommand(newLabStartCmd())
	cmd.AddCommand(newLabStatusCmd())
	cmd.AddCommand(newLabExtendCmd())
	cmd.AddCommand(newLabTerminateCmd())
	return cmd
}

func gatewayClient(cfg *Config) *backend.Client {
	return backend.NewClient(cfg.ServerURL, 60*time.Second, 1)
}

// resolveSession returns the session uuid from args or the remembered
// active session.
func resolveSession(cfg *Config, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.ActiveSession == "" {
		return "", fmt.Errorf("no active lab session. Pass a session uuid or start one with: labhub lab start <cve-id>")
	}
	return cfg.ActiveSession, nil
}

func newLabStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <cve-id>",
		Short: "Start a lab session for a CVE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireLogin()
			if err != nil {
				return err
			}
			cveID := args[0]

			body, _ := sjson.Set(`{}`, "cveId", cveID)
			rsp, err := gatewayClient(cfg).Post(cmd.Context(), "/api/v1/labs", []byte(body), cfg.AccessToken)
			if err != nil {
				return fmt.Errorf("unable to start lab: %w", err)
			}

			sessionID := gjson.GetBytes(rsp, "uuid").String()
			cfg.ActiveSession = sessionID
			cfg.ActiveCVE = cveID
			if werr := cfg.WriteConfig(configFile); werr != nil {
				warnLabel.Printf("Warning: unable to remember active session: %v\n", werr)
			}

			if jsonOutput {
				printJSON(gjson.ParseBytes(rsp).Value())
				return nil
			}
			okLabel.Printf("Lab started for %s\n", cveID)
			fmt.Printf("Session:    %s\n", sessionID)
			fmt.Printf("Expires at: %s\n", gjson.GetBytes(rsp, "expiresAt").String())
			return nil
		},
	}
}

func newLabStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [session-uuid]",
		Short: "Show the lab session state and remaining time",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireLogin()
			if err != nil {
				return err
			}
			sessionID, err := resolveSession(cfg, args)
			if err != nil {
				return err
			}

			client := gatewayClient(cfg)
			rsp, err := client.Get(cmd.Context(), "/api/v1/labs/"+sessionID, nil, cfg.AccessToken)
			if err != nil {
				return fmt.Errorf("unable to fetch session: %w", err)
			}
			elig, err := client.Get(cmd.Context(), "/api/v1/labs/"+sessionID+"/extendable", nil, cfg.AccessToken)
			if err != nil {
				return fmt.Errorf("unable to fetch eligibility: %w", err)
			}

			if jsonOutput {
				merged, _ := sjson.SetRawBytes(rsp, "eligibility", elig)
				printJSON(gjson.ParseBytes(merged).Value())
				return nil
			}

			fmt.Printf("Session:    %s\n", sessionID)
			fmt.Printf("CVE:        %s\n", gjson.GetBytes(rsp, "cveId").String())
			fmt.Printf("Status:     %s\n", gjson.GetBytes(rsp, "status").String())
			fmt.Printf("Expires at: %s\n", gjson.GetBytes(rsp, "expiresAt").String())
			fmt.Printf("Remaining:  %d min\n", gjson.GetBytes(elig, "remainingMinutes").Int())
			if gjson.GetBytes(elig, "extendable").Bool() {
				okLabel.Printf("Extendable: yes (+%d min)\n", gjson.GetBytes(elig, "incrementMinutes").Int())
			} else {
				warnLabel.Println("Extendable: no (lifetime cap reached)")
			}
			return nil
		},
	}
}

func newLabExtendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extend [session-uuid]",
		Short: "Extend the lab session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireLogin()
			if err != nil {
				return err
			}
			sessionID, err := resolveSession(cfg, args)
			if err != nil {
				return err
			}

			rsp, err := gatewayClient(cfg).Post(cmd.Context(), "/api/v1/labs/"+sessionID+"/extend", nil, cfg.AccessToken)
			if err != nil {
				return fmt.Errorf("unable to extend session: %w", err)
			}

			if jsonOutput {
				printJSON(gjson.ParseBytes(rsp).Value())
				return nil
			}
			okLabel.Printf("Extended by %d min\n", gjson.GetBytes(rsp, "extendedMinutes").Int())
			fmt.Printf("New expiry: %s\n", gjson.GetBytes(rsp, "newExpiry").String())
			return nil
		},
	}
}

func newLabTerminateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "terminate [session-uuid]",
		Short: "Terminate the lab session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireLogin()
			if err != nil {
				return err
			}
			sessionID, err := resolveSession(cfg, args)
			if err != nil {
				return err
			}

			rsp, err := gatewayClient(cfg).Post(cmd.Context(), "/api/v1/labs/"+sessionID+"/terminate", nil, cfg.AccessToken)
			if err != nil {
				return fmt.Errorf("unable to terminate session: %w", err)
			}

			if cfg.ActiveSession == sessionID {
				cfg.ActiveSession = ""
				cfg.ActiveCVE = ""
				if werr := cfg.WriteConfig(configFile); werr != nil {
					warnLabel.Printf("Warning: unable to clear active session: %v\n", werr)
				}
			}

			if jsonOutput {
				printJSON(gjson.ParseBytes(rsp).Value())
				return nil
			}
			okLabel.Printf("Terminated at %s\n", gjson.GetBytes(rsp, "terminatedAt").String())
			return nil
		},
	}
}
