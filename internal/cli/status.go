package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// StatusResponse represents the response from the /version endpoint
type StatusResponse struct {
	ServerVersion string `json:"serverVersion"`
	APIVersion    string `json:"apiVersion"`
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Get gateway status",
	Long: `Get gateway status and version information.

Examples:
  # Get gateway status
  labhub status

  # Get gateway status in JSON format
  labhub status -j`,
	RunE: getStatus,
}

// getStatus retrieves gateway version information
func getStatus(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	rsp, err := gatewayClient(cfg).Get(cmd.Context(), "/version", nil, "")
	if err != nil {
		return fmt.Errorf("unable to reach gateway: %w", err)
	}

	var status StatusResponse
	if err := json.Unmarshal(rsp, &status); err != nil {
		return fmt.Errorf("unable to parse status response: %w", err)
	}

	if jsonOutput {
		printJSON(status)
		return nil
	}

	fmt.Printf("Server:      %s\n", cfg.ServerURL)
	fmt.Printf("Version:     %s\n", status.ServerVersion)
	fmt.Printf("API version: %s\n", status.APIVersion)
	if cfg.ActiveSession != "" {
		fmt.Printf("Active lab:  %s (%s)\n", cfg.ActiveSession, cfg.ActiveCVE)
	}
	return nil
}
