package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

// newIncidentsCmd groups the analysis incident views.
func newIncidentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "incidents",
		Short: "Browse analysis incidents",
		Long: `List and inspect incidents produced by the analysis service.

Examples:
  labhub incidents list --limit 25
  labhub incidents get inc-42`,
	}
	cmd.AddCommand(newIncidentsListCmd())
	cmd.AddCommand(newIncidentsGetCmd())
	return cmd
}

func newIncidentsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent incidents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			rsp, err := gatewayClient(cfg).Get(cmd.Context(), "/api/ai/incidents",
				map[string]string{"limit": strconv.Itoa(limit)}, "")
			if err != nil {
				return fmt.Errorf("unable to list incidents: %w", err)
			}

			if jsonOutput {
				printJSON(gjson.ParseBytes(rsp).Value())
				return nil
			}

			incidents := gjson.GetBytes(rsp, "incidents")
			if !incidents.Exists() || len(incidents.Array()) == 0 {
				fmt.Println("No incidents.")
				return nil
			}
			for _, inc := range incidents.Array() {
				fmt.Printf("%-12s %-10s %s\n",
					inc.Get("id").String(),
					inc.Get("severity").String(),
					inc.Get("alarm_name").String())
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 100, "Maximum number of incidents to list")
	return cmd
}

func newIncidentsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <incident-id>",
		Short: "Show one incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			rsp, err := gatewayClient(cfg).Get(cmd.Context(), "/api/ai/incidents/"+args[0], nil, cfg.AccessToken)
			if err != nil {
				return fmt.Errorf("unable to fetch incident: %w", err)
			}

			printJSON(gjson.ParseBytes(rsp).Value())
			return nil
		},
	}
}
