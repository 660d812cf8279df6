package cli

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/cvelabhub/labhub/internal/labhub/backend"
)

// newReportsCmd groups the report commands.
func newReportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Manage your lab reports",
		Long: `List, upload, and delete lab write-up reports.

Examples:
  labhub reports list
  labhub reports upload writeup.pdf
  labhub reports delete rep-42`,
	}
	cmd.AddCommand(newReportsListCmd())
	cmd.AddCommand(newReportsUploadCmd())
	cmd.AddCommand(newReportsDeleteCmd())
	return cmd
}

// tokenUserID extracts the user id from the cached token without verifying
// the signature. The gateway re-verifies on every call; the CLI only needs
// the id to build the request path.
func tokenUserID(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("cached token is not parseable, log in again: %w", err)
	}
	userID, _ := claims["userId"].(string)
	if userID == "" {
		return "", fmt.Errorf("cached token carries no user id, log in again")
	}
	return userID, nil
}

func newReportsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireLogin()
			if err != nil {
				return err
			}
			userID, err := tokenUserID(cfg.AccessToken)
			if err != nil {
				return err
			}

			rsp, err := gatewayClient(cfg).Get(cmd.Context(),
				"/api/v1/users/"+userID+"/reports", nil, cfg.AccessToken)
			if err != nil {
				return fmt.Errorf("unable to list reports: %w", err)
			}

			if jsonOutput {
				printJSON(gjson.ParseBytes(rsp).Value())
				return nil
			}
			reports := gjson.GetBytes(rsp, "reports")
			if !reports.Exists() || len(reports.Array()) == 0 {
				fmt.Println("No reports.")
				return nil
			}
			for _, rep := range reports.Array() {
				fmt.Printf("%-12s %-18s %s\n",
					rep.Get("id").String(),
					rep.Get("cveId").String(),
					rep.Get("filename").String())
			}
			return nil
		},
	}
}

func newReportsUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a report file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireLogin()
			if err != nil {
				return err
			}
			userID, err := tokenUserID(cfg.AccessToken)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("unable to read %s: %w", args[0], err)
			}

			buf := &bytes.Buffer{}
			w := multipart.NewWriter(buf)
			fw, err := w.CreateFormFile("file", filepath.Base(args[0]))
			if err != nil {
				return fmt.Errorf("unable to build upload: %w", err)
			}
			if _, err := fw.Write(data); err != nil {
				return fmt.Errorf("unable to build upload: %w", err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("unable to build upload: %w", err)
			}

			rsp, _, err := gatewayClient(cfg).DoRequest(cmd.Context(), backend.RequestOptions{
				Method:      http.MethodPost,
				Path:        "/api/v1/users/" + userID + "/reports",
				Body:        buf.Bytes(),
				BearerToken: cfg.AccessToken,
				ContentType: w.FormDataContentType(),
			})
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}

			if jsonOutput {
				printJSON(gjson.ParseBytes(rsp).Value())
				return nil
			}
			okLabel.Printf("Uploaded %s\n", filepath.Base(args[0]))
			return nil
		},
	}
}

func newReportsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <report-id>",
		Short: "Delete a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireLogin()
			if err != nil {
				return err
			}
			userID, err := tokenUserID(cfg.AccessToken)
			if err != nil {
				return err
			}

			if _, err := gatewayClient(cfg).Delete(cmd.Context(),
				"/api/v1/users/"+userID+"/reports/"+args[0], cfg.AccessToken); err != nil {
				return fmt.Errorf("unable to delete report: %w", err)
			}

			if jsonOutput {
				printJSON(map[string]string{"status": "deleted", "report": args[0]})
				return nil
			}
			okLabel.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}
