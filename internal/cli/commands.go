// Package cli implements the labhub command line client for the LabHub
// gateway: login, lab session control, incident views, and server status.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	jsonOutput bool
	configFile string
)

var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)
var warnLabel = color.New(color.FgYellow)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "labhub [command] [flags]",
	Short: "LabHub CLI - control CVE lab sessions from the terminal",
	Long: `LabHub CLI is a command line client for the CVE LabHub gateway.
It starts, extends, and terminates time-boxed lab sessions, browses
analysis incidents, and shows server status.

Examples:
  # Log in to the gateway
  labhub login --email you@example.com

  # Start a lab for a CVE
  labhub lab start CVE-2021-44228

  # Extend the active lab session
  labhub lab extend

  # List recent analysis incidents
  labhub incidents list --limit 25`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to configuration file to override default")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLabCmd())
	rootCmd.AddCommand(newIncidentsCmd())
	rootCmd.AddCommand(newReportsCmd())
	rootCmd.AddCommand(statusCmd)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	rootCmd.SilenceErrors = true // Prevent Cobra from printing the error
	rootCmd.SilenceUsage = true  // Prevent Cobra from printing usage on error

	err := rootCmd.Execute()
	if err != nil {
		if errors.Is(err, ErrAlreadyHandled) {
			os.Exit(1)
		}
		if jsonOutput {
			printJSON(map[string]string{
				"error": err.Error(),
			})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// printJSON prints the given value as indented JSON to stdout
func printJSON(data any) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Println(string(out))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(map[string]string{"version": Version})
				return
			}
			fmt.Printf("labhub version %s\n", Version)
		},
	}
}

// Version is the CLI release version.
const Version = "0.1.0"
