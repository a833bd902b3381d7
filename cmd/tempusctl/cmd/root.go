// Package cmd contains the CLI commands for tempusctl.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultDBPath = "data/tempus.db"

var (
	verbose bool
	output  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tempusctl",
	Short: "Tempus admin tool",
	Long: `tempusctl manages a Tempus installation directly through the
database file. It is intended for system administrators working outside
of the HTTP API.

Examples:
  # List all users with their tenant and role
  tempusctl user list

  # Reset a user's password
  tempusctl user passwd --email admin@example.com

  # List tenants
  tempusctl tenant list`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}

// PrintError prints an error message and exits if fatal is true.
func PrintError(msg string, fatal bool) {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	if fatal {
		os.Exit(1)
	}
}
