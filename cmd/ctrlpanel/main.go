// Ctrlpanel is a remote control panel for embedded devices.
//
// A device describes its user interface as pages of widgets (labels,
// buttons, switches, text entries and value readouts) and streams their
// values over TCP. Ctrlpanel renders the active page in the terminal and
// sends user interactions back to the device.
//
// Usage:
//
//	ctrlpanel [command] [flags]
//
// Running without arguments opens the saved device list.
// See 'ctrlpanel --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/ctrlpanel/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ctrlpanel",
	Short: "Remote control panel for embedded devices",
	Long: `A terminal client for devices that publish a widget-based control panel.

The device describes each page of its interface once; ctrlpanel caches the
descriptions per device, polls the widget values and sends button presses,
switch changes and text entries back.

If no command is specified, the saved device list opens.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: open the device list
		return runTUI(nil)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ctrlpanel %s (commit: %s)\n", version.Version, version.Commit)
	},
}
