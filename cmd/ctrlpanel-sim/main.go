// Ctrlpanel-sim simulates a controllable device.
//
// It serves the four demo pages of the reference firmware over TCP so the
// ctrlpanel client can be exercised without hardware: LED buttons, LED
// switches, a login form (admin/admin) and live readouts.
//
// Usage:
//
//	ctrlpanel-sim serve [flags]
//
// See 'ctrlpanel-sim serve --help' for available options.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/ctrlpanel/internal/logging"
	"github.com/muurk/ctrlpanel/internal/protocol"
	"github.com/muurk/ctrlpanel/internal/simulator"
	"github.com/muurk/ctrlpanel/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ctrlpanel-sim",
	Short: "Control panel device simulator",
	Long: `A device simulator for the ctrlpanel client.

It speaks the device side of the control-panel protocol: it greets every
client with its protocol version and start page, serves page descriptions,
sends value blobs and reacts to SET commands the way the reference firmware
does.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command and flags
var (
	host         string
	port         int
	lengthPrefix bool
	idleTimeout  time.Duration
	maxFrameSize int
	logLevel     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the simulated device",
	Long: `Start the simulated device and accept client connections.

Deployed devices read client commands as a stream of concatenated JSON
objects. Use --length-prefix to read them as 4-byte length-prefixed frames
instead; the client must then be run with send_length_prefix enabled.`,
	Example: `  # Serve on the firmware's port
  ctrlpanel-sim serve

  # Serve on localhost only, with frame dumps
  ctrlpanel-sim serve --host 127.0.0.1 --log-level debug

  # Expect length-prefixed commands
  ctrlpanel-sim serve --length-prefix`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&host, "host", "", "Listen address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&port, "port", simulator.DefaultPort, "Listen port")
	serveCmd.Flags().BoolVar(&lengthPrefix, "length-prefix", false, "Read client commands as length-prefixed frames")
	serveCmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 0, "Close connections idle for this long (0 = never)")
	serveCmd.Flags().IntVar(&maxFrameSize, "max-frame-size", protocol.DefaultMaxFrameSize, "Largest accepted command frame in bytes")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("invalid port %d", port)
	}
	if err := logging.Initialize(logLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	config := &simulator.Config{
		Host:         host,
		Port:         port,
		LengthPrefix: lengthPrefix,
		IdleTimeout:  idleTimeout,
		MaxFrameSize: maxFrameSize,
	}

	srv := simulator.New(config, simulator.NewDemoDevice())
	return srv.Start()
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ctrlpanel-sim %s (commit: %s)\n", version.Version, version.Commit)
	},
}
