package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/ctrlpanel/internal/config"
	"github.com/muurk/ctrlpanel/internal/logging"
	"github.com/muurk/ctrlpanel/internal/page"
	"github.com/muurk/ctrlpanel/internal/pagecache"
	"github.com/muurk/ctrlpanel/internal/remote"
	"github.com/muurk/ctrlpanel/internal/session"
	"github.com/muurk/ctrlpanel/internal/transport"
	"github.com/muurk/ctrlpanel/internal/tui"
	"github.com/muurk/ctrlpanel/internal/widget"
)

// Global flags
var (
	settingsPath string
	registryPath string
	logLevel     string
	logFile      string
	outputFormat string
)

// loaded by loadSettings
var settings *config.Settings

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "config", "", "Settings file (default <config dir>/settings.yaml)")
	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", "", "Device registry file (default <config dir>/remotes.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file")

	rootCmd.PersistentPreRunE = loadSettings

	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(cacheCmd)
}

func loadSettings(cmd *cobra.Command, args []string) error {
	s, err := config.LoadSettings(settingsPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		s.LogLevel = logLevel
	}
	if logFile != "" {
		s.LogFile = logFile
	}
	settings = s
	return nil
}

// initLogging starts the logger. Interactive commands never log to the
// terminal; without a log file they stay silent.
func initLogging(interactive bool) error {
	switch {
	case settings.LogFile != "":
		if err := os.MkdirAll(filepath.Dir(settings.LogFile), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		level := settings.LogLevel
		if level == "" {
			level = "info"
		}
		return logging.InitializeWithOutput(level, []string{settings.LogFile})
	case interactive:
		logging.SetLogger(zap.NewNop())
		return nil
	default:
		return logging.InitializeWithOutput(settings.LogLevel, []string{"stderr"})
	}
}

func transportOptions() transport.Options {
	return transport.Options{
		ConnectTimeout: settings.ConnectTimeout,
		IOTimeout:      settings.IOTimeout,
		SendPacing:     settings.SendPacing,
		LengthPrefix:   settings.SendLengthPrefix,
		MaxFrameSize:   settings.MaxFrameSize,
	}
}

func openRegistry() (*config.Registry, error) {
	if registryPath != "" {
		return config.LoadRegistryFrom(registryPath)
	}
	return config.LoadRegistry()
}

// resolveRemote finds target by name or address. Unknown addresses are
// added to the registry so they show up in the device list next time.
func resolveRemote(registry *config.Registry, target string) (*config.Remote, error) {
	if r := registry.Get(target); r != nil {
		return r, nil
	}

	addr, err := remote.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%q is neither a saved device nor an address: %w", target, err)
	}
	if r := registry.FindByAddress(addr); r != nil {
		return r, nil
	}

	r, err := registry.Add("", addr.String())
	if err != nil {
		return nil, err
	}
	if err := registry.Save(); err != nil {
		return nil, fmt.Errorf("failed to save registry: %w", err)
	}
	return r, nil
}

func runTUI(target *string) error {
	if err := initLogging(true); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	registry, err := openRegistry()
	if err != nil {
		return err
	}
	cache, err := pagecache.Open(settings.CacheDir)
	if err != nil {
		return err
	}

	opts := tui.Options{
		Registry:     registry,
		Cache:        cache,
		Transport:    transportOptions(),
		TickInterval: settings.TickInterval,
	}
	if target != nil {
		if opts.Connect, err = resolveRemote(registry, *target); err != nil {
			return err
		}
	}
	return tui.Run(opts)
}

// connectCmd opens the control screen for one device
var connectCmd = &cobra.Command{
	Use:   "connect <name|ip:port>",
	Short: "Connect to a device",
	Long: `Open the control panel of a device straight away.

The device is looked up by its saved name or its address. Addresses that are
not in the registry yet are saved with a generated name.`,
	Example: `  # Connect to a saved device
  ctrlpanel connect Remote1

  # Connect by address
  ctrlpanel connect 192.168.1.10:9874`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(&args[0])
	},
}

// Monitor flags
var (
	monitorInterval time.Duration
	monitorCount    int
)

// monitorCmd runs a session without the TUI and prints the page values
var monitorCmd = &cobra.Command{
	Use:   "monitor <name|ip:port>",
	Short: "Print a device's values without the interactive UI",
	Long: `Connect to a device, follow its active page and print the widget values
periodically. Nothing is sent to the device besides POLL and GET, so monitor
is safe to run next to other clients.

Logs go to stderr; values go to stdout.`,
	Example: `  # Print values every second until interrupted
  ctrlpanel monitor 192.168.1.10:9874

  # Five JSON snapshots
  ctrlpanel monitor Remote1 --count 5 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", time.Second, "Time between printed snapshots")
	monitorCmd.Flags().IntVar(&monitorCount, "count", 0, "Stop after this many snapshots (0 = until interrupted)")
	monitorCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")
}

// snapshot is one printed state of the active page
type snapshot struct {
	Time    time.Time      `json:"time"`
	Page    int            `json:"page"`
	Widgets []widgetReport `json:"widgets"`
}

type widgetReport struct {
	ID      int    `json:"id"`
	Kind    string `json:"kind"`
	Text    string `json:"text"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

func takeSnapshot(pages *page.Manager) (snapshot, bool) {
	id, ok := pages.ActivePage()
	if !ok {
		return snapshot{}, false
	}
	s := snapshot{Time: time.Now(), Page: id}
	for _, w := range pages.Widgets() {
		if w.Kind() == widget.KindLabel {
			continue
		}
		s.Widgets = append(s.Widgets, widgetReport{
			ID:      w.ElementID(),
			Kind:    w.Kind().String(),
			Text:    w.Spec().Text,
			Value:   w.Display(),
			Enabled: w.Enabled(),
		})
	}
	return s, true
}

func printSnapshot(s snapshot) error {
	if outputFormat == "json" {
		data, err := json.Marshal(s)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%s page %d\n", s.Time.Format(time.TimeOnly), s.Page)
	for _, w := range s.Widgets {
		state := ""
		if !w.Enabled {
			state = " (disabled)"
		}
		fmt.Printf("  [%d] %-7s %-20s %s%s\n", w.ID, w.Kind, w.Text, w.Value, state)
	}
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if outputFormat != "detailed" && outputFormat != "json" {
		return fmt.Errorf("unknown format %q", outputFormat)
	}
	if err := initLogging(false); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	registry, err := openRegistry()
	if err != nil {
		return err
	}
	r, err := resolveRemote(registry, args[0])
	if err != nil {
		return err
	}
	addr, err := r.RemoteAddress()
	if err != nil {
		return err
	}
	cache, err := pagecache.Open(settings.CacheDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	link := transport.New(addr, transportOptions())
	link.Connect()
	defer link.Close()

	select {
	case <-link.Connected().Done():
	case <-link.ConnectionFailed().Done():
		return fmt.Errorf("connection to %s failed: %w", r.Name, link.Err())
	case <-ctx.Done():
		return nil
	}

	registry.MarkConnected(r.Name)
	if err := registry.Save(); err != nil {
		logging.Warn("Failed to save registry", zap.Error(err))
	}

	pages := page.NewManager(cache, addr)
	ctrl := session.New(link, pages)
	ctrl.OnVersion(func(v any) {
		logging.Info("Device protocol version", zap.Any("version", v))
	})
	ctrl.OnError(func(msg string) {
		fmt.Fprintf(os.Stderr, "device error: %s\n", msg)
	})

	// snapshots are taken from the OnValues hook, which runs on Run's goroutine
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		printed  int
		lastShot time.Time
		printErr error
	)
	ctrl.OnValues(func() {
		if time.Since(lastShot) < monitorInterval {
			return
		}
		s, ok := takeSnapshot(pages)
		if !ok {
			return
		}
		lastShot = s.Time
		if printErr = printSnapshot(s); printErr != nil {
			cancel()
			return
		}
		printed++
		if monitorCount > 0 && printed >= monitorCount {
			cancel()
		}
	})

	err = ctrl.Run(runCtx, settings.TickInterval)
	switch {
	case printErr != nil:
		return printErr
	case errors.Is(err, session.ErrClosed):
		fmt.Fprintf(os.Stderr, "%s closed the connection\n", r.Name)
		return nil
	case errors.Is(err, context.Canceled):
		ctrl.Terminate()
		return nil
	default:
		return fmt.Errorf("connection to %s lost: %w", r.Name, err)
	}
}

// devicesCmd manages the device registry
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage saved devices",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved devices",
	Example: `  ctrlpanel devices list
  ctrlpanel devices list --format json`,
	Args: cobra.NoArgs,
	RunE: runDevicesList,
}

var devicesAddCmd = &cobra.Command{
	Use:   "add <ip:port> [name]",
	Short: "Save a device",
	Long: `Save a device under a name. Without a name one is generated
(Remote1, Remote2, ...).`,
	Example: `  ctrlpanel devices add 192.168.1.10:9874
  ctrlpanel devices add 192.168.1.10:9874 Workbench`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDevicesAdd,
}

var devicesRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Forget a saved device",
	Args:    cobra.ExactArgs(1),
	RunE:    runDevicesRemove,
}

func init() {
	devicesListCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")

	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesAddCmd)
	devicesCmd.AddCommand(devicesRemoveCmd)
}

func runDevicesList(cmd *cobra.Command, args []string) error {
	registry, err := openRegistry()
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		data, err := json.MarshalIndent(registry.Remotes, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(registry.Remotes) == 0 {
		fmt.Println("No saved devices.")
		fmt.Println("\nUse 'ctrlpanel devices add <ip:port>' to save one.")
		return nil
	}

	for i, r := range registry.Remotes {
		fmt.Printf("%d. %s\n", i+1, r.Name)
		fmt.Printf("   Address:   %s\n", r.Address)
		if r.LastConnected.IsZero() {
			fmt.Printf("   Connected: never\n")
		} else {
			fmt.Printf("   Connected: %s\n", r.LastConnected.Local().Format(time.DateTime))
		}
	}
	return nil
}

func runDevicesAdd(cmd *cobra.Command, args []string) error {
	registry, err := openRegistry()
	if err != nil {
		return err
	}

	name := ""
	if len(args) == 2 {
		name = args[1]
	}
	r, err := registry.Add(name, args[0])
	if err != nil {
		return err
	}
	if err := registry.Save(); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}

	fmt.Printf("Saved %s (%s)\n", r.Name, r.Address)
	return nil
}

func runDevicesRemove(cmd *cobra.Command, args []string) error {
	registry, err := openRegistry()
	if err != nil {
		return err
	}
	if !registry.Remove(args[0]) {
		return fmt.Errorf("no saved device named %q", args[0])
	}
	if err := registry.Save(); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}

	fmt.Printf("Removed %s\n", args[0])
	return nil
}

// cacheCmd inspects the page description cache
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear cached page descriptions",
	Long: `Page descriptions are cached per device address and page id so they
are only fetched once. Clear the cache after updating a device's firmware if
its pages changed without changing their widget count.`,
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the cache directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(settings.CacheDir)
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached pages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := pagecache.Open(settings.CacheDir)
		if err != nil {
			return err
		}
		entries, err := cache.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Cache is empty.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%-24s page %-4d %6d bytes\n", e.Remote, e.PageID, e.Size)
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [name|ip:port]",
	Short: "Delete cached pages",
	Long:  `Delete every cached page, or only those of one device.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cachePathCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cache, err := pagecache.Open(settings.CacheDir)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		if err := cache.Clear(); err != nil {
			return err
		}
		fmt.Printf("Cleared %s\n", cache.Root())
		return nil
	}

	addr, err := cacheTarget(args[0])
	if err != nil {
		return err
	}
	if err := cache.ClearRemote(addr); err != nil {
		return err
	}
	fmt.Printf("Cleared cached pages of %s\n", addr)
	return nil
}

// cacheTarget resolves an address or a saved name without adding to the registry.
func cacheTarget(target string) (remote.Address, error) {
	if addr, err := remote.Parse(target); err == nil {
		return addr, nil
	}

	registry, err := openRegistry()
	if err != nil {
		return remote.Address{}, err
	}
	r := registry.Get(target)
	if r == nil {
		return remote.Address{}, fmt.Errorf("%q is neither a saved device nor an address", target)
	}
	return r.RemoteAddress()
}
