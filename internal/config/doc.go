// Package config provides user configuration for ctrlpanel: client
// settings and the list of known devices.
//
// # File Locations
//
// Files live in the platform configuration directory:
//   - Linux: $XDG_CONFIG_HOME/ctrlpanel or $HOME/.config/ctrlpanel
//   - macOS: $HOME/.config/ctrlpanel
//   - Windows: %LOCALAPPDATA%\ctrlpanel
//
// settings.yaml (optional) tunes the client. Every key has a default and can
// be overridden with a CTRLPANEL_ environment variable:
//
//	connect_timeout: 10s
//	io_timeout: 5s
//	send_pacing: 1s
//	send_length_prefix: false
//	max_frame_size: 1048576
//	tick_interval: 50ms
//	cache_dir: ~/.config/ctrlpanel/saved_pages
//
// remotes.yaml holds the known devices:
//
//	version: 1
//	next_id: 3
//	remotes:
//	  - name: Bench board
//	    address: 192.168.1.40:9874
//	  - name: Remote2
//	    address: 10.0.0.5:9874
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// an empty name becomes Remote<N>
//	if _, err := registry.Add("", "192.168.1.40:9874"); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// Registry values are not safe for concurrent mutation. Save is serialized
// by a package mutex and writes atomically.
package config
