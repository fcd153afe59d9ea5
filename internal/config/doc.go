// Package config loads and saves resmenu's TOML configuration.
//
// # Configuration Discovery
//
// Load resolves the file in this order:
//
//  1. An explicitly provided path (the --config flag)
//  2. Otherwise ~/.config/resmenu/config.toml
//  3. A missing file means built-in defaults
//  4. Empty fields fall back to their defaults
//
// # Default Values
//
//   - Data directory: ~/.resmenu (state.json, state.db, state.key)
//   - State backend: file
//   - Display backend: native
//   - Log file: /var/tmp/resmenu.log
//   - Log level: info
//   - Watch interval: 2s
//
// # TOML Format
//
//	data_dir = "~/.resmenu"
//	state_backend = "encrypted"
//	display_backend = "sim"
//	sim_fixture = "~/displays.toml"
//	log_path = "/var/tmp/resmenu.log"
//	log_level = "debug"
//	watch_interval = "5s"
//
// Tilde expansion is applied to data_dir, sim_fixture and log_path.
//
// # Error Handling
//
// Load returns errors for unreadable or malformed files, unknown backend
// names, a sim display backend without a fixture, and invalid durations.
// Command-line flags are applied by the caller after Load.
package config
