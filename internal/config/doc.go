// Package config handles loading and parsing the grrctl configuration file.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/grrctl/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing/empty, use defaults
//
// # TOML Format
//
//	api_url = "http://127.0.0.1:8000"
//	user_agent = "grrctl/0.1"
//	request_timeout_ms = 30000
//	poll_interval_ms = 1000
//	download_check_ms = 500
//	download_dir = "~/Downloads/grrctl"
//	cache_size = 128
//	log_level = "info"
//	theme = "Nightfox"
//
// Every field is optional. Durations are whole milliseconds; zero or negative
// values keep the default. cache_size = 0 disables the GET response cache.
// Tilde expansion is performed on download_dir.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
package config
