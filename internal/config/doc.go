// Package config loads the optional TOML configuration file that supplies
// defaults for command line flags.
package config
