// Package config loads, normalizes, and validates qbridge configuration.
//
// Configuration is read from TOML (~/.config/qbridge/config.toml or
// ./qbridge.toml), overlaid with QBRIDGE_* environment variables, and then
// normalized so path fields are absolute before validation runs. Callers
// should always go through Load so the daemon and the CLI agree on socket and
// bus locations.
package config
