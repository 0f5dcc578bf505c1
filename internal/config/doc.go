// Package config holds the runtime configuration for the railcrack service
// and its offline tools: defaults, the YAML config file, the optional dotenv
// file and environment overrides.
package config
