// Package config handles configuration loading, parsing, and validation
// from environment variables (and an optional config file), giving the
// rest of the application type-safe access to settings without coupling
// business logic to viper or validator directly.
package config
