// Package config provides application configuration loaded from TOML
// files with environment variable overrides.
//
// Library types across the module are configured through functional
// options; this package is the application-level layer that collects
// those settings in one file. Every section has working defaults, so a
// config file only needs the values it changes.
package config
