// Package config defines the explicit configuration schema for tubedigest.
//
// Configuration is a single TOML file with one section per subsystem. Every
// recognized option is a typed struct field with a default; unknown keys are
// rejected at load time so typos surface immediately instead of silently
// falling back to defaults.
package config
