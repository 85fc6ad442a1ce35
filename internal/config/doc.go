// Package config resolves adbfinder settings and fingerprint profiles.
//
// Config is assembled by viper from defaults, an optional YAML file,
// ADBFINDER_* environment variables and cobra flags. A Profile swaps the
// handshake frame and accepted command set; it is read from JSON-with-
// comments (via tidwall/jsonc) or YAML (via yaml.v3).
package config
