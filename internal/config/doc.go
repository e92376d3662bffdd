// Package config loads, validates, and persists the YAML settings shared by
// the tor-runner and tor-fetch binaries: download directory, version
// selection, index URL, HTTP timeout, and log level.
package config
