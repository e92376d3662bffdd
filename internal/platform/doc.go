// Package platform identifies the running host as one of the build targets
// the Tor Expert Bundle is published for and resolves per-host capabilities
// (default download directory, forceful kill support) at runtime.
package platform
