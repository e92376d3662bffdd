// Package runner orchestrates the tor-runner binary: it loads settings,
// runs the download pipeline, supervises the tor process until shutdown,
// and terminates it on exit.
package runner
