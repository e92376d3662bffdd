// Package supervisor starts and terminates a local tor process from an
// installed Tor Expert Bundle.
//
// Setup runs the resolve/download pipeline and yields a Tor instance. Run
// spawns the binary with captured standard output and blocks until the
// bootstrap marker appears in the log stream, handing the stream to a
// background drain goroutine afterwards so the pipe never stalls the child.
// Kill delivers the platform's forceful termination signal; Close is the
// best-effort teardown hook that swallows termination failures.
package supervisor
