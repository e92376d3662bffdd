package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/tor-expert-runner/internal/bundle"
	"github.com/oshokin/tor-expert-runner/internal/logger"
	"github.com/oshokin/tor-expert-runner/internal/platform"
	"github.com/oshokin/tor-expert-runner/internal/repository/receipt"
	"github.com/oshokin/tor-expert-runner/internal/resolver"
)

// readyMarker is printed by tor when its bootstrap sequence completes.
// Tor offers no structured readiness signal, so this exact line is the
// only reliable marker.
const readyMarker = "Bootstrapped 100% (done): Done"

// Sentinel errors distinguishing the failure modes of process supervision.
var (
	// ErrSpawnFailed marks a missing or non-executable tor binary.
	ErrSpawnFailed = errors.New("failed to spawn the tor process")
	// ErrNoProcessID marks a spawned process without a reported identifier.
	ErrNoProcessID = errors.New("no process id for the tor process")
	// ErrProcessExitedEarly marks a tor process that ended before signaling readiness.
	ErrProcessExitedEarly = errors.New("tor exited before completing bootstrap")
	// ErrNoActiveProcess marks a kill with no recorded process.
	ErrNoActiveProcess = errors.New("no active tor process")
)

// IsReadyLine reports whether a tor log line signals completed bootstrap.
// Matching is exact substring containment; tor guarantees no other stable
// machine-readable marker.
func IsReadyLine(line string) bool {
	return strings.Contains(line, readyMarker)
}

// Tor supervises one local tor process produced from an installed bundle.
// Only one live process per instance; the recorded process id is owned
// exclusively by this supervisor.
type Tor struct {
	layout  bundle.Layout
	version string
	caps    platform.Capabilities

	// mu guards pid.
	mu  sync.Mutex
	pid int
}

// Options configure Setup.
type Options struct {
	// DownloadDir overrides the platform default download directory.
	DownloadDir string
	// VersionSelection picks the bundle version. Zero value pins the
	// default version.
	VersionSelection resolver.Selection
	// Lister overrides the remote index client used for latest/stable
	// resolution. Nil selects the production index.
	Lister resolver.Lister
	// DownloaderOptions are passed through to the bundle downloader.
	DownloaderOptions []bundle.Option
}

// Setup resolves the version, downloads and unpacks the bundle, and returns
// a supervisor ready to run the installed binary.
func Setup(ctx context.Context, opts *Options) (*Tor, error) {
	if opts == nil {
		opts = &Options{}
	}

	target, err := platform.Detect()
	if err != nil {
		return nil, err
	}

	caps, err := platform.DetectCapabilities()
	if err != nil {
		return nil, err
	}

	downloadDir := opts.DownloadDir
	if downloadDir == "" {
		downloadDir = caps.DefaultDownloadDir
	}

	lister := opts.Lister
	if lister == nil {
		lister = resolver.NewIndexClient()
	}

	version, err := resolver.New(lister).Resolve(ctx, opts.VersionSelection)
	if err != nil {
		return nil, err
	}

	layout := bundle.Layout{
		DownloadDir: downloadDir,
		Target:      target,
		Version:     version,
	}

	if err = bundle.NewDownloader(layout, opts.DownloaderOptions...).Download(ctx); err != nil {
		return nil, err
	}

	saveReceipt(ctx, layout)

	return New(layout, caps), nil
}

// New creates a supervisor for an already installed layout.
// Callers that need the full resolve/download pipeline should use Setup.
func New(layout bundle.Layout, caps platform.Capabilities) *Tor {
	return &Tor{
		layout:  layout,
		version: layout.Version,
		caps:    caps,
	}
}

// Version returns the resolved bundle version this supervisor runs.
func (t *Tor) Version() string {
	return t.version
}

// Layout returns the installation layout the supervisor spawns from.
func (t *Tor) Layout() bundle.Layout {
	return t.layout
}

// PID returns the recorded process identifier, if a process is live.
func (t *Tor) PID() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.pid, t.pid != 0
}

// Run spawns the tor binary and blocks until its log output contains the
// bootstrap marker, returning the process identifier.
//
// The child's standard output keeps being drained by a background goroutine
// after Run returns so the OS pipe buffer never fills and stalls tor. There
// is no internal readiness timeout; bind ctx to a deadline to bound the wait.
func (t *Tor) Run(ctx context.Context) (int, error) {
	binaryPath := t.layout.BinaryPath()

	logger.InfoKV(ctx, "Starting tor", "binary", binaryPath, "version", t.version)

	cmd := exec.CommandContext(ctx, binaryPath)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSpawnFailed, err)
	}

	if err = cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSpawnFailed, err)
	}

	if cmd.Process == nil || cmd.Process.Pid <= 0 {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}

		return 0, ErrNoProcessID
	}

	pid := cmd.Process.Pid

	t.mu.Lock()
	t.pid = pid
	t.mu.Unlock()

	logger.InfoKV(ctx, "Waiting for tor to bootstrap", "pid", pid)

	if err = t.awaitBootstrap(ctx, cmd, stdout); err != nil {
		t.mu.Lock()
		t.pid = 0
		t.mu.Unlock()

		return 0, err
	}

	logger.InfoKV(ctx, "Tor is ready", "pid", pid, "version", t.version)

	return pid, nil
}

// awaitBootstrap reads the child's output line by line until the readiness
// marker appears, then hands the stream to a background drain goroutine.
// A stream that ends first means the process exited before becoming ready.
func (t *Tor) awaitBootstrap(ctx context.Context, cmd *exec.Cmd, stdout io.Reader) error {
	scanner := bufio.NewScanner(stdout)

	for scanner.Scan() {
		line := scanner.Text()

		logger.Debugf(ctx, "tor: %s", line)

		if IsReadyLine(line) {
			go drainAndReap(cmd, stdout)

			return nil
		}
	}

	// Stream ended without the marker. Reap the child off the caller's path.
	go func() {
		_ = cmd.Wait()
	}()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrProcessExitedEarly, err)
	}

	return ErrProcessExitedEarly
}

// drainAndReap keeps the child's output flowing and collects its exit status.
func drainAndReap(cmd *exec.Cmd, stdout io.Reader) {
	_, _ = io.Copy(io.Discard, stdout)
	_ = cmd.Wait()
}

// IsRunning reports whether the recorded process is still alive and still
// looks like the supervised binary. Without a recorded process it reports
// false with no error.
func (t *Tor) IsRunning() (bool, error) {
	pid, ok := t.PID()
	if !ok {
		return false, nil
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		return false, fmt.Errorf("look up process %d: %w", pid, err)
	}

	if process == nil {
		return false, nil
	}

	// Identity check: the pid may have been recycled by another program.
	binaryName := filepath.Base(t.layout.BinaryPath())

	return process.Executable() == binaryName, nil
}

// Kill sends the forceful termination signal to the recorded process and
// clears the process identifier.
//
// On hosts without forceful signal support (Windows) this logs and reports
// success without delivering a signal. The contract is signal delivery, not
// waiting for the process to be reaped.
func (t *Tor) Kill(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pid == 0 {
		return ErrNoActiveProcess
	}

	if !t.caps.CanForceKill {
		logger.WarnKV(ctx, "Forceful termination is not supported on this platform, skipping",
			"pid", t.pid)

		t.pid = 0

		return nil
	}

	process, err := os.FindProcess(t.pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", t.pid, err)
	}

	if err = process.Kill(); err != nil {
		return fmt.Errorf("kill process %d: %w", t.pid, err)
	}

	logger.InfoKV(ctx, "Killed tor", "pid", t.pid)

	t.pid = 0

	return nil
}

// Close performs best-effort termination and always reports success, so
// cleanup can never mask the outcome of the operation that triggered it.
func (t *Tor) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := t.Kill(ctx); err != nil && !errors.Is(err, ErrNoActiveProcess) {
		logger.WarnKV(ctx, "Best-effort tor termination failed", "error", err)
	}

	return nil
}

// saveReceipt records the completed installation. Failures only log: the
// receipt is informational and must not fail the download.
func saveReceipt(ctx context.Context, layout bundle.Layout) {
	rec := &receipt.Receipt{
		Version:     layout.Version,
		Target:      layout.Target.String(),
		ArchiveName: layout.ArchiveName(),
		InstalledAt: time.Now().UTC(),
	}

	if err := receipt.NewFileRepository(layout.DownloadDir).Save(ctx, rec); err != nil {
		logger.WarnKV(ctx, "Failed to write the installation receipt", "error", err)
	}
}
