package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Status represents the current state of a managed process.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusRunning  Status = "running"
	StatusExited   Status = "exited"
	StatusFailed   Status = "failed"
	StatusStopping Status = "stopping"
)

// outputBufferSize is the buffer size for capturing subprocess stdout/stderr.
const outputBufferSize = 4096

// defaultGracefulTimeout is used when Config.GracefulTimeout is zero.
const defaultGracefulTimeout = 2 * time.Second

var (
	// ErrAlreadyRunning is returned by Start while the process is running.
	ErrAlreadyRunning = errors.New("process: already running")

	// ErrNotStarted is returned by Wait before Start.
	ErrNotStarted = errors.New("process: not started")
)

// Config holds configuration for a managed subprocess.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the executable, resolved through PATH if not absolute.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format).
	// If nil, inherits from parent process.
	Env []string

	// WorkDir is the working directory for the process.
	// If empty, inherits from parent process.
	WorkDir string

	// GracefulTimeout is how long Stop waits after SIGTERM before SIGKILL.
	GracefulTimeout time.Duration
}

// Logger defines the logging interface for the process manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager supervises one run of a subprocess: start it, stop it early, or
// wait for it to finish. A Manager can be started again once the previous
// run has ended.
//
// Thread Safety: All methods are safe for concurrent use.
type Manager struct {
	config Config
	logger Logger

	mu            sync.RWMutex
	cmd           *exec.Cmd
	status        Status
	exitErr       error
	startTime     time.Time
	endTime       time.Time
	stopRequested bool

	// done is closed when the current run ends.
	done chan struct{}
}

// NewManager creates a new process manager with the given configuration.
func NewManager(cfg Config) *Manager {
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = defaultGracefulTimeout
	}

	return &Manager{
		config: cfg,
		logger: noopLogger{},
		status: StatusStopped,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	m.logger = logger
}

// Start launches the subprocess and returns once it is running.
//
// The process is not tied to ctx after it starts: cancel it with Stop.
// ctx only bounds the start itself.
//
// Returns:
//   - error: ErrAlreadyRunning, ctx's error, or a wrapped exec failure
func (m *Manager) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == StatusRunning || m.status == StatusStopping {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, m.config.Name)
	}

	//nolint:gosec // Binary comes from operator configuration
	cmd := exec.Command(m.config.Binary, m.config.Args...)

	// Create a new process group so we can signal all children on shutdown
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if m.config.Env != nil {
		cmd.Env = append(os.Environ(), m.config.Env...)
	}
	if m.config.WorkDir != "" {
		cmd.Dir = m.config.WorkDir
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		m.status = StatusFailed
		m.exitErr = err
		return fmt.Errorf("starting %s: %w", m.config.Name, err)
	}

	m.cmd = cmd
	m.status = StatusRunning
	m.exitErr = nil
	m.stopRequested = false
	m.startTime = time.Now()
	m.endTime = time.Time{}
	m.done = make(chan struct{})

	m.logger.Debug("process started",
		"name", m.config.Name,
		"binary", m.config.Binary,
		"args", m.config.Args,
		"pid", cmd.Process.Pid,
	)

	var pipes sync.WaitGroup
	pipes.Add(2)
	go m.captureOutput("stdout", stdout, &pipes)
	go m.captureOutput("stderr", stderr, &pipes)
	go m.wait(cmd, m.done, &pipes)

	return nil
}

// captureOutput reads from the given reader and logs each chunk.
func (m *Manager) captureOutput(stream string, r io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, outputBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			m.logger.Debug("process output",
				"name", m.config.Name,
				"stream", stream,
				"output", string(buf[:n]),
			)
		}
		if err != nil {
			return
		}
	}
}

// wait reaps the process and records how it ended.
func (m *Manager) wait(cmd *exec.Cmd, done chan struct{}, pipes *sync.WaitGroup) {
	// Pipes must be drained before Wait closes them.
	pipes.Wait()
	err := cmd.Wait()

	m.mu.Lock()
	stopRequested := m.stopRequested
	m.endTime = time.Now()
	switch {
	case stopRequested:
		m.status = StatusStopped
		err = nil
	case err != nil:
		m.status = StatusFailed
	default:
		m.status = StatusExited
	}
	m.exitErr = err
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("process exited with error", "name", m.config.Name, "error", err)
	} else {
		m.logger.Debug("process ended", "name", m.config.Name, "stopped", stopRequested)
	}

	close(done)
}

// Wait blocks until the current run ends or ctx is done.
//
// Returns:
//   - error: The exit error (nil for a clean exit or a requested stop),
//     ErrNotStarted, or ctx's error
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.RLock()
	done := m.done
	m.mu.RUnlock()
	if done == nil {
		return ErrNotStarted
	}

	select {
	case <-done:
		return m.exitError()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed when the current run ends, or nil before Start.
func (m *Manager) Done() <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.done
}

// Stop ends the current run. It sends SIGTERM to the process group, then
// SIGKILL after GracefulTimeout. Stopping a process that is not running is a
// no-op.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if m.status != StatusRunning {
		m.mu.Unlock()
		return nil
	}
	m.stopRequested = true
	m.status = StatusStopping
	cmd := m.cmd
	done := m.done
	m.mu.Unlock()

	pid := cmd.Process.Pid
	m.logger.Debug("stopping process", "name", m.config.Name, "pid", pid)

	// Negative PID signals the process group created via Setpgid.
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		m.logger.Warn("failed to send SIGTERM to process group", "name", m.config.Name, "error", err)
	}

	timer := time.NewTimer(m.config.GracefulTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		m.logger.Warn("graceful stop timed out, sending SIGKILL",
			"name", m.config.Name,
			"timeout", m.config.GracefulTimeout,
		)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("killing process group %s: %w", m.config.Name, err)
	}
	<-done
	return nil
}

// Status returns the current status of the managed process.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsRunning returns true if the process is currently running.
func (m *Manager) IsRunning() bool {
	return m.Status() == StatusRunning
}

// exitError returns how the last run ended; nil while running.
func (m *Manager) exitError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.exitErr
}

// PID returns the process ID of the current or last run, or 0.
func (m *Manager) PID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cmd != nil && m.cmd.Process != nil {
		return m.cmd.Process.Pid
	}
	return 0
}

// Stats summarises the current or last run.
type Stats struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	PID       int           `json:"pid,omitempty"`
	Runtime   time.Duration `json:"runtime,omitempty"`
	LastError string        `json:"last_error,omitempty"`
}

// Stats returns current statistics for the process.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		Name:   m.config.Name,
		Status: m.status,
	}
	if m.cmd != nil && m.cmd.Process != nil {
		stats.PID = m.cmd.Process.Pid
	}
	switch {
	case m.startTime.IsZero():
	case m.endTime.IsZero():
		stats.Runtime = time.Since(m.startTime)
	default:
		stats.Runtime = m.endTime.Sub(m.startTime)
	}
	if m.exitErr != nil {
		stats.LastError = m.exitErr.Error()
	}
	return stats
}
