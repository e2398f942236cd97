package ffaudio

import (
	"bufio"
	"context"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/tphakala/ffaudio/internal/errors"
	"github.com/tphakala/ffaudio/internal/logger"
)

// Child is a started engine process as seen by the code that owns it.
type Child interface {
	// PID returns the operating system process id.
	PID() int
	// Stdout returns the decoded audio byte source.
	Stdout() io.Reader
	// Stderr returns the diagnostic text captured so far.
	Stderr() string
	// StderrDropped returns how many diagnostic bytes were discarded to keep
	// Stderr within its limit.
	StderrDropped() int64
	// Exited is closed once the process has exited and been reaped.
	Exited() <-chan struct{}
	// ExitCode is valid after Exited is closed. It is -1 when the process was
	// terminated by a signal.
	ExitCode() int
	// Kill forcefully terminates the process. It is safe to call after exit.
	Kill() error
	// Close closes the parent's end of the output pipe.
	Close() error
}

// Spawner starts engine processes. ExecSpawner is the production
// implementation; tests substitute their own.
type Spawner interface {
	Spawn(ctx context.Context, inv Invocation) (Child, error)
}

// ExecSpawner starts engines with os/exec.
type ExecSpawner struct {
	PipeBuffer      int           // size of the buffered reader on stdout
	DiagnosticLimit int           // max retained stderr bytes
	WaitDelay       time.Duration // bound on I/O draining after the process exits
}

// Spawn starts inv. The process is killed when ctx is done.
func (s *ExecSpawner) Spawn(ctx context.Context, inv Invocation) (Child, error) {
	cmd := exec.CommandContext(ctx, inv.Executable, inv.Args...)
	setupProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = s.WaitDelay

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	diag := newDiagnostics(s.DiagnosticLimit)
	cmd.Stdout = pw
	cmd.Stderr = diag

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, err
	}
	// The child holds its own copy of the write end
	_ = pw.Close()

	c := &execChild{
		cmd:    cmd,
		pipe:   pr,
		stdout: bufio.NewReaderSize(pr, s.PipeBuffer),
		diag:   diag,
		exited: make(chan struct{}),
	}
	go c.wait()

	return c, nil
}

// execChild is the os/exec backed Child
type execChild struct {
	cmd       *exec.Cmd
	pipe      *os.File
	stdout    *bufio.Reader
	diag      *diagnostics
	exited    chan struct{}
	exitCode  int
	closeOnce sync.Once
	closeErr  error
}

func (c *execChild) wait() {
	_ = c.cmd.Wait()
	c.exitCode = c.cmd.ProcessState.ExitCode()
	close(c.exited)
}

func (c *execChild) PID() int                { return c.cmd.Process.Pid }
func (c *execChild) Stdout() io.Reader       { return c.stdout }
func (c *execChild) Stderr() string          { return c.diag.String() }
func (c *execChild) StderrDropped() int64    { return c.diag.Dropped() }
func (c *execChild) Exited() <-chan struct{} { return c.exited }

func (c *execChild) ExitCode() int {
	<-c.exited
	return c.exitCode
}

func (c *execChild) Kill() error {
	select {
	case <-c.exited:
		return nil
	default:
	}
	return killProcessGroup(c.cmd)
}

func (c *execChild) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.pipe.Close()
	})
	return c.closeErr
}

// ExitStatus describes how an engine process ended.
type ExitStatus struct {
	Exited     bool // the process was reaped within the release wait
	SelfExited bool // the process had exited on its own before release killed it
	Code       int  // exit code, meaningful when Exited is true
}

// Failed reports whether the engine exited on its own with a non-zero code,
// the only case in which its diagnostics describe a real failure.
func (s ExitStatus) Failed() bool {
	return s.Exited && s.SelfExited && s.Code != 0
}

// Handle owns one running engine process. Exactly one caller owns a Handle and
// must call Release on every exit path.
type Handle struct {
	child       Child
	id          string
	log         logger.Logger
	recorder    Recorder
	releaseWait time.Duration
	started     time.Time

	releaseOnce sync.Once
	status      ExitStatus
}

// spawnHandle starts inv through the spawner. Failure to locate the executable
// is reported as ExecutableNotFound before any pipe is left open.
func (e *engine) spawnHandle(ctx context.Context, inv Invocation, path, id string, log logger.Logger) (*Handle, *ExtractError) {
	child, err := e.spawner.Spawn(ctx, inv)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			log.Error("ffmpeg executable not found",
				logger.String("executable", inv.Executable),
				logger.Error(err))
			notFound := executableNotFound(inv.Executable, err)
			notFound.Path = path
			return nil, notFound
		}
		log.Error("failed to start ffmpeg process",
			logger.String("executable", inv.Executable),
			logger.Error(err))
		return nil, &ExtractError{
			Kind:    EngineFailure,
			Message: "failed to start ffmpeg process",
			Path:    path,
			Err:     err,
		}
	}

	e.recorder.ProcessStarted()
	log.Debug("ffmpeg process started",
		logger.Int("pid", child.PID()),
		logger.Int("arg_count", len(inv.Args)))

	return &Handle{
		child:       child,
		id:          id,
		log:         log,
		recorder:    e.recorder,
		releaseWait: e.settings.FFmpeg.ReleaseWait,
		started:     time.Now(),
	}, nil
}

// Stdout returns the engine's decoded audio byte source.
func (h *Handle) Stdout() io.Reader { return h.child.Stdout() }

// Stderr returns the diagnostic text captured so far.
func (h *Handle) Stderr() string { return h.child.Stderr() }

// StderrDropped returns the number of diagnostic bytes lost to truncation.
func (h *Handle) StderrDropped() int64 { return h.child.StderrDropped() }

// Exited is closed once the engine has exited.
func (h *Handle) Exited() <-chan struct{} { return h.child.Exited() }

// PID returns the engine's process id.
func (h *Handle) PID() int { return h.child.PID() }

// exitedWithError reports whether the engine has already exited with a
// non-zero code, without blocking
func (h *Handle) exitedWithError() (int, bool) {
	select {
	case <-h.child.Exited():
		code := h.child.ExitCode()
		return code, code != 0
	default:
		return 0, false
	}
}

// awaitExit waits up to d for the engine to exit on its own.
func (h *Handle) awaitExit(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-h.child.Exited():
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Release closes the output pipe, kills the engine unless it already exited
// and waits a bounded time for it to be reaped. Every step runs even if an
// earlier one failed. Release never returns an error and is idempotent; later
// calls return the status of the first.
func (h *Handle) Release() ExitStatus {
	h.releaseOnce.Do(func() {
		h.status = h.release()
		h.recorder.ProcessReleased()
	})
	return h.status
}

func (h *Handle) release() ExitStatus {
	var status ExitStatus

	select {
	case <-h.child.Exited():
		status.SelfExited = true
	default:
	}

	if err := h.child.Close(); err != nil {
		h.log.Debug("failed to close ffmpeg output pipe",
			logger.Int("pid", h.child.PID()),
			logger.Error(err))
	}

	if !status.SelfExited {
		if err := h.child.Kill(); err != nil {
			h.log.Warn("failed to kill ffmpeg process",
				logger.Int("pid", h.child.PID()),
				logger.Error(err))
		}
	}

	timer := time.NewTimer(h.releaseWait)
	defer timer.Stop()

	select {
	case <-h.child.Exited():
		status.Exited = true
		status.Code = h.child.ExitCode()
	case <-timer.C:
		h.log.Warn("gave up waiting for ffmpeg process to exit",
			logger.Int("pid", h.child.PID()),
			logger.Duration("wait", h.releaseWait))
		return status
	}

	h.log.Debug("ffmpeg process released",
		logger.Int("pid", h.child.PID()),
		logger.Int("exit_code", status.Code),
		logger.Bool("self_exited", status.SelfExited),
		logger.Duration("lifetime", time.Since(h.started)))

	return status
}
