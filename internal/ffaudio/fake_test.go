package ffaudio

import (
	"context"
	"encoding/binary"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/ffaudio/internal/conf"
	"github.com/tphakala/ffaudio/internal/logger"
)

// fakeChild is an in-memory engine process. Its stdout is an io.Pipe written
// by a behaviour function running in its own goroutine.
type fakeChild struct {
	pid    int
	pr     *io.PipeReader
	pw     *io.PipeWriter
	stderr  string
	dropped int64

	exited   chan struct{}
	exitOnce sync.Once
	code     int

	killed atomic.Bool
	closed atomic.Bool
}

// exit ends the fake process: stdout reaches EOF, then Exited is closed
func (c *fakeChild) exit(code int) {
	c.exitOnce.Do(func() {
		c.code = code
		_ = c.pw.Close()
		close(c.exited)
	})
}

func (c *fakeChild) PID() int                { return c.pid }
func (c *fakeChild) Stdout() io.Reader       { return c.pr }
func (c *fakeChild) Stderr() string          { return c.stderr }
func (c *fakeChild) StderrDropped() int64    { return c.dropped }
func (c *fakeChild) Exited() <-chan struct{} { return c.exited }

func (c *fakeChild) ExitCode() int {
	<-c.exited
	return c.code
}

func (c *fakeChild) Kill() error {
	c.killed.Store(true)
	c.exit(-1)
	return nil
}

func (c *fakeChild) Close() error {
	c.closed.Store(true)
	return c.pr.Close()
}

// behaviour drives a fake child after it is spawned
type behaviour func(c *fakeChild)

// emit writes data to stdout, then exits with code
func emit(data []byte, code int) behaviour {
	return func(c *fakeChild) {
		if len(data) > 0 {
			if _, err := c.pw.Write(data); err != nil {
				return
			}
		}
		c.exit(code)
	}
}

// emitThenHang writes data to stdout and then runs until killed
func emitThenHang(data []byte) behaviour {
	return func(c *fakeChild) {
		if len(data) > 0 {
			if _, err := c.pw.Write(data); err != nil {
				return
			}
		}
		<-c.exited
	}
}

// emitForever writes silence until the reader goes away
func emitForever() behaviour {
	return func(c *fakeChild) {
		chunk := make([]byte, 4096)
		for {
			if _, err := c.pw.Write(chunk); err != nil {
				return
			}
		}
	}
}

// fakeSpawner hands out fake children and records every invocation
type fakeSpawner struct {
	mu          sync.Mutex
	behave      behaviour
	stderr      string
	dropped     int64
	err         error
	children    []*fakeChild
	invocations []Invocation
}

func (s *fakeSpawner) Spawn(ctx context.Context, inv Invocation) (Child, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invocations = append(s.invocations, inv)
	if s.err != nil {
		return nil, s.err
	}

	pr, pw := io.Pipe()
	c := &fakeChild{
		pid:     10000 + len(s.children),
		pr:      pr,
		pw:      pw,
		stderr:  s.stderr,
		dropped: s.dropped,
		exited:  make(chan struct{}),
	}
	s.children = append(s.children, c)

	// Mirror exec.CommandContext: the process is killed when ctx is done
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Kill()
		case <-c.exited:
		}
	}()
	go s.behave(c)

	return c, nil
}

func (s *fakeSpawner) spawned() []*fakeChild {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeChild(nil), s.children...)
}

// assertReleased checks that every spawned child has its pipe closed and has
// exited, the resource guarantee every operation must give
func assertReleased(t *testing.T, s *fakeSpawner) {
	t.Helper()
	for _, c := range s.spawned() {
		assert.True(t, c.closed.Load(), "stdout of child %d not closed", c.pid)
		select {
		case <-c.exited:
		default:
			t.Errorf("child %d still running", c.pid)
		}
	}
}

// testSettings returns defaults with short waits
func testSettings() conf.Settings {
	s := conf.Default()
	s.FFmpeg.ReleaseWait = 2 * time.Second
	s.FFmpeg.ExitWait = 2 * time.Second
	return s
}

// testLogger discards output but keeps every level enabled so log calls run
func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelTrace, time.UTC)
}

// pcm encodes samples as signed 16-bit little-endian bytes
func pcm(samples ...int16) []byte {
	data := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(s))
	}
	return data
}

// silence returns d worth of zero PCM at the output sample rate
func silence(d time.Duration) []byte {
	return make([]byte, samplesFor(d, conf.SampleRate)*conf.BytesPerSample)
}

// countingRecorder is a Recorder that tallies calls
type countingRecorder struct {
	mu          sync.Mutex
	started     int
	released    int
	samples     int
	bytes       int
	invocations []string
	errors      []string
}

func (r *countingRecorder) ProcessStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *countingRecorder) ProcessReleased() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released++
}

func (r *countingRecorder) RecordInvocation(operation, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invocations = append(r.invocations, operation+"/"+status)
}

func (r *countingRecorder) RecordError(operation, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, operation+"/"+kind)
}

func (r *countingRecorder) AddSamples(_ string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples += n
}

func (r *countingRecorder) AddBytes(_ string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bytes += n
}
