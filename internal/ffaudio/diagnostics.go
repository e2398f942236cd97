package ffaudio

import (
	"sync"

	"github.com/smallnest/ringbuffer"

	"github.com/tphakala/ffaudio/internal/conf"
)

// diagnostics collects an engine's stderr into a bounded ring buffer. When the
// buffer is full the oldest bytes are dropped, so the tail of the output,
// where FFmpeg reports the fatal error, is always retained.
type diagnostics struct {
	mu      sync.Mutex
	rb      *ringbuffer.RingBuffer
	dropped int64
}

func newDiagnostics(limit int) *diagnostics {
	if limit <= 0 {
		limit = conf.DefaultDiagnosticLimit
	}
	return &diagnostics{rb: ringbuffer.New(limit)}
}

// Write never fails so that the exec stderr copier keeps draining the pipe.
func (d *diagnostics) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(p)
	if capacity := d.rb.Capacity(); len(p) > capacity {
		d.dropped += int64(len(p) - capacity)
		p = p[len(p)-capacity:]
	}

	if free := d.rb.Free(); free < len(p) {
		discard := make([]byte, len(p)-free)
		m, _ := d.rb.Read(discard)
		d.dropped += int64(m)
	}

	_, _ = d.rb.Write(p)
	return n, nil
}

// String returns the retained diagnostic text without consuming it.
func (d *diagnostics) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	length := d.rb.Length()
	if length == 0 {
		return ""
	}

	buf := make([]byte, length)
	n, _ := d.rb.Read(buf)
	_, _ = d.rb.Write(buf[:n])
	return string(buf[:n])
}

// Dropped returns the number of bytes discarded to stay within the limit.
func (d *diagnostics) Dropped() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}
