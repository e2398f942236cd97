// Package wavout writes normalized float32 samples as 16-bit PCM WAV files.
package wavout

import (
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/ffaudio/internal/conf"
	"github.com/tphakala/ffaudio/internal/errors"
)

// wavAudioFormatPCM is the WAVE format tag for integer PCM
const wavAudioFormatPCM = 1

// Writer encodes sample chunks into a mono 16-bit WAV stream. The RIFF header
// is finalized on Close, which is why the destination must be seekable.
type Writer struct {
	enc     *wav.Encoder
	format  *audio.Format
	buf     *audio.IntBuffer
	written int
	closed  bool
}

// NewWriter returns a Writer producing mono 16-bit PCM at sampleRate.
func NewWriter(w io.WriteSeeker, sampleRate int) (*Writer, error) {
	if sampleRate <= 0 {
		return nil, errors.Newf("invalid sample rate %d", sampleRate).
			Component("wavout").
			Category(errors.CategoryValidation).
			Build()
	}

	format := &audio.Format{SampleRate: sampleRate, NumChannels: conf.NumChannels}
	return &Writer{
		enc:    wav.NewEncoder(w, sampleRate, conf.BitDepth, conf.NumChannels, wavAudioFormatPCM),
		format: format,
		buf:    &audio.IntBuffer{Format: format, SourceBitDepth: conf.BitDepth},
	}, nil
}

// WriteChunk appends samples. Values outside [-1.0, 1.0] are clipped.
func (w *Writer) WriteChunk(samples []float32) error {
	if w.closed {
		return errors.Newf("write to closed wav writer").
			Component("wavout").
			Category(errors.CategoryFileIO).
			Build()
	}
	if len(samples) == 0 {
		return nil
	}

	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	for i, s := range samples {
		w.buf.Data[i] = floatToInt16(s)
	}

	if err := w.enc.Write(w.buf); err != nil {
		return errors.New(err).
			Component("wavout").
			Category(errors.CategoryFileIO).
			Context("operation", "encode-wav").
			Build()
	}
	w.written += len(samples)
	return nil
}

// Samples returns the number of samples written so far.
func (w *Writer) Samples() int {
	return w.written
}

// Close finalizes the WAV header. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.enc.Close(); err != nil {
		return errors.New(err).
			Component("wavout").
			Category(errors.CategoryFileIO).
			Context("operation", "finalize-wav").
			Build()
	}
	return nil
}

// Write encodes samples as a complete WAV stream.
func Write(w io.WriteSeeker, samples []float32, sampleRate int) error {
	ww, err := NewWriter(w, sampleRate)
	if err != nil {
		return err
	}
	if err := ww.WriteChunk(samples); err != nil {
		_ = ww.Close()
		return err
	}
	return ww.Close()
}

// WriteFile writes samples to a new WAV file at path, creating parent
// directories as needed.
func WriteFile(path string, samples []float32, sampleRate int) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.New(err).
			Component("wavout").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.New(err).
			Component("wavout").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.New(cerr).
				Component("wavout").
				Category(errors.CategoryFileIO).
				FileContext(path).
				Build()
		}
	}()

	return Write(f, samples, sampleRate)
}

// floatToInt16 scales a normalized sample back to the 16-bit range, the
// inverse of dividing by 32768 with clipping at both ends
func floatToInt16(s float32) int {
	v := math.Round(float64(s) * 32768.0)
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int(v)
	}
}
