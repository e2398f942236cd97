package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{input: "clip.mp3", want: filepath.Join("out", "clip.wav")},
		{input: "/data/rec/2024-06-01.flac", want: filepath.Join("out", "2024-06-01.wav")},
		{input: "noext", want: filepath.Join("out", "noext.wav")},
		{input: "archive.tar.gz", want: filepath.Join("out", "archive.tar.wav")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, outputPath("out", tt.input))
		})
	}
}

func TestExpandInputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b.mp3", "a.wav", ".hidden.wav"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	got, err := expandInputs([]string{"first.flac", dir, "missing.ogg"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"first.flac",
		filepath.Join(dir, "a.wav"),
		filepath.Join(dir, "b.mp3"),
		"missing.ogg",
	}, got)
}
