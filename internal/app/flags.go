package app

import (
	"time"

	"github.com/spf13/pflag"
)

// AddSegmentFlags registers the --start and --duration flags shared by the
// extraction commands.
func AddSegmentFlags(fs *pflag.FlagSet) {
	fs.Duration("start", 0, "Offset into the input, e.g. 1.5s or 2m")
	fs.Duration("duration", 0, "Length of audio to extract (default: until end of input)")
}

// SegmentFlags returns the --start and --duration values. A flag that was not
// given on the command line is returned as nil.
func SegmentFlags(fs *pflag.FlagSet) (start, duration *time.Duration, err error) {
	if start, err = changedDuration(fs, "start"); err != nil {
		return nil, nil, err
	}
	if duration, err = changedDuration(fs, "duration"); err != nil {
		return nil, nil, err
	}
	return start, duration, nil
}

func changedDuration(fs *pflag.FlagSet, name string) (*time.Duration, error) {
	if !fs.Changed(name) {
		return nil, nil
	}
	d, err := fs.GetDuration(name)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
