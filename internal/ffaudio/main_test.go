package ffaudio

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies that no test leaves goroutines behind, which would mean a
// child process or one of its pipe readers was not released.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// go-cache janitor lives until its cache is garbage collected
		goleak.IgnoreAnyFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}
