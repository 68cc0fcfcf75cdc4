// Package testlog provides an hclog.Logger that writes to a test's
// *testing.T, modeled on the teacher's helper/testlog: tests get
// readable, per-test-scoped log output instead of either a silent
// null logger or unbuffered stdout that survives past the test.
package testlog

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

// T is the subset of *testing.T this package needs, so callers never
// have to import "testing" through us directly.
type T interface {
	Logf(format string, args ...interface{})
	Name() string
}

// writer adapts T.Logf to io.Writer, trimming the trailing newline
// hclog always appends (T.Logf adds its own).
type writer struct{ t T }

func (w writer) Write(p []byte) (int, error) {
	n := len(p)
	if n > 0 && p[n-1] == '\n' {
		p = p[:n-1]
	}
	w.t.Logf("%s", p)
	return n, nil
}

// HCLogger returns an hclog.Logger named after t that writes through
// t.Logf, at the level AMD_TEST_LOG_LEVEL selects, defaulting to
// hclog.Debug.
func HCLogger(t T) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   t.Name(),
		Level:  level(),
		Output: writer{t: t},
	})
}

// Logger returns an hclog.Logger writing to os.Stderr at the same
// level HCLogger would use, for callers that need a real writer
// (e.g. a subprocess's stderr) instead of t.Logf.
func Logger(t T) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   t.Name(),
		Level:  level(),
		Output: os.Stderr,
	})
}

func level() hclog.Level {
	if v := os.Getenv("AMD_TEST_LOG_LEVEL"); v != "" {
		return hclog.LevelFromString(v)
	}
	return hclog.Debug
}
