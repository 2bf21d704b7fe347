package testutil

import (
	"log"
	"os"
	"testing"
)

// TestLogger returns a logger for use in tests. Output is redirected to
// stderr on cleanup so late writes from lingering goroutines don't land
// in the next test's stdout.
func TestLogger(t *testing.T) *log.Logger {
	logger := log.New(os.Stdout, "[auxroom-test] ", log.LstdFlags)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
	})

	return logger
}
