package testlog

import "testing"

func TestHCLoggerDoesNotPanic(t *testing.T) {
	logger := HCLogger(t)
	logger.Info("hello", "from", "testlog")
}
