package logging

import "testing"

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		if logger := New(level); logger == nil || logger.Logger == nil {
			t.Fatalf("New(%q) returned nil logger", level)
		}
	}
}

func TestWithReturnsUsableLogger(t *testing.T) {
	logger := Default().With("call_sid", "CA123")
	if logger == nil || logger.Logger == nil {
		t.Fatal("With returned nil logger")
	}
	logger.Debug("attribute logger works")
}
