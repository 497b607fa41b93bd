package logging

import (
	"testing"
)

func TestSecretMasking(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "secret is masked",
			input: "hunter2",
		},
		{
			name:  "empty secret is still masked",
			input: "",
		},
		{
			name:  "complex secret is masked",
			input: "p@ss=word!#$%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Secret(tt.input).String(); got != Mask {
				t.Errorf("Secret(%q).String() = %q, want %q", tt.input, got, Mask)
			}
			if got := Secret(tt.input).GoString(); got != Mask {
				t.Errorf("Secret(%q).GoString() = %q, want %q", tt.input, got, Mask)
			}
		})
	}
}

func TestLoggerCreation(t *testing.T) {
	logger := New(false, true)
	debugLogger := New(true, true)

	if logger == nil {
		t.Error("Failed to create non-debug logger")
	}
	if debugLogger == nil {
		t.Error("Failed to create debug logger")
	}
}

func TestLoggerLevels(t *testing.T) {
	// All methods must accept printf-style arguments without panicking.
	logger := New(true, true)

	logger.Info("resolved %d secrets", 3)
	logger.Warn("retrying %s after %s", "db-password", "0.2s")
	logger.Error("fetch failed for %s", "db-password")
	logger.Debug("attempt %d of %d", 1, 3)
}
