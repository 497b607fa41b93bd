// Package logging provides the stderr logger used across noctivault and
// helpers that keep secret material out of the log stream. Secret values
// only pass through the Secret wrapper or Redact, both of which emit the
// project-wide "***" mask.
package logging

import (
	"fmt"
	"os"
	"strings"
)

// Mask is the literal that replaces secret material in rendered output.
const Mask = "***"

// Logger writes human-readable status lines to stderr.
type Logger struct {
	debug   bool
	noColor bool
}

// New creates a logger. debug enables Debug output; noColor suppresses the
// ANSI escapes.
func New(debug, noColor bool) *Logger {
	return &Logger{
		debug:   debug,
		noColor: noColor,
	}
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !l.noColor {
		fmt.Fprintf(os.Stderr, "\033[32m✓\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(os.Stderr, "✓ %s\n", msg)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !l.noColor {
		fmt.Fprintf(os.Stderr, "\033[33m⚠\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(os.Stderr, "⚠ %s\n", msg)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !l.noColor {
		fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(os.Stderr, "✗ %s\n", msg)
	}
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if !l.noColor {
		fmt.Fprintf(os.Stderr, "\033[36m[DEBUG]\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(os.Stderr, "[DEBUG] %s\n", msg)
	}
}

// Secret wraps a sensitive value so every format verb renders the mask
// instead of the raw text.
type Secret string

// String implements the Stringer interface, always returning the mask
func (s Secret) String() string {
	return Mask
}

// GoString implements the GoStringer interface for %#v formatting
func (s Secret) GoString() string {
	return Mask
}

// Redact replaces occurrences of the given secrets in a string with the
// mask. Values of three characters or fewer are left in place.
func Redact(s string, secrets []string) string {
	result := s
	for _, secret := range secrets {
		if len(secret) > 3 {
			result = strings.ReplaceAll(result, secret, Mask)
		}
	}
	return result
}
