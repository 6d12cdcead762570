// package shared defines shared helpers
package shared

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// TimestampLayout is the wall-clock format used in JSON status payloads and CLI output.
const TimestampLayout = "2006-01-02 15:04:05"

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// ParseLogLevel sets the level named by s ("debug", "info", ...) on l.
// Unknown names leave the level unchanged and return the parse error.
func ParseLogLevel(l *log.Logger, s string) error {
	level, err := log.ParseLevel(s)
	if err != nil {
		return err
	}
	SetLogLevel(l, level)
	return nil
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// Now returns the current time in UTC truncated to whole seconds, matching
// what the ledger stores and reports.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
