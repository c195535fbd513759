// Package synclog provides object-keyed structured logging for stripesync,
// following the object-first, printf-second convention used throughout the
// the teacher codebase's own logging calls (fs.Debugf(o, "...", args...)).
package synclog

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Logger is the package-level logger; callers may swap it (e.g. in tests)
// to capture or silence output.
var Logger = logrus.StandardLogger()

func format(o any, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if o == nil {
		return msg
	}
	return fmt.Sprintf("%v: %s", o, msg)
}

// Debugf logs a debug-level message about the object o.
func Debugf(o any, f string, args ...any) {
	Logger.Debug(format(o, f, args...))
}

// Logf logs an info-level message about the object o.
func Logf(o any, f string, args ...any) {
	Logger.Info(format(o, f, args...))
}

// Infof is an alias of Logf kept for symmetry with the teacher's fs.Infof.
func Infof(o any, f string, args ...any) {
	Logf(o, f, args...)
}

// Errorf logs an error-level message about the object o.
func Errorf(o any, f string, args ...any) {
	Logger.Error(format(o, f, args...))
}
