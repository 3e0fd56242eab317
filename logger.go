// SPDX-License-Identifier: MPL-2.0

package unpack

// logger is the logging interface used throughout the package. It is
// satisfied by [log/slog.Logger].
type logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
