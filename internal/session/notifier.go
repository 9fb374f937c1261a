package session

import "log/slog"

// Notifier surfaces user-visible notifications. The console supplies a
// terminal implementation; LogNotifier is the fallback for headless use
// and tests.
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Error(msg string)
}

// LogNotifier routes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

func (n LogNotifier) Info(msg string)    { n.logger().Info(msg, "kind", "notice") }
func (n LogNotifier) Success(msg string) { n.logger().Info(msg, "kind", "success") }
func (n LogNotifier) Error(msg string)   { n.logger().Warn(msg, "kind", "error") }
