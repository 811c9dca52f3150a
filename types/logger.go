package types

// Logger is the structured logger used throughout the client.
//
// Messages are lower-case and followed by alternating keys and values, e.g.
//
//	logger.Info("worker added", "client_id", id, "worker", name)
//
// zap's SugaredLogger satisfies it directly; internal/logging adapts log/slog.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)

	// Fatal logs at the highest level and then terminates the process.
	Fatal(msg string, keysAndValues ...any)
}
