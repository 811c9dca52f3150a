package logging

import "github.com/zcw199604/kafka/types"

// NopLogger drops every log line.
//
// It is the default logger of a Streams client created without WithLogger.
type NopLogger struct{}

var _ types.Logger = NopLogger{}

// NewNop returns a logger that discards all messages.
func NewNop() NopLogger {
	return NopLogger{}
}

func (NopLogger) Debug(string, ...any) {}

func (NopLogger) Info(string, ...any) {}

func (NopLogger) Warn(string, ...any) {}

func (NopLogger) Error(string, ...any) {}

// Fatal discards the message and, unlike other loggers, does not exit.
func (NopLogger) Fatal(string, ...any) {}
