package natsutil

import (
	"errors"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// connectivityErrors are NATS errors raised when the server is gone or unreachable.
var connectivityErrors = []error{
	nats.ErrTimeout,
	nats.ErrNoServers,
	nats.ErrDisconnected,
	nats.ErrConnectionClosed,
	nats.ErrNoResponders,
	jetstream.ErrNoStreamResponse,
}

// connectivityMessages match dial failures that reach us unwrapped.
var connectivityMessages = []string{"connection refused", "i/o timeout"}

// IsConnectivityError reports whether err is caused by a lost or unreachable NATS server.
//
// Coordination adapters log these at warn level since the client keeps
// working without them.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	for _, target := range connectivityErrors {
		if errors.Is(err, target) {
			return true
		}
	}

	msg := err.Error()
	for _, m := range connectivityMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}

	return false
}
