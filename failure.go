package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/zcw199604/kafka/types"
)

// broadcastTimeout bounds the publication of an application shutdown request.
const broadcastTimeout = 5 * time.Second

// handleUncaught applies the uncaught exception policy to a worker failure.
//
// It runs on the failing worker's goroutine. A nil return tells the worker to
// keep running; otherwise err is returned and the worker must exit.
func (s *Streams) handleUncaught(src types.FailureSource, err error, skipReplacement bool) error {
	response := s.selectResponse(err)
	s.metrics.RecordUncaughtFailure(response)

	switch response {
	case types.ReplaceWorker:
		if skipReplacement {
			s.logger.Debug("skipping worker replacement for recoverable error", "source", src, "error", err)
			return nil
		}
		s.replaceWorker(src, err)

	case types.ShutdownApplication:
		s.shutdownApplication(src, err)

	default:
		s.logger.Error("encountered an uncaught error, the client is going to shut down",
			"source", src,
			"error", err,
		)
		s.closeToError()
	}

	return err
}

func (s *Streams) onGlobalUncaughtError(err error) error {
	return s.handleUncaught(types.GlobalWorkerSource(), err, false)
}

// selectResponse asks the user handler for a response.
//
// Illegal state and illegal argument errors are programming errors and always
// shut the client down.
func (s *Streams) selectResponse(err error) ExceptionResponse {
	if errors.Is(err, ErrIllegalState) || errors.Is(err, ErrIllegalArgument) {
		s.logger.Warn("uncaught error is a programming error, the handler is skipped", "error", err)
		return types.ShutdownClient
	}

	s.stateMu.Lock()
	handler := s.failureHandler
	s.stateMu.Unlock()

	if handler == nil {
		return types.ShutdownClient
	}

	return handler(err)
}

func (s *Streams) replaceWorker(src types.FailureSource, err error) {
	if src.IsGlobal() {
		s.logger.Warn("the global worker cannot be replaced, reverting to shutting down the client")
		s.logger.Error("encountered an uncaught error, the client is going to shut down", "source", src, "error", err)
		s.closeToError()

		return
	}

	s.logger.Error("replacing worker after an uncaught error", "worker", src.Worker(), "error", err)
	for _, e := range s.snapshot() {
		if e.name == src.Worker() {
			e.worker.Shutdown()
			break
		}
	}

	if _, _, addErr := s.AddWorker(); addErr != nil {
		s.logger.Error("failed to add replacement worker", "worker", src.Worker(), "error", addErr)
	}
}

// shutdownApplication asks every client of the application to shut down.
func (s *Streams) shutdownApplication(src types.FailureSource, err error) {
	if s.liveCount() == 1 {
		s.logger.Warn("adding a worker to communicate the application shutdown request", "source", src)
		if _, _, addErr := s.AddWorker(); addErr != nil {
			s.logger.Error("failed to add worker for the shutdown request", "error", addErr)
		}
	}

	if src.IsGlobal() && s.liveCount() == 0 {
		s.logger.Error("no worker is left to communicate the application shutdown request, shutting down the client",
			"source", src,
			"error", err,
		)
		s.closeToError()

		return
	}

	s.logger.Error("encountered an uncaught error, requesting the application to shut down", "source", src, "error", err)
	const reason = "shutdown requested"
	for _, e := range s.snapshot() {
		e.worker.SendShutdownRequest(reason)
	}

	if s.broadcaster == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
	defer cancel()

	req := ShutdownRequest{
		ApplicationID: s.cfg.ApplicationID,
		ClientID:      s.clientID,
		Reason:        err.Error(),
		RequestedAt:   s.clock.Now(),
	}
	if bErr := s.broadcaster.BroadcastShutdown(ctx, req); bErr != nil {
		s.logger.Error("failed to broadcast application shutdown request", "error", bErr)
	}
}
