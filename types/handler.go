package types

import "fmt"

// ExceptionResponse is the action selected for an uncaught worker error.
type ExceptionResponse int

const (
	// ReplaceWorker shuts the failed worker down and starts a fresh one.
	ReplaceWorker ExceptionResponse = iota

	// ShutdownClient shuts this client down into the Error state.
	ShutdownClient

	// ShutdownApplication asks every client of the application to shut down.
	ShutdownApplication
)

// String returns the string representation of the response.
func (r ExceptionResponse) String() string {
	switch r {
	case ReplaceWorker:
		return "ReplaceWorker"
	case ShutdownClient:
		return "ShutdownClient"
	case ShutdownApplication:
		return "ShutdownApplication"
	default:
		return "Unknown"
	}
}

// UncaughtExceptionHandler selects the response to an uncaught worker error.
type UncaughtExceptionHandler func(err error) ExceptionResponse

type failureSourceKind int

const (
	regularSource failureSourceKind = iota
	globalSource
)

// FailureSource identifies which worker raised an uncaught error.
type FailureSource struct {
	kind   failureSourceKind
	worker string
}

// RegularWorkerSource returns the source for a regular worker.
func RegularWorkerSource(name string) FailureSource {
	return FailureSource{kind: regularSource, worker: name}
}

// GlobalWorkerSource returns the source for the global worker.
func GlobalWorkerSource() FailureSource {
	return FailureSource{kind: globalSource}
}

// IsGlobal reports whether the failure came from the global worker.
func (s FailureSource) IsGlobal() bool {
	return s.kind == globalSource
}

// Worker returns the name of the failing regular worker.
func (s FailureSource) Worker() string {
	return s.worker
}

// String returns a log-friendly description of the source.
func (s FailureSource) String() string {
	if s.IsGlobal() {
		return "global"
	}

	return fmt.Sprintf("worker(%s)", s.worker)
}
