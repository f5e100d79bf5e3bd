package httpserver

import "errors"

var (
	// ErrServerFailed is returned when the listener exits with an
	// unexpected error.
	ErrServerFailed = errors.New("http server failed")

	// ErrShutdownFailed is returned when graceful shutdown does not
	// complete within the timeout.
	ErrShutdownFailed = errors.New("http server shutdown failed")
)
