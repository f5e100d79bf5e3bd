// Package httpserver runs an http.Handler with sane timeouts and
// graceful shutdown wired to SIGINT/SIGTERM and context cancellation.
package httpserver
