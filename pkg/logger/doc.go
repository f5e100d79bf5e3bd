// Package logger builds configured slog loggers with a consistent
// format across services. JSON output is the default; text output is
// available for local development.
package logger
