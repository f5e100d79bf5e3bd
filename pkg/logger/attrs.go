package logger

import "log/slog"

// Component tags records with the subsystem that produced them.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Error attaches an error message under the conventional key.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}
