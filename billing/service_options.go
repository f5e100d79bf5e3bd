package billing

import "log/slog"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// WithLogger sets the structured logger used by the service and the
// transition engine. Defaults to slog.Default().
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}
