package activation

import (
	"log/slog"
	"time"
)

// DefaultTTL is how long an activation key stays valid.
const DefaultTTL = 48 * time.Hour

type settings struct {
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Gate or a Registrar.
type Option func(*settings)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
