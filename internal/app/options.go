package app

import (
	"time"

	"clok/internal/domain"
)

type settings struct {
	clock domain.Clock
	loc   *time.Location
}

// Option configures the clock and report services.
type Option func(*settings)

// WithClock sets the time source used when callers pass a zero time.
func WithClock(c domain.Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithLocation sets the zone whose calendar defines the bucket keys.
func WithLocation(loc *time.Location) Option {
	return func(s *settings) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{clock: domain.SystemClock{}, loc: time.Local}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// instant resolves a caller supplied time: zero means now, and the result is
// moved into the bucket zone and truncated to whole seconds.
func (s settings) instant(t time.Time) time.Time {
	if t.IsZero() {
		t = s.clock.Now()
	}
	return t.In(s.loc).Truncate(time.Second)
}
