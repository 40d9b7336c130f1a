package chat

import "time"

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// Option configures a Registry or Log.
type Option func(*options)

type options struct {
	now Clock
}

// WithClock overrides time.Now.
func WithClock(now Clock) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
