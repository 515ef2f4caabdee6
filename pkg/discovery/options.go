package discovery

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Option configures a discovery component.
type Option func(*options)

type options struct {
	clock      clock.Clock
	logger     *zerolog.Logger
	retryDelay time.Duration
}

// WithClock sets the time source. Tests pass a clock.Mock.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the logger used by the component.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

// WithRetryDelay sets the pause between retries of a failing method.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) {
		o.retryDelay = d
	}
}

func buildOptions(component string, opts []Option) options {
	o := options{
		clock:      clock.New(),
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		l := log.With().Str("component", component).Logger()
		o.logger = &l
	}
	return o
}
