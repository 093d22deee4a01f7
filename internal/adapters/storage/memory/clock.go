package memory

import "time"

// Option configures an in-memory store.
type Option func(*clock)

type clock struct {
	now func() time.Time
}

// WithClock makes the store read time from now instead of time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *clock) {
		c.now = now
	}
}

func newClock(opts []Option) clock {
	c := clock{now: time.Now}
	for _, o := range opts {
		o(&c)
	}
	return c
}
