package healthcheck

import "time"

type Option func(*Checker)

func WithInterval(t time.Duration) Option {
	return func(c *Checker) {
		c.interval = t
	}
}

func WithTimeout(t time.Duration) Option {
	return func(c *Checker) {
		c.timeout = t
	}
}

// WithService sets the service name reported to the health server. The empty
// name stands for the whole server.
func WithService(name string) Option {
	return func(c *Checker) {
		c.service = name
	}
}
