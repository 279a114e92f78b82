package vonttasdk

import "time"

type options struct {
	timeout      time.Duration
	maxAttempts  int
	initialDelay time.Duration
	basePath     string
}

func defaultOptions() options {
	return options{
		timeout:      10 * time.Second,
		maxAttempts:  3,
		initialDelay: 200 * time.Millisecond,
		basePath:     "/v0",
	}
}

// Option configures the client.
type Option func(*options)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetry configures retries of network errors and 5xx responses.
// maxAttempts 1 disables retrying.
func WithRetry(maxAttempts int, initialDelay time.Duration) Option {
	return func(o *options) {
		o.maxAttempts = maxAttempts
		o.initialDelay = initialDelay
	}
}

// WithBasePath overrides the API prefix (default /v0).
func WithBasePath(p string) Option {
	return func(o *options) { o.basePath = p }
}
