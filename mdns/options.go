package mdns

import (
	"time"

	"github.com/jfuller/mdnsgo/internal/errors"
)

// QuerierOption configures a Querier built by NewQuerier.
type QuerierOption func(*Querier) error

// WithTimeout sets how long Query/Discover wait for responses once the
// query has been sent. Default: 1 second.
func WithTimeout(d time.Duration) QuerierOption {
	return func(q *Querier) error {
		if d <= 0 {
			return &errors.ValidationError{Field: "timeout", Value: d, Message: "timeout must be greater than 0"}
		}
		q.timeout = d
		return nil
	}
}

// WithAuthorities includes the authority section when walking a query
// response. RFC 6762 §6 does not require a querier to consult authority
// records; default is false (authorities suppressed), matching the
// conservative reading of that section. Set true to recover the more
// permissive behavior of walking every section the message carries.
func WithAuthorities(include bool) QuerierOption {
	return func(q *Querier) error {
		q.includeAuthorities = include
		return nil
	}
}

// WithIPv6 additionally joins the IPv6 multicast group (ff02::fb) and
// listens on it alongside IPv4. Default: false.
func WithIPv6(enabled bool) QuerierOption {
	return func(q *Querier) error {
		q.useIPv6 = enabled
		return nil
	}
}

// WithRateLimit enables or disables the per-source receive rate limiter.
// Default: enabled.
func WithRateLimit(enabled bool) QuerierOption {
	return func(q *Querier) error {
		q.rateLimitEnabled = enabled
		return nil
	}
}

// WithRateLimitQPS sets the sustained queries-per-second allowed per
// source address once rate limiting is enabled. Default: 100.
func WithRateLimitQPS(qps int) QuerierOption {
	return func(q *Querier) error {
		if qps <= 0 {
			return &errors.ValidationError{Field: "rateLimitQPS", Value: qps, Message: "must be greater than 0"}
		}
		q.rateLimitQPS = qps
		return nil
	}
}

// ResponderOption configures a Responder built by NewResponder.
type ResponderOption func(*Responder) error

// WithResponderIPv6 additionally joins the IPv6 multicast group and
// answers queries received over it. Default: false.
func WithResponderIPv6(enabled bool) ResponderOption {
	return func(r *Responder) error {
		r.useIPv6 = enabled
		return nil
	}
}

// WithResponderRateLimit enables or disables the per-source receive rate
// limiter on the responder's listen loop. Default: enabled.
func WithResponderRateLimit(enabled bool) ResponderOption {
	return func(r *Responder) error {
		r.rateLimitEnabled = enabled
		return nil
	}
}

// WithBufferSize sets the scratch buffer size used to build outgoing
// answer datagrams. Default: 1500 (typical Ethernet MTU).
func WithBufferSize(n int) ResponderOption {
	return func(r *Responder) error {
		if n <= 0 {
			return &errors.ValidationError{Field: "bufferSize", Value: n, Message: "must be greater than 0"}
		}
		r.bufSize = n
		return nil
	}
}
