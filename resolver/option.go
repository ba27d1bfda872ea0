package resolver

import (
	"log/slog"
	"regexp"
	"time"
)

const (
	// DefaultURL is the identity service endpoint.
	DefaultURL = "https://ampcid.google.com/v1/publisher:getClientId"
	// DefaultTimeout bounds a single fetch and the life of the retrieving marker.
	DefaultTimeout = 30 * time.Second
	// DefaultPollInterval is how often a waiting resolution re-reads the store.
	DefaultPollInterval = 200 * time.Millisecond
	// DefaultProxyOriginPattern matches referrers served from the AMP cache.
	DefaultProxyOriginPattern = `^https://([a-zA-Z0-9_-]+\.)?cdn\.ampproject\.org`
)

// DefaultProxyOrigin is the compiled DefaultProxyOriginPattern.
var DefaultProxyOrigin = regexp.MustCompile(DefaultProxyOriginPattern)

type Option func(*Service)

// WithFetcher sets the request executor.
func WithFetcher(fetcher Fetcher) Option {
	return func(s *Service) {
		if fetcher != nil {
			s.fetcher = fetcher
		}
	}
}

// WithURL sets the identity service endpoint.
func WithURL(URL string) Option {
	return func(s *Service) {
		if URL != "" {
			s.url = URL
		}
	}
}

// WithReferrer sets the function returning the hosting document referrer.
func WithReferrer(referrer func() string) Option {
	return func(s *Service) {
		if referrer != nil {
			s.referrer = referrer
		}
	}
}

// WithProxyOrigin overrides the referrer pattern that forces a fetch over a
// cached not-found token. A nil pattern disables the override.
func WithProxyOrigin(pattern *regexp.Regexp) Option {
	return func(s *Service) {
		s.proxyOrigin = pattern
	}
}

// WithTimeout sets the fetch timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithPollInterval sets the store poll interval.
func WithPollInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}

// WithLogger sets logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
