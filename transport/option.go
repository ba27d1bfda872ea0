package transport

import (
	"log/slog"
	"net/http"
)

type Option func(*Fetcher)

// WithRoundTripper sets the underlying HTTP transport.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		if rt != nil {
			f.transport = rt
		}
	}
}

// WithCookieJar sends jar cookies with every request and keeps response cookies.
func WithCookieJar(jar http.CookieJar) Option {
	return func(f *Fetcher) {
		f.jar = jar
	}
}

// WithLogger sets logger
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}
