package cid

import (
	"context"
	"fmt"
	"net/http"

	"github.com/viant/cid/resolver"
	"github.com/viant/cid/store"
	"github.com/viant/cid/transport"
)

// New creates a client id service with the given options.
func New(ctx context.Context, options *Options) (*resolver.Service, error) {
	if options == nil {
		options = &Options{}
	}
	options.Init()
	if err := options.Validate(); err != nil {
		return nil, err
	}
	jar, err := options.cookieJar()
	if err != nil {
		return nil, err
	}
	tokens, err := options.tokenStore(jar)
	if err != nil {
		return nil, err
	}
	proxyOrigin, _ := options.proxyOrigin()

	var fetcherOptions = []transport.Option{transport.WithCookieJar(jar), transport.WithLogger(options.Logger)}
	if options.Transport != nil {
		fetcherOptions = append(fetcherOptions, transport.WithRoundTripper(options.Transport))
	}
	referrer := options.Referrer
	return resolver.New(tokens,
		resolver.WithFetcher(transport.New(fetcherOptions...)),
		resolver.WithURL(options.URL),
		resolver.WithReferrer(func() string { return referrer }),
		resolver.WithProxyOrigin(proxyOrigin),
		resolver.WithTimeout(options.timeout()),
		resolver.WithPollInterval(options.pollInterval()),
		resolver.WithLogger(options.Logger),
	), nil
}

func (o *Options) cookieJar() (http.CookieJar, error) {
	if o.CookieJar != nil {
		return o.CookieJar, nil
	}
	if o.StoreURL == "" {
		return nil, nil
	}
	jar, err := transport.NewFileJar(o.StoreURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar %v: %w", o.StoreURL, err)
	}
	o.CookieJar = jar
	return jar, nil
}

func (o *Options) tokenStore(jar http.CookieJar) (store.Store, error) {
	if o.Store != nil {
		return o.Store, nil
	}
	if jar == nil {
		return store.New(store.NewMemoryBackend(), store.WithName(o.TokenName)), nil
	}
	backend, err := store.NewJarBackend(jar, o.Origin)
	if err != nil {
		return nil, err
	}
	return store.New(backend, store.WithName(o.TokenName)), nil
}
