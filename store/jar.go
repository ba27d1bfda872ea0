package store

import (
	"context"
	"fmt"
	"net/http"
	neturl "net/url"
	"time"
)

// ContextJar is a cookie jar that reports its own storage failures, such as
// transport.FileJar.
type ContextJar interface {
	CookiesContext(ctx context.Context, u *neturl.URL) ([]*http.Cookie, error)
	SetCookiesContext(ctx context.Context, u *neturl.URL, cookies []*http.Cookie) error
}

// JarBackend keeps entries as cookies of a single origin in an http.CookieJar.
// Values are query escaped, so any string survives the cookie value grammar.
type JarBackend struct {
	jar    http.CookieJar
	origin *neturl.URL
}

// NewJarBackend creates a Backend storing cookies for origin in jar.
func NewJarBackend(jar http.CookieJar, origin string) (*JarBackend, error) {
	if jar == nil {
		return nil, fmt.Errorf("cookie jar was nil")
	}
	u, err := neturl.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("invalid origin %q: expected http(s)://host", origin)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return &JarBackend{jar: jar, origin: u}, nil
}

func (j *JarBackend) Get(ctx context.Context, name string) (string, bool, error) {
	cookies, err := j.cookies(ctx)
	if err != nil {
		return "", false, err
	}
	for _, c := range cookies {
		if c.Name != name {
			continue
		}
		value, err := neturl.QueryUnescape(c.Value)
		if err != nil {
			return "", false, fmt.Errorf("malformed cookie %s: %w", name, err)
		}
		return value, true, nil
	}
	return "", false, nil
}

func (j *JarBackend) Set(ctx context.Context, name, value string, expires time.Time) error {
	cookies := []*http.Cookie{{
		Name:    name,
		Value:   neturl.QueryEscape(value),
		Path:    "/",
		Expires: expires,
		Secure:  j.origin.Scheme == "https",
	}}
	if jar, ok := j.jar.(ContextJar); ok {
		return jar.SetCookiesContext(ctx, j.origin, cookies)
	}
	j.jar.SetCookies(j.origin, cookies)
	return nil
}

func (j *JarBackend) cookies(ctx context.Context) ([]*http.Cookie, error) {
	if jar, ok := j.jar.(ContextJar); ok {
		return jar.CookiesContext(ctx, j.origin)
	}
	return j.jar.Cookies(j.origin), nil
}
