package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	neturl "net/url"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"golang.org/x/sync/singleflight"
)

// FileJar is an http.CookieJar persisted as a JSON snapshot at an afs URL.
// Every read reloads the snapshot so cookies written by other processes sharing
// the file become visible; concurrent reloads are collapsed into one download.
type FileJar struct {
	mu    sync.RWMutex
	inner *cookiejar.Jar
	index map[string]persistedCookie
	url   string
	fs    afs.Service
	group singleflight.Group
}

type persistedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	HostOnly bool      `json:"hostOnly,omitempty"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires"`
	Secure   bool      `json:"secure"`
	HttpOnly bool      `json:"httpOnly"`
}

func (p *persistedCookie) key() string {
	return p.Domain + "|" + p.Path + "|" + p.Name
}

func (p *persistedCookie) expired(now time.Time) bool {
	return !p.Expires.IsZero() && !now.Before(p.Expires)
}

type cookieSnapshot struct {
	Cookies []persistedCookie `json:"cookies"`
}

// NewFileJar creates a cookie jar persisted at URL (a local path or any afs URL).
func NewFileJar(URL string) (*FileJar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	j := &FileJar{inner: inner, url: URL, fs: afs.New(), index: map[string]persistedCookie{}}
	if err = j.reload(context.Background()); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *FileJar) Cookies(u *neturl.URL) []*http.Cookie {
	cookies, _ := j.CookiesContext(context.Background(), u)
	return cookies
}

// CookiesContext returns the cookies for u after reloading the snapshot. On a
// reload failure the last loaded cookies are returned with the error.
func (j *FileJar) CookiesContext(ctx context.Context, u *neturl.URL) ([]*http.Cookie, error) {
	_, err, _ := j.group.Do(j.url, func() (interface{}, error) {
		return nil, j.reload(ctx)
	})
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.inner.Cookies(u), err
}

func (j *FileJar) SetCookies(u *neturl.URL, cookies []*http.Cookie) {
	_ = j.SetCookiesContext(context.Background(), u, cookies)
}

// SetCookiesContext merges cookies into the snapshot and saves it, reporting
// a failed save.
func (j *FileJar) SetCookiesContext(ctx context.Context, u *neturl.URL, cookies []*http.Cookie) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if snapshot, err := j.load(ctx); err == nil && snapshot != nil {
		j.index = snapshot
	}
	now := time.Now()
	for _, c := range cookies {
		pc := asPersisted(u, c)
		if c.MaxAge < 0 || pc.expired(now) {
			delete(j.index, pc.key())
			continue
		}
		if c.MaxAge > 0 {
			pc.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		j.index[pc.key()] = pc
	}
	j.rebuild(now)
	if err := j.save(ctx); err != nil {
		return fmt.Errorf("failed to save cookies %v: %w", j.url, err)
	}
	return nil
}

func asPersisted(u *neturl.URL, c *http.Cookie) persistedCookie {
	domain := strings.TrimPrefix(strings.TrimSpace(c.Domain), ".")
	hostOnly := domain == ""
	if hostOnly {
		domain = u.Host
		if h, _, err := net.SplitHostPort(domain); err == nil && h != "" {
			domain = h
		}
	}
	path := c.Path
	if strings.TrimSpace(path) == "" {
		path = "/"
	}
	return persistedCookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   domain,
		HostOnly: hostOnly,
		Path:     path,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
	}
}

// rebuild replaces the inner jar with the current index. Caller holds mu.
func (j *FileJar) rebuild(now time.Time) {
	inner, _ := cookiejar.New(nil)
	for key, pc := range j.index {
		if pc.expired(now) {
			delete(j.index, key)
			continue
		}
		scheme := "http"
		if pc.Secure {
			scheme = "https"
		}
		cookie := &http.Cookie{
			Name:     pc.Name,
			Value:    pc.Value,
			Path:     pc.Path,
			Expires:  pc.Expires,
			Secure:   pc.Secure,
			HttpOnly: pc.HttpOnly,
		}
		if !pc.HostOnly {
			cookie.Domain = pc.Domain
		}
		inner.SetCookies(&neturl.URL{Scheme: scheme, Host: pc.Domain, Path: pc.Path}, []*http.Cookie{cookie})
	}
	j.inner = inner
}

func (j *FileJar) reload(ctx context.Context) error {
	snapshot, err := j.load(ctx)
	if err != nil || snapshot == nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.index = snapshot
	j.rebuild(time.Now())
	return nil
}

func (j *FileJar) load(ctx context.Context) (map[string]persistedCookie, error) {
	exists, err := j.fs.Exists(ctx, j.url)
	if err != nil || !exists {
		return nil, err
	}
	data, err := j.fs.DownloadWithURL(ctx, j.url)
	if err != nil {
		return nil, fmt.Errorf("failed to download cookies %v: %w", j.url, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]persistedCookie{}, nil
	}
	var snap cookieSnapshot
	if err = json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid cookie snapshot %v: %w", j.url, err)
	}
	ret := make(map[string]persistedCookie, len(snap.Cookies))
	for _, pc := range snap.Cookies {
		ret[pc.key()] = pc
	}
	return ret, nil
}

// save writes the index. Caller holds mu.
func (j *FileJar) save(ctx context.Context) error {
	snap := cookieSnapshot{Cookies: make([]persistedCookie, 0, len(j.index))}
	for _, v := range j.index {
		snap.Cookies = append(snap.Cookies, v)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return j.fs.Upload(ctx, j.url, 0o600, bytes.NewReader(data))
}
