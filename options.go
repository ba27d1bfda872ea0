package cid

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	neturl "net/url"
	"regexp"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/cid/resolver"
	"github.com/viant/cid/store"
	"github.com/viant/scy"
	"gopkg.in/yaml.v3"
)

// DefaultOrigin is the origin the token cookie is scoped to when none is configured.
const DefaultOrigin = "https://localhost"

// Options defines options for configuring a client id service.
type Options struct {
	URL             string `yaml:"url,omitempty" json:"url,omitempty"  short:"u" long:"url" description:"identity service endpoint"`
	APIKey          string `yaml:"apiKey,omitempty" json:"apiKey,omitempty"  short:"k" long:"key" description:"identity service API key"`
	APIKeySecret    string `yaml:"apiKeySecret,omitempty" json:"apiKeySecret,omitempty"  long:"key-secret" description:"secret URL holding the API key"`
	APIKeySecretKey string `yaml:"apiKeySecretKey,omitempty" json:"apiKeySecretKey,omitempty"  long:"key-secret-key" description:"API key secret encryption key, e.g. blowfish://default"`
	Origin          string `yaml:"origin,omitempty" json:"origin,omitempty"  short:"o" long:"origin" description:"origin the token cookie belongs to"`
	Referrer        string `yaml:"referrer,omitempty" json:"referrer,omitempty"  short:"r" long:"referrer" description:"hosting document referrer"`
	TokenName       string `yaml:"tokenName,omitempty" json:"tokenName,omitempty"  long:"token-name" description:"token cookie name"`
	// StoreURL is an afs URL of a cookie jar snapshot; tokens are kept in memory when empty.
	StoreURL       string `yaml:"storeURL,omitempty" json:"storeURL,omitempty"  short:"j" long:"jar" description:"cookie jar file"`
	TimeoutMs      int    `yaml:"timeoutMs,omitempty" json:"timeoutMs,omitempty"  short:"t" long:"timeout" description:"fetch timeout in ms"`
	PollIntervalMs int    `yaml:"pollIntervalMs,omitempty" json:"pollIntervalMs,omitempty"  long:"poll" description:"token store poll interval in ms"`
	// ProxyOrigin is the referrer pattern forcing a fetch over a cached not-found token; "-" disables it.
	ProxyOrigin string `yaml:"proxyOrigin,omitempty" json:"proxyOrigin,omitempty"  long:"proxy-origin" description:"proxy origin referrer pattern"`

	// CookieJar, if set, holds the token cookie and supplies request credentials.
	CookieJar http.CookieJar `yaml:"-" json:"-" no-flag:"true"`
	// Store allows injecting a token store; CookieJar and StoreURL are then used for credentials only.
	Store     store.Store       `yaml:"-" json:"-" no-flag:"true"`
	Transport http.RoundTripper `yaml:"-" json:"-" no-flag:"true"`
	Logger    *slog.Logger      `yaml:"-" json:"-" no-flag:"true"`
}

// Init fills in default values.
func (o *Options) Init() {
	if o.URL == "" {
		o.URL = resolver.DefaultURL
	}
	if o.Origin == "" {
		o.Origin = DefaultOrigin
	}
	if o.TokenName == "" {
		o.TokenName = store.DefaultName
	}
	if o.TimeoutMs == 0 {
		o.TimeoutMs = int(resolver.DefaultTimeout / time.Millisecond)
	}
	if o.PollIntervalMs == 0 {
		o.PollIntervalMs = int(resolver.DefaultPollInterval / time.Millisecond)
	}
	if o.ProxyOrigin == "" {
		o.ProxyOrigin = resolver.DefaultProxyOriginPattern
	}
}

// Validate checks that options are usable.
func (o *Options) Validate() error {
	if o.URL == "" {
		return fmt.Errorf("url was empty")
	}
	if _, err := neturl.Parse(o.URL); err != nil {
		return fmt.Errorf("invalid url %q: %w", o.URL, err)
	}
	if u, err := neturl.Parse(o.Origin); err != nil || u.Host == "" {
		return fmt.Errorf("invalid origin: %q", o.Origin)
	}
	if o.TimeoutMs < 0 {
		return fmt.Errorf("invalid timeout: %d", o.TimeoutMs)
	}
	if o.PollIntervalMs < 0 {
		return fmt.Errorf("invalid poll interval: %d", o.PollIntervalMs)
	}
	if o.APIKeySecret != "" && o.APIKeySecretKey == "" {
		return fmt.Errorf("apiKeySecretKey was empty")
	}
	if _, err := o.proxyOrigin(); err != nil {
		return err
	}
	return nil
}

func (o *Options) proxyOrigin() (*regexp.Regexp, error) {
	switch o.ProxyOrigin {
	case "-":
		return nil, nil
	case "", resolver.DefaultProxyOriginPattern:
		return resolver.DefaultProxyOrigin, nil
	}
	pattern, err := regexp.Compile(o.ProxyOrigin)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy origin pattern: %w", err)
	}
	return pattern, nil
}

func (o *Options) timeout() time.Duration {
	return time.Duration(o.TimeoutMs) * time.Millisecond
}

func (o *Options) pollInterval() time.Duration {
	return time.Duration(o.PollIntervalMs) * time.Millisecond
}

// LoadAPIKey returns the API key, decrypting APIKeySecret when no plain key is set.
func (o *Options) LoadAPIKey(ctx context.Context) (string, error) {
	if o.APIKey != "" || o.APIKeySecret == "" {
		return o.APIKey, nil
	}
	secrets := scy.New()
	secret, err := secrets.Load(ctx, scy.NewResource("", o.APIKeySecret, o.APIKeySecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to load API key secret %v: %w", o.APIKeySecret, err)
	}
	o.APIKey = strings.TrimSpace(secret.String())
	return o.APIKey, nil
}

// LoadOptions reads YAML options from any afs supported URL.
func LoadOptions(ctx context.Context, URL string) (*Options, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load options %v: %w", URL, err)
	}
	options := &Options{}
	if err = yaml.Unmarshal(data, options); err != nil {
		return nil, fmt.Errorf("failed to decode options %v: %w", URL, err)
	}
	return options, nil
}
