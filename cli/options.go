package cli

import (
	"context"

	"github.com/viant/cid"
)

type Options struct {
	cid.Options
	ConfigURL string   `short:"c" long:"config" description:"YAML options file"`
	Scopes    []string `short:"s" long:"scope" description:"origin scope to resolve" required:"true"`
	MockAddr  string   `short:"m" long:"mock" description:"serve the mock identity service on addr and resolve against it, e.g. 127.0.0.1:0"`
	Debug     bool     `short:"d" long:"debug" description:"debug logging"`
}

// serviceOptions returns the configured service options; flags take precedence over the config file.
func (o *Options) serviceOptions(ctx context.Context) (*cid.Options, error) {
	if o.ConfigURL == "" {
		ret := o.Options
		return &ret, nil
	}
	ret, err := cid.LoadOptions(ctx, o.ConfigURL)
	if err != nil {
		return nil, err
	}
	overlay(ret, &o.Options)
	return ret, nil
}

func overlay(dest, src *cid.Options) {
	for _, field := range []struct {
		dest *string
		src  string
	}{
		{&dest.URL, src.URL},
		{&dest.APIKey, src.APIKey},
		{&dest.APIKeySecret, src.APIKeySecret},
		{&dest.APIKeySecretKey, src.APIKeySecretKey},
		{&dest.Origin, src.Origin},
		{&dest.Referrer, src.Referrer},
		{&dest.TokenName, src.TokenName},
		{&dest.StoreURL, src.StoreURL},
		{&dest.ProxyOrigin, src.ProxyOrigin},
	} {
		if field.src != "" {
			*field.dest = field.src
		}
	}
	if src.TimeoutMs != 0 {
		dest.TimeoutMs = src.TimeoutMs
	}
	if src.PollIntervalMs != 0 {
		dest.PollIntervalMs = src.PollIntervalMs
	}
}
