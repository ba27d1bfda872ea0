package transport

import (
	neturl "net/url"
	"strings"
)

// Request is the body posted to the identity service.
type Request struct {
	OriginScope   string `json:"originScope"`
	SecurityToken string `json:"securityToken,omitempty"`
}

// Response is the body returned by the identity service.
type Response struct {
	ClientID      string         `json:"clientId,omitempty"`
	SecurityToken string         `json:"securityToken,omitempty"`
	OptOut        bool           `json:"optOut,omitempty"`
	AlternateURL  string         `json:"alternateUrl,omitempty"`
	Error         *ResponseError `json:"error,omitempty"`
}

type ResponseError struct {
	Message string `json:"message"`
}

// Endpoint is an identity service URL plus the API key sent as the key query parameter.
type Endpoint struct {
	URL    string
	APIKey string
}

// String returns the request URL.
func (e Endpoint) String() string {
	separator := "?"
	if strings.Contains(e.URL, "?") {
		separator = "&"
	}
	return e.URL + separator + "key=" + neturl.QueryEscape(e.APIKey)
}

// Alternate returns the endpoint at URL with the same API key.
func (e Endpoint) Alternate(URL string) Endpoint {
	return Endpoint{URL: URL, APIKey: e.APIKey}
}
