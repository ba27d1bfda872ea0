package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Callback receives the outcome of a fetch. Exactly one of response and err is set.
type Callback func(response *Response, err error)

// Fetcher posts JSON payloads to the identity service with a hard timeout.
type Fetcher struct {
	transport http.RoundTripper
	jar       http.CookieJar
	client    *http.Client
	logger    *slog.Logger
}

// New creates a Fetcher.
func New(options ...Option) *Fetcher {
	ret := &Fetcher{
		transport: http.DefaultTransport,
		logger:    slog.Default(),
	}
	for _, opt := range options {
		opt(ret)
	}
	ret.client = &http.Client{Transport: WrapWithCookieJar(ret.transport, ret.jar)}
	return ret
}

// Fetch posts payload to endpoint and delivers the outcome to callback exactly once,
// from another goroutine. A response naming an alternateUrl is re-posted once to that
// URL (with the same API key and payload); only the second outcome is delivered.
// timeout bounds both hops together.
func (f *Fetcher) Fetch(ctx context.Context, endpoint Endpoint, payload *Request, timeout time.Duration, callback Callback) {
	data, err := json.Marshal(payload)
	if err != nil {
		go callback(nil, fmt.Errorf("failed to encode request: %w", err))
		return
	}
	deadline := time.Now().Add(timeout)
	f.fetchJSON(ctx, endpoint.String(), data, timeout, timeout, func(response *Response, err error) {
		if err != nil || response.AlternateURL == "" {
			callback(response, err)
			return
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			callback(nil, fmt.Errorf("%w after %s", ErrTimeout, timeout))
			return
		}
		alternate := endpoint.Alternate(response.AlternateURL)
		f.logger.Debug("following alternate endpoint", "url", alternate.URL, "remaining", remaining)
		f.fetchJSON(ctx, alternate.String(), data, remaining, timeout, callback)
	})
}

// Do is the blocking form of Fetch.
func (f *Fetcher) Do(ctx context.Context, endpoint Endpoint, payload *Request, timeout time.Duration) (*Response, error) {
	type outcome struct {
		response *Response
		err      error
	}
	done := make(chan outcome, 1)
	f.Fetch(ctx, endpoint, payload, timeout, func(response *Response, err error) {
		done <- outcome{response: response, err: err}
	})
	result := <-done
	return result.response, result.err
}

// fetchJSON posts data to URL and gives up after wait, reporting the overall timeout.
func (f *Fetcher) fetchJSON(ctx context.Context, URL string, data []byte, wait, timeout time.Duration, callback Callback) {
	var once sync.Once
	deliver := func(response *Response, err error) {
		once.Do(func() { callback(response, err) })
	}
	ctx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(wait, func() {
		deliver(nil, fmt.Errorf("%w after %s", ErrTimeout, timeout))
		cancel()
	})
	go func() {
		defer cancel()
		response, err := f.post(ctx, URL, data)
		timer.Stop()
		deliver(response, err)
	}()
}

func (f *Fetcher) post(ctx context.Context, URL string, data []byte) (*Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, URL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	request.Header.Set("Content-Type", "text/plain;charset=utf-8")
	request.Header.Set("Accept", "application/json")
	httpResponse, err := f.client.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrAborted, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer httpResponse.Body.Close()
	status := httpResponse.StatusCode
	if status < 100 || status > 599 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, status)
	}
	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &InvalidResponseError{StatusCode: status, Body: string(body), Err: errNotObject}
	}
	response := &Response{}
	if err = json.Unmarshal(body, response); err != nil {
		return nil, &InvalidResponseError{StatusCode: status, Body: string(body), Err: err}
	}
	if status >= 400 {
		ret := &ServiceError{StatusCode: status, Body: string(body)}
		if response.Error != nil {
			ret.Message = response.Error.Message
		}
		return nil, ret
	}
	return response, nil
}
