package resolver

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/viant/cid/internal/collection"
	"github.com/viant/cid/store"
	"github.com/viant/cid/token"
	"github.com/viant/cid/transport"
)

// Callback receives the result of a resolution. Exactly one of result and err
// is meaningful.
type Callback func(result Result, err error)

// Fetcher executes one identity request, following at most one alternate endpoint,
// and delivers exactly one outcome.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint transport.Endpoint, payload *transport.Request, timeout time.Duration, callback transport.Callback)
}

var _ Fetcher = (*transport.Fetcher)(nil)

// Service resolves scoped client identifiers. Concurrent callers asking for the
// same scope share one resolution and receive the same result.
type Service struct {
	store        store.Store
	fetcher      Fetcher
	url          string
	referrer     func() string
	proxyOrigin  *regexp.Regexp
	timeout      time.Duration
	pollInterval time.Duration
	pending      *collection.Queues[string, Callback]
	logger       *slog.Logger
	ctx          context.Context
	cancel       context.CancelFunc
}

// Resolve resolves the client identifier for scope and invokes callback once
// with the outcome, from another goroutine. If a resolution for scope is already
// in flight the callback joins it and no new request is made.
func (s *Service) Resolve(scope, apiKey string, callback Callback) {
	if !s.pending.Enqueue(scope, callback) {
		s.logger.Debug("joined pending resolution", "scope", scope, "waiting", s.pending.Len(scope))
		return
	}
	go s.resolve(scope, apiKey)
}

// ResolveContext is the blocking form of Resolve. Cancelling ctx stops the wait
// but not the resolution other callers may share.
func (s *Service) ResolveContext(ctx context.Context, scope, apiKey string) (Result, error) {
	type outcome struct {
		result Result
		err    error
	}
	done := make(chan outcome, 1)
	s.Resolve(scope, apiKey, func(result Result, err error) {
		done <- outcome{result: result, err: err}
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case ret := <-done:
		return ret.result, ret.err
	}
}

// Close stops resolutions that are still waiting; their callers receive
// context.Canceled.
func (s *Service) Close() error {
	s.cancel()
	return nil
}

func (s *Service) resolve(scope, apiKey string) {
	logger := s.logger.With("resolution", uuid.NewString(), "scope", scope)
	s.run(s.ctx, logger, scope, apiKey, func(result Result, err error) {
		if err != nil {
			logger.Info("resolution failed", "error", err)
		} else {
			logger.Info("resolution completed", "found", result.Found(), "optOut", result.OptOut)
		}
		for _, callback := range s.pending.Drain(scope) {
			callback(result, err)
		}
	})
}

func (s *Service) run(ctx context.Context, logger *slog.Logger, scope, apiKey string, done Callback) {
	current, err := s.awaitSettled(ctx, logger)
	if err != nil {
		done(Result{}, err)
		return
	}
	next := decide(current, s.referrer(), s.proxyOrigin)
	switch next.action {
	case actionOptOut:
		done(Result{OptOut: true}, nil)
		return
	case actionNotFound:
		done(Result{}, nil)
		return
	case actionFail:
		done(Result{}, next.err)
		return
	}
	if next.markRetrieving {
		s.write(ctx, logger, token.RetrievingToken, s.timeout)
	}
	endpoint := transport.Endpoint{URL: s.url, APIKey: apiKey}
	payload := &transport.Request{OriginScope: scope, SecurityToken: next.replay}
	logger.Debug("fetching client id", "replay", next.replay != "")
	s.fetcher.Fetch(ctx, endpoint, payload, s.timeout, func(response *transport.Response, err error) {
		done(s.record(ctx, logger, response, err))
	})
}

// record stores the token for a fetch outcome and returns what callers receive.
func (s *Service) record(ctx context.Context, logger *slog.Logger, response *transport.Response, err error) (Result, error) {
	switch {
	case err != nil && s.ctx.Err() != nil:
		// closed mid-fetch: the retrieving marker expires on its own
		return Result{}, err
	case err != nil:
		s.write(ctx, logger, token.ErrorToken, s.timeout)
		return Result{}, err
	case response.OptOut:
		s.write(ctx, logger, token.OptOutToken, token.OptOutTTL)
		return Result{OptOut: true}, nil
	case response.ClientID != "":
		s.write(ctx, logger, token.NewSecurity(response.SecurityToken), token.SecurityTTL)
		return Result{ClientID: response.ClientID}, nil
	default:
		s.write(ctx, logger, token.NotFoundToken, token.NotFoundTTL)
		return Result{}, nil
	}
}

func (s *Service) write(ctx context.Context, logger *slog.Logger, t token.Token, ttl time.Duration) {
	// the outcome is delivered even when the store rejects the write
	if err := s.store.Write(context.WithoutCancel(ctx), t, ttl); err != nil {
		logger.Warn("failed to persist token", "kind", t.Kind.String(), "error", err)
	}
}

// New creates a Service on top of tokens.
func New(tokens store.Store, options ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	ret := &Service{
		store:        tokens,
		url:          DefaultURL,
		referrer:     func() string { return "" },
		proxyOrigin:  DefaultProxyOrigin,
		timeout:      DefaultTimeout,
		pollInterval: DefaultPollInterval,
		pending:      collection.NewQueues[string, Callback](),
		logger:       slog.Default(),
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.fetcher == nil {
		ret.fetcher = transport.New(transport.WithLogger(ret.logger))
	}
	return ret
}
