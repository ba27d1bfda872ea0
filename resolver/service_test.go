package resolver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/cid/store"
	"github.com/viant/cid/token"
	"github.com/viant/cid/transport"
)

type fetchCall struct {
	endpoint transport.Endpoint
	payload  transport.Request
	stored   token.Token
}

// stubFetcher records calls and replies asynchronously, optionally held by gate.
type stubFetcher struct {
	mu     sync.Mutex
	tokens store.Store
	calls  []fetchCall
	gate   chan struct{}
	reply  func(index int, payload *transport.Request) (*transport.Response, error)
}

func (s *stubFetcher) Fetch(ctx context.Context, endpoint transport.Endpoint, payload *transport.Request, timeout time.Duration, callback transport.Callback) {
	stored, _ := s.tokens.Read(ctx)
	s.mu.Lock()
	index := len(s.calls)
	s.calls = append(s.calls, fetchCall{endpoint: endpoint, payload: *payload, stored: stored})
	s.mu.Unlock()
	go func() {
		if s.gate != nil {
			<-s.gate
		}
		callback(s.reply(index, payload))
	}()
}

func (s *stubFetcher) recorded() []fetchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]fetchCall(nil), s.calls...)
}

var _ Fetcher = (*stubFetcher)(nil)

func replyWith(response *transport.Response, err error) func(int, *transport.Request) (*transport.Response, error) {
	return func(int, *transport.Request) (*transport.Response, error) {
		if err != nil {
			return nil, err
		}
		ret := *response
		return &ret, nil
	}
}

func newTestService(t *testing.T, reply func(int, *transport.Request) (*transport.Response, error), options ...Option) (*Service, store.Store, *stubFetcher) {
	t.Helper()
	tokens := store.New(store.NewMemoryBackend())
	fetcher := &stubFetcher{tokens: tokens, reply: reply}
	options = append([]Option{
		WithFetcher(fetcher),
		WithPollInterval(5 * time.Millisecond),
		WithTimeout(time.Second),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, options...)
	srv := New(tokens, options...)
	t.Cleanup(func() { _ = srv.Close() })
	return srv, tokens, fetcher
}

func resolveWait(t *testing.T, srv *Service, scope string) (Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.ResolveContext(ctx, scope, "key-123")
}

func readToken(t *testing.T, tokens store.Store) token.Token {
	t.Helper()
	actual, err := tokens.Read(context.Background())
	require.NoError(t, err)
	return actual
}

func TestService_Resolve(t *testing.T) {
	var testCases = []struct {
		description   string
		initial       token.Token
		response      *transport.Response
		fetchErr      error
		referrer      string
		expectFetches int
		expectReplay  string
		expectStored  token.Token
		expectResult  Result
		expectErr     error
	}{
		{
			description:   "no token, identifier issued",
			response:      &transport.Response{SecurityToken: "token-12345", ClientID: "amp-cid-abc-123"},
			expectFetches: 1,
			expectStored:  token.Parse("token-12345"),
			expectResult:  Result{ClientID: "amp-cid-abc-123"},
		},
		{
			description:   "security token replayed and kept",
			initial:       token.Parse("token-54321"),
			response:      &transport.Response{ClientID: "amp-cid-abc-123"},
			expectFetches: 1,
			expectReplay:  "token-54321",
			expectStored:  token.Parse("token-54321"),
			expectResult:  Result{ClientID: "amp-cid-abc-123"},
		},
		{
			description:   "service opt out",
			response:      &transport.Response{OptOut: true},
			expectFetches: 1,
			expectStored:  token.OptOutToken,
			expectResult:  Result{OptOut: true},
		},
		{
			description:   "service returns nothing",
			response:      &transport.Response{},
			expectFetches: 1,
			expectStored:  token.NotFoundToken,
			expectResult:  Result{},
		},
		{
			description:  "cached opt out",
			initial:      token.OptOutToken,
			referrer:     "https://example.com",
			expectStored: token.OptOutToken,
			expectResult: Result{OptOut: true},
		},
		{
			description:  "cached not found",
			initial:      token.NotFoundToken,
			referrer:     "https://example.com",
			expectStored: token.NotFoundToken,
			expectResult: Result{},
		},
		{
			description:   "cached not found on proxy origin",
			initial:       token.NotFoundToken,
			referrer:      "https://example-com.cdn.ampproject.org/page.html",
			response:      &transport.Response{SecurityToken: "token-1", ClientID: "cid-1"},
			expectFetches: 1,
			expectStored:  token.Parse("token-1"),
			expectResult:  Result{ClientID: "cid-1"},
		},
		{
			description:  "cached error",
			initial:      token.ErrorToken,
			expectStored: token.ErrorToken,
			expectErr:    ErrPreviousFailure,
		},
		{
			description:  "unknown reserved value",
			initial:      token.Parse("$BOGUS"),
			expectStored: token.Parse("$BOGUS"),
			expectErr:    ErrInvalidState,
		},
		{
			description:   "fetch failure",
			fetchErr:      transport.ErrTimeout,
			expectFetches: 1,
			expectStored:  token.ErrorToken,
			expectErr:     transport.ErrTimeout,
		},
	}

	for _, testCase := range testCases {
		referrer := testCase.referrer
		srv, tokens, fetcher := newTestService(t, replyWith(testCase.response, testCase.fetchErr), WithReferrer(func() string { return referrer }))
		if !testCase.initial.IsAbsent() {
			require.NoError(t, tokens.Write(context.Background(), testCase.initial, time.Hour), testCase.description)
		}

		result, err := resolveWait(t, srv, "scope-abc")
		if testCase.expectErr != nil {
			assert.True(t, errors.Is(err, testCase.expectErr), testCase.description)
		} else {
			assert.NoError(t, err, testCase.description)
		}
		assert.Equal(t, testCase.expectResult, result, testCase.description)
		assert.Equal(t, testCase.expectStored, readToken(t, tokens), testCase.description)

		calls := fetcher.recorded()
		require.Len(t, calls, testCase.expectFetches, testCase.description)
		if testCase.expectFetches == 0 {
			continue
		}
		assert.Equal(t, DefaultURL, calls[0].endpoint.URL, testCase.description)
		assert.Equal(t, "key-123", calls[0].endpoint.APIKey, testCase.description)
		assert.Equal(t, "scope-abc", calls[0].payload.OriginScope, testCase.description)
		assert.Equal(t, testCase.expectReplay, calls[0].payload.SecurityToken, testCase.description)
		if testCase.expectReplay == "" {
			assert.Equal(t, token.RetrievingToken, calls[0].stored, "retrieving marker written before fetch: "+testCase.description)
		} else {
			assert.Equal(t, testCase.expectReplay, calls[0].stored.Value, "security token kept during fetch: "+testCase.description)
		}
	}
}

func TestService_SameScopeFetchesOnce(t *testing.T) {
	srv, tokens, fetcher := newTestService(t, replyWith(&transport.Response{SecurityToken: "token-12345", ClientID: "amp-cid-abc-123"}, nil))
	fetcher.gate = make(chan struct{})

	var mu sync.Mutex
	var order []int
	var results []Result
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		i := i
		srv.Resolve("scope-abc", "key-123", func(result Result, err error) {
			defer wg.Done()
			assert.NoError(t, err)
			mu.Lock()
			order = append(order, i)
			results = append(results, result)
			mu.Unlock()
		})
	}
	close(fetcher.gate)
	wg.Wait()

	assert.Len(t, fetcher.recorded(), 1)
	assert.Equal(t, []int{0, 1, 2}, order)
	for _, result := range results {
		assert.Equal(t, Result{ClientID: "amp-cid-abc-123"}, result)
	}
	assert.Equal(t, "token-12345", readToken(t, tokens).Value)

	// the pending entry is gone, so a later call starts a new resolution replaying the token
	_, err := resolveWait(t, srv, "scope-abc")
	require.NoError(t, err)
	calls := fetcher.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "token-12345", calls[1].payload.SecurityToken)
}

func TestService_DifferentScopesFetchSeparately(t *testing.T) {
	srv, _, fetcher := newTestService(t, func(index int, payload *transport.Request) (*transport.Response, error) {
		if index == 0 {
			return &transport.Response{SecurityToken: "token-12345", ClientID: "amp-cid-11111"}, nil
		}
		return &transport.Response{ClientID: "amp-cid-22222"}, nil
	})
	fetcher.gate = make(chan struct{})

	type outcome struct {
		scope  string
		result Result
		err    error
	}
	done := make(chan outcome, 2)
	srv.Resolve("scope-abc-1", "key-123", func(result Result, err error) { done <- outcome{"scope-abc-1", result, err} })
	require.Eventually(t, func() bool { return len(fetcher.recorded()) == 1 }, time.Second, time.Millisecond)
	srv.Resolve("scope-abc-2", "key-123", func(result Result, err error) { done <- outcome{"scope-abc-2", result, err} })

	// the second scope is held by the retrieving marker of the first
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, fetcher.recorded(), 1)
	close(fetcher.gate)

	results := map[string]Result{}
	for i := 0; i < 2; i++ {
		ret := <-done
		require.NoError(t, ret.err)
		results[ret.scope] = ret.result
	}
	assert.Equal(t, Result{ClientID: "amp-cid-11111"}, results["scope-abc-1"])
	assert.Equal(t, Result{ClientID: "amp-cid-22222"}, results["scope-abc-2"])

	calls := fetcher.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "scope-abc-1", calls[0].payload.OriginScope)
	assert.Equal(t, "scope-abc-2", calls[1].payload.OriginScope)
	assert.Equal(t, "token-12345", calls[1].payload.SecurityToken)
}

func TestService_StaleRetrievingMarkerExpires(t *testing.T) {
	srv, tokens, fetcher := newTestService(t, replyWith(&transport.Response{ClientID: "cid-1", SecurityToken: "t-1"}, nil))
	require.NoError(t, tokens.Write(context.Background(), token.RetrievingToken, 60*time.Millisecond))

	started := time.Now()
	result, err := resolveWait(t, srv, "scope-abc")
	require.NoError(t, err)
	assert.Equal(t, "cid-1", result.ClientID)
	assert.GreaterOrEqual(t, time.Since(started), 60*time.Millisecond)
	assert.Len(t, fetcher.recorded(), 1)
}

func TestService_CloseStopsWaiting(t *testing.T) {
	srv, tokens, fetcher := newTestService(t, replyWith(&transport.Response{}, nil))
	require.NoError(t, tokens.Write(context.Background(), token.RetrievingToken, time.Hour))

	done := make(chan error, 1)
	srv.Resolve("scope-abc", "key-123", func(result Result, err error) { done <- err })
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, srv.Close())

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled), err)
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked after Close")
	}
	assert.Empty(t, fetcher.recorded())
}

func TestService_CloseDuringFetchKeepsMarker(t *testing.T) {
	srv, tokens, fetcher := newTestService(t, replyWith(nil, transport.ErrAborted))
	fetcher.gate = make(chan struct{})

	done := make(chan error, 1)
	srv.Resolve("scope-abc", "key-123", func(result Result, err error) { done <- err })
	require.Eventually(t, func() bool { return len(fetcher.recorded()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, srv.Close())
	close(fetcher.gate)

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, transport.ErrAborted), err)
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked after Close")
	}
	assert.Equal(t, token.RetrievingToken, readToken(t, tokens), "closing is not recorded as a failure")
}

type failingBackend struct {
	*store.MemoryBackend
}

func (failingBackend) Set(context.Context, string, string, time.Time) error {
	return errors.New("disk full")
}

func TestService_StoreWriteFailure(t *testing.T) {
	tokens := store.New(failingBackend{MemoryBackend: store.NewMemoryBackend()})
	fetcher := &stubFetcher{tokens: tokens, reply: replyWith(&transport.Response{ClientID: "cid-1", SecurityToken: "t-1"}, nil)}
	logs := &bytes.Buffer{}
	srv := New(tokens, WithFetcher(fetcher), WithLogger(slog.New(slog.NewTextHandler(logs, nil))))
	defer srv.Close()

	result, err := resolveWait(t, srv, "scope-abc")
	require.NoError(t, err)
	assert.Equal(t, "cid-1", result.ClientID)
	assert.Contains(t, logs.String(), "failed to persist token")
	assert.Contains(t, logs.String(), "disk full")
}

func TestService_ResolveContextCancelled(t *testing.T) {
	srv, tokens, _ := newTestService(t, replyWith(&transport.Response{}, nil))
	require.NoError(t, tokens.Write(context.Background(), token.RetrievingToken, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := srv.ResolveContext(ctx, "scope-abc", "key-123")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "$OPT_OUT", Result{OptOut: true}.String())
	assert.Equal(t, "cid", Result{ClientID: "cid"}.String())
	assert.Equal(t, "", Result{}.String())
	assert.False(t, Result{}.Found())
}
