package store

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/cid/internal/clock"
	"github.com/viant/cid/token"
)

// DefaultName is the entry name the token is kept under.
const DefaultName = "AMP_TOKEN"

// Backend is a persistent key-value store with per-entry expiry, such as a
// cookie jar. Expired entries must read as absent.
type Backend interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, value string, expires time.Time) error
}

// Store keeps the single client identifier token.
type Store interface {
	// Read returns the current token, or token.None when nothing is stored.
	Read(ctx context.Context) (token.Token, error)
	// Write stores t for ttl. Writing an empty token is a no-op.
	Write(ctx context.Context, t token.Token, ttl time.Duration) error
}

type Option func(*tokenStore)

// WithName overrides the entry name.
func WithName(name string) Option {
	return func(s *tokenStore) {
		if name != "" {
			s.name = name
		}
	}
}

// WithClock sets the clock used to compute expiry times.
func WithClock(c clock.Clock) Option {
	return func(s *tokenStore) {
		s.clock = c
	}
}

type tokenStore struct {
	backend Backend
	name    string
	clock   clock.Clock
}

func (s *tokenStore) Read(ctx context.Context) (token.Token, error) {
	raw, ok, err := s.backend.Get(ctx, s.name)
	if err != nil {
		return token.None, fmt.Errorf("failed to read %s: %w", s.name, err)
	}
	if !ok {
		return token.None, nil
	}
	return token.Parse(raw), nil
}

func (s *tokenStore) Write(ctx context.Context, t token.Token, ttl time.Duration) error {
	if t.Value == "" {
		return nil
	}
	if err := s.backend.Set(ctx, s.name, t.Value, s.clock.Now().Add(ttl)); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.name, err)
	}
	return nil
}

// New creates a Store on top of backend.
func New(backend Backend, options ...Option) Store {
	ret := &tokenStore{
		backend: backend,
		name:    DefaultName,
		clock:   clock.Real(),
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}
