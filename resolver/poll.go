package resolver

import (
	"context"
	"log/slog"
	"time"

	"github.com/viant/cid/token"
)

// awaitSettled re-reads the store every poll interval until the token is not
// the retrieving marker. The marker carries the fetch timeout as its TTL, so a
// marker left by a resolution that never finished expires on its own.
func (s *Service) awaitSettled(ctx context.Context, logger *slog.Logger) (token.Token, error) {
	var ticker *time.Ticker
	started := time.Now()
	for {
		current, err := s.store.Read(ctx)
		if err != nil {
			return token.None, err
		}
		if current.Kind != token.Retrieving {
			if ticker != nil {
				ticker.Stop()
				logger.Debug("resolution in flight elsewhere settled", "waited", time.Since(started))
			}
			return current, nil
		}
		if ticker == nil {
			logger.Debug("waiting for resolution in flight elsewhere")
			ticker = time.NewTicker(s.pollInterval)
		}
		select {
		case <-ctx.Done():
			ticker.Stop()
			return token.None, ctx.Err()
		case <-ticker.C:
		}
	}
}
