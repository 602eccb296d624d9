package auth

import (
	"context"
	"time"
)

// DefaultPurgeInterval is how often expired tokens are removed.
const DefaultPurgeInterval = time.Hour

// StartPurger deletes expired tokens every interval until ctx is done.
func (s *Service) StartPurger(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	go s.purgeLoop(ctx, interval)
}

func (s *Service) purgeLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				s.logger.Warn().Err(err).Msg("purge expired tokens")
				continue
			}
			if n > 0 {
				s.logger.Debug().Int64("count", n).Msg("purged expired tokens")
			}
		}
	}
}
