package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically expires conversations abandoned by their reporter.
type Sweeper struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewSweeper schedules engine.ExpireIdle(ttl) on a cron spec such as "@every 10m".
func NewSweeper(engine *Engine, spec string, ttl time.Duration, logger *zap.Logger) (*Sweeper, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n := engine.ExpireIdle(ttl); n > 0 {
			logger.Info("Expired abandoned conversations", zap.Int("count", n), zap.Duration("ttl", ttl))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return &Sweeper{cron: c, logger: logger}, nil
}

// Run starts the schedule and blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("Session sweeper started")
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("Session sweeper stopped")
	return nil
}
