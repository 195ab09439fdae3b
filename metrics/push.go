package metrics

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// PushConfig configures pushing metrics to a prometheus push gateway.
type PushConfig struct {
	URL      string
	Username string
	Password string
	Period   time.Duration
	// Grouping labels, such as node and network.
	Grouping map[string]string
}

// Push pushes the default registry to the configured gateway every
// cfg.Period until ctx is canceled.
func Push(ctx context.Context, logger *zap.Logger, clock clockwork.Clock, cfg PushConfig) {
	pusher := push.New(cfg.URL, Namespace).Gatherer(prometheus.DefaultGatherer)
	for k, v := range cfg.Grouping {
		pusher = pusher.Grouping(k, v)
	}
	if cfg.Username != "" && cfg.Password != "" {
		pusher = pusher.BasicAuth(cfg.Username, cfg.Password)
	}
	ticker := clock.NewTicker(cfg.Period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := pusher.PushContext(ctx); err != nil {
				logger.Warn("failed to push metrics", zap.Error(err))
			}
		}
	}
}
