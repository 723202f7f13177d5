package events

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/evetabi/auction/internal/config"
)

const connectAttempts = 3

// closableSink is a Sink holding a broker connection.
type closableSink interface {
	Sink
	io.Closer
}

// Open builds a Bus over every broker cfg names. A broker that stays
// unreachable after a few attempts is logged and left out, so the engine
// still serves bids without it. The returned func closes all connections.
func Open(ctx context.Context, cfg config.EventsConfig, logger *slog.Logger) (*Bus, func()) {
	if logger == nil {
		logger = slog.Default()
	}

	var sinks []closableSink
	if cfg.NATSURL != "" {
		if s, err := connect(ctx, logger, "nats", func() (closableSink, error) {
			return NewNATSSink(ctx, cfg.NATSURL, cfg.NATSStream)
		}); err == nil {
			sinks = append(sinks, s)
		}
	}
	if cfg.RedisAddr != "" {
		if s, err := connect(ctx, logger, "redis", func() (closableSink, error) {
			return NewRedisSink(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		}); err == nil {
			sinks = append(sinks, s)
		}
	}

	plain := make([]Sink, len(sinks))
	for i, s := range sinks {
		plain[i] = s
	}
	closeAll := func() {
		for _, s := range sinks {
			if err := s.Close(); err != nil {
				logger.Warn("event sink close failed", "sink", s.Name(), "err", err)
			}
		}
	}
	return NewBus(logger, plain...), closeAll
}

func connect(ctx context.Context, logger *slog.Logger, name string, dial func() (closableSink, error)) (closableSink, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.Reset()

	s, err := backoff.Retry(ctx, dial,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(connectAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Warn("event sink connect failed, retrying", "sink", name, "wait", wait, "err", err)
		}))
	if err != nil {
		logger.Error("event sink disabled", "sink", name, "err", err)
		return nil, err
	}
	logger.Info("event sink connected", "sink", name)
	return s, nil
}
