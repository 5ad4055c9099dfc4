package redis

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glowcart/glowcart-backend/pkg/logger"
)

// slowLog reports commands that fail or exceed a latency threshold. Misses
// (redis.Nil) are normal for idempotency lookups and stay quiet.
type slowLog struct {
	logg      *logger.Logger
	threshold time.Duration
}

var _ redis.Hook = slowLog{}

func (h slowLog) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.logg.Warn(h.logg.WithFields(ctx, map[string]any{"addr": addr, "error": err.Error()}), "redis.dial_failed")
		}
		return conn, err
	}
}

func (h slowLog) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe(ctx, cmd.Name(), time.Since(start), err)
		return err
	}
}

func (h slowLog) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.observe(ctx, "pipeline", time.Since(start), err)
		return err
	}
}

func (h slowLog) observe(ctx context.Context, name string, elapsed time.Duration, err error) {
	failed := err != nil && !errors.Is(err, redis.Nil)
	slow := h.threshold > 0 && elapsed > h.threshold
	if !failed && !slow {
		return
	}
	fields := map[string]any{"command": name, "duration_ms": elapsed.Milliseconds()}
	if failed {
		fields["error"] = err.Error()
		h.logg.Warn(h.logg.WithFields(ctx, fields), "redis.command_failed")
		return
	}
	h.logg.Warn(h.logg.WithFields(ctx, fields), "redis.slow_command")
}
