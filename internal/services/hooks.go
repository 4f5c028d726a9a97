package services

import (
	"context"
	"fmt"
	"time"

	"campus-food-backend/internal/metrics"

	"github.com/rs/zerolog/log"
)

const hookTimeout = 10 * time.Second

// hook is a side effect that runs after the primary write has committed
type hook struct {
	name string
	fn   func(ctx context.Context) error
}

// runAfterCommit executes hooks in order. Each hook is isolated: a returned
// error or panic is logged and counted, and the next hook still runs.
func runAfterCommit(ctx context.Context, op string, hooks ...hook) {
	base := context.WithoutCancel(ctx)
	for _, h := range hooks {
		if err := runHook(base, h); err != nil {
			metrics.SideEffectFailuresTotal.WithLabelValues(h.name).Inc()
			log.Warn().
				Err(err).
				Str("operation", op).
				Str("hook", h.name).
				Msg("Post-commit side effect failed")
		}
	}
}

func runHook(ctx context.Context, h hook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, hookTimeout)
	defer cancel()
	return h.fn(ctx)
}
