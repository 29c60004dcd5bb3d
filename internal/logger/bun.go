package logger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// BunHook logs failed and slow bun queries through the request logger found
// in the context, falling back to base.
type BunHook struct {
	base          *zap.Logger
	slowThreshold time.Duration
}

func NewBunHook(base *zap.Logger, slowThreshold time.Duration) *BunHook {
	return &BunHook{
		base:          base,
		slowThreshold: slowThreshold,
	}
}

func (h *BunHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *BunHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	elapsed := time.Since(event.StartTime)

	switch {
	case event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows):
		fromContextOr(ctx, h.base).Error("sql query failed",
			zap.String("operation", event.Operation()),
			zap.String("sql", event.Query),
			zap.Duration("elapsed", elapsed),
			zap.Error(event.Err),
		)
	case h.slowThreshold > 0 && elapsed > h.slowThreshold:
		fromContextOr(ctx, h.base).Warn("slow sql query",
			zap.String("operation", event.Operation()),
			zap.String("sql", event.Query),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", h.slowThreshold),
		)
	}
}

var _ bun.QueryHook = (*BunHook)(nil)
