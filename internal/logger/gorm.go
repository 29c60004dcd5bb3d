package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const DefaultSlowThreshold = 200 * time.Millisecond

// GORM adapts a zap logger to gorm's logger.Interface. Statements are logged
// through the request logger found in the context, falling back to base.
type GORM struct {
	base          *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func NewGORM(base *zap.Logger, level gormlogger.LogLevel) *GORM {
	return &GORM{
		base:          base.WithOptions(zap.AddCallerSkip(3)),
		level:         level,
		slowThreshold: DefaultSlowThreshold,
	}
}

// WithSlowThreshold sets the duration above which statements are logged as
// warnings. Zero disables slow statement logging.
func (l *GORM) WithSlowThreshold(threshold time.Duration) *GORM {
	ret := *l
	ret.slowThreshold = threshold
	return &ret
}

func (l *GORM) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	ret := *l
	ret.level = level
	return &ret
}

func (l *GORM) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.logger(ctx).Info(fmt.Sprintf(msg, args...))
	}
}

func (l *GORM) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.logger(ctx).Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *GORM) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.logger(ctx).Error(fmt.Sprintf(msg, args...))
	}
}

func (l *GORM) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.logger(ctx).Error("sql statement failed", statementFields(sql, rows, elapsed, zap.Error(err))...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.logger(ctx).Warn("slow sql statement", statementFields(sql, rows, elapsed, zap.Duration("threshold", l.slowThreshold))...)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.logger(ctx).Debug("sql statement", statementFields(sql, rows, elapsed)...)
	}
}

func (l *GORM) logger(ctx context.Context) *zap.Logger {
	return fromContextOr(ctx, l.base)
}

func statementFields(sql string, rows int64, elapsed time.Duration, extra ...zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}, extra...)
}

var _ gormlogger.Interface = (*GORM)(nil)
