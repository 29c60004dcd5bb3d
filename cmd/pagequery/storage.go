package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Alp4ka/pagequery/internal/config"
	"github.com/Alp4ka/pagequery/internal/logger"
	"github.com/Alp4ka/pagequery/internal/member"
	"github.com/Alp4ka/pagequery/internal/member/bunstore"
	"github.com/Alp4ka/pagequery/internal/member/gormstore"
	"github.com/Alp4ka/pagequery/internal/member/memstore"
)

type closeFunc func() error

// openStore connects the configured store and creates its tables.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (member.Store, closeFunc, error) {
	switch cfg.ORM {
	case config.ORMMemory:
		return memstore.New(), func() error { return nil }, nil
	case config.ORMGorm:
		return openGORM(ctx, cfg, log)
	case config.ORMBun:
		return openBun(ctx, cfg, log)
	default:
		return nil, nil, fmt.Errorf("unsupported orm: %s", cfg.ORM)
	}
}

func openGORM(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (member.Store, closeFunc, error) {
	var dialector gorm.Dialector
	switch cfg.Dialect {
	case config.DialectPostgres:
		dialector = postgres.Open(cfg.DSN)
	case config.DialectMySQL:
		dialector = mysql.Open(cfg.DSN)
	case config.DialectSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, nil, fmt.Errorf("unsupported database dialect: %s", cfg.Dialect)
	}

	level := gormlogger.Warn
	if cfg.Debug {
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGORM(log, level).WithSlowThreshold(time.Duration(cfg.SlowQueryMs) * time.Millisecond),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open gorm %s: %w", cfg.Dialect, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("open gorm %s: %w", cfg.Dialect, err)
	}
	configurePool(sqlDB, cfg)

	store := gormstore.New(db)
	if err = store.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}

	return store, sqlDB.Close, nil
}

func openBun(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (member.Store, closeFunc, error) {
	var (
		driverName string
		dialect    schema.Dialect
	)
	switch cfg.Dialect {
	case config.DialectPostgres:
		driverName, dialect = "postgres", pgdialect.New()
	case config.DialectMySQL:
		driverName, dialect = "mysql", mysqldialect.New()
	case config.DialectSQLite:
		driverName, dialect = sqliteshim.ShimName, sqlitedialect.New()
	default:
		return nil, nil, fmt.Errorf("unsupported database dialect: %s", cfg.Dialect)
	}

	sqlDB, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open bun %s: %w", cfg.Dialect, err)
	}
	configurePool(sqlDB, cfg)

	db := bun.NewDB(sqlDB, dialect)
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	db.AddQueryHook(logger.NewBunHook(log, time.Duration(cfg.SlowQueryMs)*time.Millisecond))

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping bun %s: %w", cfg.Dialect, err)
	}

	store := bunstore.New(db)
	if err = store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return store, db.Close, nil
}

func configurePool(sqlDB *sql.DB, cfg config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
}
