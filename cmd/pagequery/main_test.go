package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Alp4ka/pagequery"
	"github.com/Alp4ka/pagequery/internal/config"
	"github.com/Alp4ka/pagequery/internal/member"
)

func TestOpenStore(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
	}{
		{name: "memory", cfg: config.DatabaseConfig{ORM: config.ORMMemory}},
		{name: "gorm sqlite", cfg: config.DatabaseConfig{ORM: config.ORMGorm, Dialect: config.DialectSQLite, DSN: ":memory:", MaxOpenConns: 1}},
		{name: "bun sqlite", cfg: config.DatabaseConfig{ORM: config.ORMBun, Dialect: config.DialectSQLite, DSN: ":memory:", MaxOpenConns: 1, Debug: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			store, closeStore, err := openStore(ctx, tt.cfg, zap.NewNop())
			if err != nil && tt.cfg.Dialect == config.DialectSQLite {
				t.Skipf("sqlite unavailable: %v", err)
			}
			require.NoError(t, err)
			t.Cleanup(func() { require.NoError(t, closeStore()) })

			svc, err := newService(store, config.Config{
				Database: tt.cfg,
				Paging:   config.PagingConfig{Policy: string(pagequery.PolicyDecoupledCount)},
			})
			require.NoError(t, err)
			require.Equal(t, pagequery.PolicyDecoupledCount, svc.DefaultPolicy())
			require.NoError(t, svc.Seed(ctx))

			page, err := svc.SearchPage(ctx, member.SearchCriteria{}, pagequery.NewPageRequest(0, 10), "")
			require.NoError(t, err)
			require.Len(t, page.Content, 10)
			require.EqualValues(t, member.SeedMembers, *page.Total)
		})
	}
}

func TestOpenStore_Unsupported(t *testing.T) {
	_, _, err := openStore(context.Background(), config.DatabaseConfig{ORM: "xorm"}, zap.NewNop())
	require.Error(t, err)

	_, _, err = openStore(context.Background(), config.DatabaseConfig{ORM: config.ORMGorm, Dialect: "oracle"}, zap.NewNop())
	require.Error(t, err)

	_, _, err = openStore(context.Background(), config.DatabaseConfig{ORM: config.ORMBun, Dialect: "oracle"}, zap.NewNop())
	require.Error(t, err)
}

func TestNewService_InvalidPolicy(t *testing.T) {
	_, err := newService(nil, config.Config{Paging: config.PagingConfig{Policy: "lazy"}})
	require.Error(t, err)
}
