package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Alp4ka/pagequery/internal/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the tables and insert the demo teams and members",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx := logger.ContextWithLogger(cmd.Context(), log)

		store, closeStore, err := openStore(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeStore(); err != nil {
				log.Error("Error closing store", zap.Error(err))
			}
		}()

		svc, err := newService(store, cfg)
		if err != nil {
			return err
		}

		return svc.Seed(ctx)
	},
}
