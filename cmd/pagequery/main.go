// Command pagequery serves paged member searches over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Alp4ka/pagequery/internal/config"
	"github.com/Alp4ka/pagequery/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:          "pagequery",
	Short:        "Paged member search service",
	SilenceUsage: true,
}

var (
	flagEnv    string
	flagConfig string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", config.GetEnv(), "environment: local, dev, docker, prod")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default: config/<env>.yaml)")

	rootCmd.AddCommand(serveCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads the configuration and builds the root logger.
func bootstrap() (config.Config, *zap.Logger, error) {
	var (
		cfg config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load(flagEnv)
	}
	if err != nil {
		return config.Config{}, nil, err
	}

	log, err := logger.NewLogger(flagEnv, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, err
	}

	return cfg, log.With(zap.String("env", flagEnv)), nil
}
