package main

import (
	"github.com/spf13/cobra"

	"github.com/pluribus-ai/pluribus/internal/config"
	"github.com/pluribus-ai/pluribus/internal/pkg/logger"
	"github.com/pluribus-ai/pluribus/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API relay server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DisableTLSVerify {
				logger.L().Warn("TLS certificate verification is DISABLED - for debugging only!")
			}
			return server.Run(cfg)
		},
	}
}
