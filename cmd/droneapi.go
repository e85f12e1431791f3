package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"droneapi/internal/pkg/logging"
	"droneapi/pkg/config"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {

	var configFile string

	cmd := &cobra.Command{
		Use:           "droneapi",
		Short:         "Drone API gateway",
		Long:          "Gateway serving drone configs, statuses and temperature logs from the config and log stores.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configFile)
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "path to an optional config file (yaml, json or toml)")

	return cmd
}

func run(ctx context.Context, configFile string) error {

	boot := zap.Must(zap.NewDevelopment()).Named("boot")
	defer func() { _ = boot.Sync() }()

	boot.Info("initializing drone api")
	cfg, err := config.Parse(configFile)
	if err != nil {
		boot.Error("missing or invalid configuration", zap.Error(err))
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		boot.Error("could not initialize logger", zap.Error(err))
		return err
	}
	defer func() { _ = logger.Sync() }()

	env, err := newEnvironment(cfg, logger)
	if err != nil {
		logger.Error("could not initialize environment", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := env.serve(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}

	return nil
}
