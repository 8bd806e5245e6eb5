package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/powerhintd/internal/activity"
	"codeberg.org/mutker/powerhintd/internal/api"
	"codeberg.org/mutker/powerhintd/internal/config"
	"codeberg.org/mutker/powerhintd/internal/errors"
	"codeberg.org/mutker/powerhintd/internal/gpu"
	"codeberg.org/mutker/powerhintd/internal/hint"
	"codeberg.org/mutker/powerhintd/internal/logger"
	"codeberg.org/mutker/powerhintd/internal/metrics"
	"codeberg.org/mutker/powerhintd/internal/override"
	"codeberg.org/mutker/powerhintd/internal/pid"
	"codeberg.org/mutker/powerhintd/internal/power"
	"codeberg.org/mutker/powerhintd/internal/session"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the daemon",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Debug().Msg("Config loaded")

	if err := pid.Write(cfg.PIDDir); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(cfg.PIDDir); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return serve(ctx, cfg)
}

func serve(ctx context.Context, cfg *config.Config) error {
	errFactory := errors.New()
	log := logger.Default()

	catalog, err := hint.LoadCatalog(cfg.HintCatalog)
	if err != nil {
		return err
	}

	hintOpts := []hint.Option{hint.WithLogger(log)}
	if cfg.GPU.Enabled {
		dev, err := gpu.Open(cfg.GPU.Index, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := dev.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to restore GPU defaults")
			}
		}()
		hintOpts = append(hintOpts,
			hint.WithWriterFactory(gpu.NodeTypePower, func(hint.NodeSpec) (hint.Writer, error) {
				return dev.PowerNode(), nil
			}),
			hint.WithWriterFactory(gpu.NodeTypeFan, func(hint.NodeSpec) (hint.Writer, error) {
				return dev.FanNode(), nil
			}),
		)
	}

	manager, err := hint.NewManager(catalog, hintOpts...)
	if err != nil {
		return err
	}
	if err := manager.Start(); err != nil {
		logger.Warn().Err(err).Msg("Some hint nodes could not be reset")
	}
	defer func() {
		if err := manager.Stop(); err != nil {
			logger.Warn().Err(err).Msg("Failed to stop hint manager cleanly")
		}
	}()

	hook, err := override.New(cfg.Device, log)
	if err != nil {
		return err
	}

	props, err := config.LoadProperties(cfg.PropertiesFile)
	if err != nil {
		return err
	}

	collector, err := metrics.NewService(metrics.Config{
		DBPath:       cfg.Metrics.DBPath,
		Enabled:      cfg.Metrics.Enabled,
		BatchSize:    cfg.Metrics.BatchSize,
		BatchTimeout: cfg.Metrics.BatchTimeout,
	}, log.With("metrics"))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitFailed, err)
	}
	defer func() {
		if err := collector.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close metrics")
		}
	}()

	detector := activity.NewDetector(
		time.Duration(cfg.Interaction.MinDurationMs)*time.Millisecond,
		time.Duration(cfg.Interaction.MaxDurationMs)*time.Millisecond,
		log,
	)

	coordinator := power.New(manager,
		power.WithLogger(log),
		power.WithInterfaceVersion(cfg.InterfaceVersion),
		power.WithDeviceHook(hook),
		power.WithSessionRegistry(session.NewRegistry(log)),
		power.WithActivityDetector(detector),
		power.WithProperties(props),
		power.WithRecorder(collector),
	)

	logger.Info().Str("listen", cfg.Listen).Msg("powerhintd started")

	if err := api.NewServer(coordinator, log).Serve(ctx, cfg.Listen); err != nil {
		return err
	}

	logger.Info().Msg("Exiting...")

	return nil
}
