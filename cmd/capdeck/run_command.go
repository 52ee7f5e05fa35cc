package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"capdeck/internal/daemon"
	"capdeck/internal/ipc"
	"capdeck/internal/logging"
)

const historyCapacity = 64

func newRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the capture daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			level := cfg.Logging.Level
			if logLevel != "" {
				level = logLevel
			}
			logPath := filepath.Join(cfg.Paths.LogDir, "capdeck.log")
			logger, err := logging.New(logging.Options{
				Level:            level,
				Format:           cfg.Logging.Format,
				OutputPaths:      []string{"stdout", logPath},
				ErrorOutputPaths: []string{"stderr", logPath},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			history := logging.NewHistory(historyCapacity, slog.LevelWarn)
			logger = logging.TeeLogger(logger, history.Handler())

			d, err := daemon.New(cfg, logger, daemon.Options{History: history})
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			if err := d.Start(signalCtx); err != nil {
				return fmt.Errorf("start daemon: %w", err)
			}

			socket := ctx.socketPath()
			server, err := ipc.NewServer(signalCtx, socket, d, logger)
			if err != nil {
				return fmt.Errorf("start IPC server: %w", err)
			}
			defer server.Close()
			server.Serve()

			logger.Info("capdeck ready",
				logging.String(logging.FieldEventType, "daemon_ready"),
				logging.String("socket", socket),
				logging.String("config", ctx.configPath),
				logging.Int("pid", os.Getpid()),
			)

			<-signalCtx.Done()
			logger.Info("capdeck daemon shutting down")
			return nil
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	return cmd
}
