package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"stopgame/internal/app"
	"stopgame/internal/config"
	httpTransport "stopgame/internal/transport/http"
)

const releaseVersion = "0.1.0"

func main() {
	cfg := config.Default()
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("STOPGAME")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "stopgame",
		Short:         "Host-authoritative server for the letter game: ready up, answer, vote, score.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate(cfg); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Server.Host, "bind", "b", cfg.Server.Host, "address to bind to (env: STOPGAME_BIND)")
	fs.StringVarP(&cfg.Server.Port, "port", "p", cfg.Server.Port, "port to listen on (env: STOPGAME_PORT)")
	fs.StringVar(&cfg.Server.Env, "env", cfg.Server.Env, "environment, development or production (env: STOPGAME_ENV)")
	fs.IntVar(&cfg.Game.RoomCodeLength, "room-code-length", cfg.Game.RoomCodeLength, "length of shareable room codes (env: STOPGAME_ROOM_CODE_LENGTH)")
	fs.DurationVar(&cfg.Game.StaleSessionTimeout, "session-timeout", cfg.Game.StaleSessionTimeout, "time before empty game sessions are removed (env: STOPGAME_SESSION_TIMEOUT)")
	fs.DurationVar(&cfg.Game.CleanupInterval, "cleanup-interval", cfg.Game.CleanupInterval, "how often stale sessions are swept (env: STOPGAME_CLEANUP_INTERVAL)")
	fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level: debug, info, warn, error (env: STOPGAME_LOG_LEVEL)")
	fs.StringVar(&cfg.Logging.Format, "log-format", cfg.Logging.Format, "log format: text or json (env: STOPGAME_LOG_FORMAT)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("stopgame v{{.Version}}\n")

	return cmd
}

func validate(cfg *config.Config) error {
	if cfg.Game.RoomCodeLength < 4 || cfg.Game.RoomCodeLength > 12 {
		return fmt.Errorf("invalid room code length (must be between 4-12 inclusive): %d", cfg.Game.RoomCodeLength)
	}
	return nil
}

func run(cfg *config.Config) error {
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting stopgame server",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	hub := app.NewGameHub(cfg.Game, logger)
	defer hub.Close()

	server := httpTransport.NewServer(cfg, hub, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
