// Command arbor-server runs the arbor chat API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/arbor-chat/arbor/internal/auth"
	"github.com/arbor-chat/arbor/internal/chat"
	"github.com/arbor-chat/arbor/internal/config"
	"github.com/arbor-chat/arbor/internal/logging"
	"github.com/arbor-chat/arbor/internal/provider"
	"github.com/arbor-chat/arbor/internal/relay"
	"github.com/arbor-chat/arbor/internal/resume"
	"github.com/arbor-chat/arbor/internal/server"
	"github.com/arbor-chat/arbor/internal/store"
	"github.com/arbor-chat/arbor/internal/tool"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	flagPort      int
	flagConfigDir string
	flagDataDir   string
	flagLogLevel  string
)

var rootCmd = &cobra.Command{
	Use:     "arbor-server",
	Short:   "Arbor chat server",
	Long:    "Arbor serves a streaming AI chat API with tool calling, human approval for mutating tools, and resumable response streams.",
	Version: Version,
	RunE:    runServe,
}

func init() {
	rootCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "Port to listen on (overrides config)")
	rootCmd.Flags().StringVar(&flagConfigDir, "config-dir", "", "Directory containing arbor.json/arbor.yaml")
	rootCmd.Flags().StringVar(&flagDataDir, "data-dir", "", "Data directory (overrides config)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// A local .env is optional.
	_ = godotenv.Load()

	cfg, err := config.Load(flagConfigDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	logging.Init(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
	})
	logging.Info().Str("version", Version).Msg("starting arbor-server")

	if cfg.AuthSecret == "" {
		return errors.New("auth secret is required (set ARBOR_AUTH_SECRET or authSecret in config)")
	}

	st := store.New(cfg.DataDir)

	ctx := context.Background()
	providers := provider.InitializeProviders(ctx, cfg)
	if len(providers.AllModels()) == 0 {
		logging.Warn().Msg("no model providers configured; chat turns will fail")
	}

	drafter := provider.NewTextDrafter(providers, cfg.DefaultModel)
	tools := tool.Default(st, drafter, "")

	notifier := relay.New(cfg.ThreadsServiceURL)
	streams := resume.New(cfg.ResumeEnabled)
	authenticator := auth.New(cfg.AuthSecret)

	orchestrator := chat.New(st, providers, tools, notifier, streams, cfg)
	srv := server.New(cfg, st, providers, orchestrator, streams, authenticator)

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Int("port", cfg.Port).Msg("listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logging.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("shutdown error")
	}
	logging.Info().Msg("server stopped")
	return nil
}
