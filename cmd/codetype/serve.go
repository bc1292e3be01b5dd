package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/codetype/internal/logging"
	"github.com/verte-zerg/codetype/internal/server"
)

var (
	serveAddr     string
	serveLogLevel string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the practice API and WebSocket",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	logger := logging.NewJSON(os.Stdout, logging.ParseLevel(serveLogLevel))

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, fileCfg)
	if err != nil {
		return err
	}
	defer closeQuietly(st)

	issuer, err := newIssuer(fileCfg)
	if err != nil {
		return err
	}
	source, closeSource, err := openPromptSource(ctx, fileCfg, st)
	if err != nil {
		return err
	}
	defer closeSource()

	srv := server.New(server.Config{
		Addr:           serveAddr,
		AllowedOrigins: fileCfg.Server.AllowedOrigins,
	}, st, source, issuer, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
