package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ByLCY/papyrus-cv/server"
)

var serveAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve résumé downloads over HTTP",
	Long:  "Starts an HTTP server: POST /api/cv with CV JSON returns the PDF as an attachment.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "监听地址（默认取配置）")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	addr := serveAddress
	if addr == "" {
		addr = a.cfg.Server.Address
	}

	srv := server.New(a.generator, server.Options{
		BodyLimitMB: a.cfg.Server.BodyLimitMB,
		Variant:     a.cfg.DefaultVariant(),
		Locale:      a.cfg.DefaultLocale(),
		PhotoHosts:  a.cfg.Server.PhotoHosts,
		Logger:      a.log,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("address", addr).Msg("server listening")
		errCh <- srv.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.ShutdownWithContext(shutdownCtx)
}
