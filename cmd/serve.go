package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/api"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/parser"
)

var portFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API: POST /upload to process receipts, GET /results/:id,
/history, /transactions/:id and the /download endpoints to read them back.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 0, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := setup(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer svc.Close()

	port := svc.cfg.Server.Port
	if portFlag != 0 {
		port = portFlag
	}

	h := &api.Handler{
		Processor: svc.processor,
		Store:     svc.store,
		Registry:  parser.DefaultRegistry(),
		StaticDir: svc.cfg.Server.StaticDir,
		Version:   Version,
		Log:       svc.log,
	}
	app := api.NewApp(h, svc.cfg.Server.BodyLimitMB)

	errCh := make(chan error, 1)
	go func() {
		svc.log.Info().Int("port", port).Str("storage", svc.cfg.Storage.Driver).Msg("server listening")
		errCh <- app.Listen(fmt.Sprintf(":%d", port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	svc.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}
