package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-storefront/transport/httpapi"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long:  "Serves the catalog, admin, registration and verification routes until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		c := rt.container
		handlers := httpapi.NewHandlers(c.Catalog(), c.Lifecycle(), c.Gate(), c.Registrar(), rt.logger)
		httpCfg := httpapi.Config{
			ReadTimeout:  rt.config.HTTP.ReadTimeout,
			WriteTimeout: rt.config.HTTP.WriteTimeout,
		}
		if token := rt.config.HTTP.AdminToken; token != "" {
			httpCfg.AdminGuards = append(httpCfg.AdminGuards, httpapi.AdminToken(token))
		} else {
			rt.logger.Warn("no admin token configured, admin routes are unauthenticated")
		}
		app := httpapi.NewApp(handlers, httpCfg)

		errCh := make(chan error, 1)
		go func() {
			rt.logger.Info("server starting", "addr", rt.config.HTTP.Addr, "cache_backend", rt.config.Cache.Backend)
			errCh <- app.Listen(rt.config.HTTP.Addr)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		rt.logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
