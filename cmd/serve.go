package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/county-api/internal/api"
	"github.com/sells-group/county-api/internal/config"
	"github.com/sells-group/county-api/internal/resolver"
	"github.com/sells-group/county-api/internal/thumbnail"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load county boundaries and serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rc, err := loadContext(ctx, cfg, "serve")
		if err != nil {
			return err
		}

		return startServer(ctx, buildMux(rc, cfg), resolvePort(servePort, cfg.Server.Port))
	},
}

// buildMux wires the API router from config.
func buildMux(rc *resolver.Context, c *config.Config) http.Handler {
	images := thumbnail.NewConverter(thumbnail.Options{
		MaxDimension: c.Images.MaxDimension,
		JPEGQuality:  c.Images.JPEGQuality,
		Workers:      c.Images.Workers,
	})
	srv := api.New(rc, images, api.Options{
		AllowedOrigins: c.Server.AllowedOrigins,
		RequestTimeout: time.Duration(c.Server.RequestTimeoutSecs) * time.Second,
		MaxBodyBytes:   int64(c.Server.MaxBodyMB) << 20,
		MaxFiles:       c.Images.MaxFiles,
		MaxUploadBytes: int64(c.Images.MaxUploadMB) << 20,
		ImageRate:      c.Images.RatePerSec,
		ImageBurst:     c.Images.Burst,
	})
	return srv.Routes()
}

// resolvePort returns the flag port when set, else the config port.
func resolvePort(flagPort, configPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return configPort
}

// startServer serves handler on port until ctx is cancelled, then shuts down
// gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- eris.Wrap(err, "server listen")
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return <-errCh
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
