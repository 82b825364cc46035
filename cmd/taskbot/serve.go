package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	httpadapter "github.com/PabloGalante/taskbot/internal/adapters/http"
	"github.com/PabloGalante/taskbot/internal/config"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook and REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, os.Stdout)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Mode != config.ModeLocal {
				gin.SetMode(gin.ReleaseMode)
			}
			if addr == "" {
				addr = ":" + a.cfg.Port
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           httpadapter.NewServer(a.conv, a.tasks, Version),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("TaskBot API listening", "addr", addr, "backend", a.cfg.StorageBackend)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default \":\" + port from config)")

	return cmd
}
