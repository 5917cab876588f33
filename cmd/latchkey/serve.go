package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/postalsys/latchkey/internal/config"
	"github.com/postalsys/latchkey/internal/logging"
	"github.com/postalsys/latchkey/internal/secure"
	"github.com/postalsys/latchkey/internal/session"
)

// loadConfig loads the config file when given, or the built-in
// default suite otherwise.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func serveCmd() *cobra.Command {
	var configPath string
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept secure channel connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			log := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Metrics.Enabled {
				go serveMetrics(ctx, cfg.Metrics.Listen, log)
			}

			server, err := session.Listen(cfg.Listen, func() (*secure.Manager, error) {
				return cfg.BuildManager(log)
			}, session.ServerOptions{
				Log:              log,
				ReceivePerSecond: cfg.ReceivePerSecond,
			})
			if err != nil {
				return err
			}
			defer server.Close()

			err = server.Serve(ctx)
			if ctx.Err() != nil {
				log.Info("shutting down")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides config)")
	return cmd
}

// serveMetrics exposes the Prometheus endpoint until the context ends.
func serveMetrics(ctx context.Context, addr string, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.Info("metrics listening", logging.KeyLocalAddr, addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("metrics server failed", logging.KeyError, fmt.Sprint(err))
	}
}
