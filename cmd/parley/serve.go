package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/parley"
	httpAdapter "github.com/aretw0/parley/pkg/adapters/http"
	"github.com/aretw0/parley/pkg/adapters/twiml"
	"github.com/aretw0/parley/pkg/observability"
	"github.com/spf13/cobra"
)

const agentName = "GoToMeeting AI Voice Support"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long:  `Starts the HTTP server that answers telephony gateway webhooks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		metrics := observability.NewMetrics("")
		svc, closeStore, err := buildService(ctx, cfg, logger, observability.Hooks(metrics, logger))
		if err != nil {
			return err
		}
		defer func() {
			if err := closeStore(); err != nil {
				logger.Warn("Failed to close session store", "err", err)
			}
		}()

		metrics.TrackActiveSessions(func() float64 {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return float64(svc.ActiveSessions(ctx))
		})

		go svc.RunJanitor(ctx, cfg.Store.JanitorInterval, cfg.Store.IdleTimeout)

		handler := httpAdapter.NewHandler(svc.Controller(),
			httpAdapter.WithRenderer(twiml.NewRenderer(cfg.Gateway.BaseURL)),
			httpAdapter.WithMetrics(metrics),
			httpAdapter.WithLogger(logger),
			httpAdapter.WithTurnTimeout(cfg.Backend.Timeout),
			httpAdapter.WithInfo(agentName, parley.Version, svc.Provider()),
			httpAdapter.WithSignatureValidation(cfg.Gateway.AuthToken, cfg.Gateway.BaseURL),
		)

		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting Parley server",
				"addr", srv.Addr,
				"backend", svc.Provider(),
				"store", cfg.Store.Driver,
				"languages", svc.Catalog().Keys(),
			)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err

		case <-ctx.Done():
			logger.Info("Start shutdown")

			// Give outstanding turns a deadline for completion.
			grace := cfg.Backend.Timeout + 5*time.Second
			shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Graceful shutdown did not complete", "grace", grace, "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("Error killing server", "err", err)
				}
			}
			logger.Info("Parley server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from PORT or 5000)")
	serveCmd.Flags().String("single-language", "", "Skip the language menu and use this locale key")
}
