package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/checkin-badges/docs"
	"github.com/tbourn/checkin-badges/internal/cache"
	httpapi "github.com/tbourn/checkin-badges/internal/http"
	"github.com/tbourn/checkin-badges/internal/oauth"
	"github.com/tbourn/checkin-badges/internal/observability"
	"github.com/tbourn/checkin-badges/internal/services"
	"github.com/tbourn/checkin-badges/internal/untappd"
)

// shutdownGrace bounds the graceful shutdown of the login server.
const shutdownGrace = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the account login flow and the read-only API",
		Long: `Serve starts the HTTP server that links check-in accounts through the
Untappd login (GET /accounts/untappd/login) and lists linked accounts and
award outcomes under API_BASE_PATH.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, Version, "serve")
			if err != nil {
				return fmt.Errorf("otel: %w", err)
			}
			defer func() { _ = shutdown(context.Background()) }()

			db, closeDB, err := openDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer closeDB()

			if !cfg.Untappd.Complete() {
				log.Warn().Msg("UNTAPPD_CLIENT_ID/UNTAPPD_CLIENT_SECRET not set; logins will fail")
			}

			// Profile lookups carry a user token and are never cached.
			profiles := untappd.New(cfg.Untappd, cache.Nop{})
			accounts := services.NewAccountService(db, oauth.New(cfg.Untappd), profiles)
			awards := &services.AwardService{Config: &cfg, DB: db}

			docs.SwaggerInfo.BasePath = cfg.APIBasePath
			docs.SwaggerInfo.Version = Version

			gin.SetMode(cfg.GinMode)
			r := gin.New()
			httpapi.RegisterRoutes(r, httpapi.Deps{Accounts: accounts, Awards: awards}, cfg)

			srv := &http.Server{
				Addr:              net.JoinHostPort("", cfg.Port),
				Handler:           r,
				ReadTimeout:       cfg.ReadTimeout,
				ReadHeaderTimeout: cfg.ReadHeaderTimeout,
				WriteTimeout:      cfg.WriteTimeout,
				IdleTimeout:       cfg.IdleTimeout,
				MaxHeaderBytes:    cfg.MaxHeaderBytes,
				BaseContext:       func(net.Listener) context.Context { return log.Logger.WithContext(context.Background()) },
			}
			return serve(ctx, srv)
		},
	}
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
