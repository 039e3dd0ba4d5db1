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

	"github.com/cfi/selfservice/internal/api"
	"github.com/cfi/selfservice/internal/cloud"
	"github.com/cfi/selfservice/internal/config"
	"github.com/cfi/selfservice/internal/core"
	"github.com/cfi/selfservice/internal/identity"
	"github.com/cfi/selfservice/internal/logging"
	"github.com/cfi/selfservice/internal/metrics"
	"github.com/cfi/selfservice/internal/secrets"
	"github.com/cfi/selfservice/internal/session"
	"github.com/cfi/selfservice/internal/store"
	"github.com/cfi/selfservice/internal/vpn"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("portal"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)
	ctx := logger.WithContext(context.Background())

	awsCfg, err := cloud.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load AWS config")
	}

	secretStore := secrets.NewFromConfig(awsCfg)
	clientID, err := secretStore.Resolve(ctx, cfg.CognitoClientID, cfg.CognitoClientIDSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve cognito client id")
	}
	userPoolID, err := secretStore.Resolve(ctx, cfg.CognitoUserPoolID, cfg.CognitoUserPoolIDSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve cognito user pool id")
	}

	catalogue, err := config.LoadCatalogue(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load environment catalogue")
	}

	var profiles core.ProfileStore
	if cfg.VPNProfileBucket != "" {
		profiles = vpn.NewProfileStoreFromConfig(awsCfg, cfg.VPNProfileBucket, cfg.VPNProfilePrefix)
		logger.Info().Str("bucket", cfg.VPNProfileBucket).Msg("vpn profile distribution enabled")
	}

	var sessionStore session.Store = session.NewMemoryStore()
	if cfg.RedisURL != "" {
		rs, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure redis session store")
		}
		sessionStore = rs
		logger.Info().Msg("using redis session store")
	}
	sessions := session.NewManager(sessionStore, []byte(cfg.SessionSecret), cfg.SessionTTL, cfg.CookieSecure)

	services := core.NewServices(core.Deps{
		Requests:   store.NewFromConfig(awsCfg, cfg.AccessRequestsTable),
		Identity:   identity.NewFromConfig(awsCfg, clientID, userPoolID),
		Secrets:    secretStore,
		Profiles:   profiles,
		Catalogue:  catalogue,
		AdminGroup: cfg.AdminGroup,
		VPNLinkTTL: cfg.VPNLinkTTL,
	})

	srv := api.NewServer(logger, services, sessions, catalogue, cfg)

	tlsConfig, err := cfg.ServerTLS()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure TLS")
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		TLSConfig:    tlsConfig,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Bool("tls", tlsConfig != nil).Msg("starting portal server")
		var err error
		if tlsConfig != nil {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsListenAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsListenAddr, srv.Ready)
		go func() {
			logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal().Err(err).Msg("metrics server failed")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	if metricsServer != nil {
		metricsServer.Shutdown(shutdownCtx)
	}
}
