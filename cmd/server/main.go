// Command server runs the token broker's HTTP service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/healthcoresys/core/internal/application/service"
	"github.com/healthcoresys/core/internal/config"
	"github.com/healthcoresys/core/internal/infrastructure/audit"
	"github.com/healthcoresys/core/internal/infrastructure/crypto"
	"github.com/healthcoresys/core/internal/infrastructure/idp"
	"github.com/healthcoresys/core/internal/infrastructure/kms"
	"github.com/healthcoresys/core/internal/infrastructure/monitoring"
	"github.com/healthcoresys/core/internal/infrastructure/ratelimit"
	apihttp "github.com/healthcoresys/core/internal/interfaces/http"
	"github.com/healthcoresys/core/internal/interfaces/http/handlers"
	"github.com/healthcoresys/core/pkg/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := monitoring.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server exited", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(registry)

	var secrets kms.SecretStore
	if cfg.JWT.SecretRef != "" {
		store, err := kms.NewVaultStore(&cfg.Vault, log)
		if err != nil {
			return fmt.Errorf("vault client: %w", err)
		}
		secrets = store
	}

	resolver := kms.NewResolver(&cfg.JWT, secrets, log)
	keyRegistry := crypto.NewFileRegistry(cfg.JWT.JWKSPath)
	signer := crypto.NewSigner(&cfg.JWT, resolver, log)
	verifier := idp.NewVerifier(&cfg.Upstream, metrics, log)

	var sink audit.Sink = audit.NewLogSink(log)
	if cfg.Audit.Enabled {
		sink = audit.NewKafkaSink(cfg.Audit.Brokers, cfg.Audit.Topic)
	}
	auditor := audit.NewRecorder(sink, log)
	defer auditor.Close()

	var admitter ratelimit.Admitter
	if cfg.RateLimit.Store == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		admitter = ratelimit.NewRedisAdmitter(client, cfg.RateLimit.Capacity, cfg.RateLimit.Window())
	} else {
		admitter = ratelimit.NewMemoryAdmitter(cfg.RateLimit.Capacity, cfg.RateLimit.Window())
	}

	// Rotations happen in the admin CLI; the watcher swaps in the new key id
	// and drops the cached private key so minting follows without a restart.
	// An inline-configured key can only change with a restart, so no watcher.
	if cfg.JWT.SecretRef != "" {
		watchCtx, stopWatch := context.WithCancel(context.Background())
		defer stopWatch()
		watcher := crypto.NewRotationWatcher(keyRegistry, time.Minute, log)
		go watcher.Run(watchCtx, signer.ActiveKID(), func(kid string) {
			signer.SetActiveKID(kid)
			resolver.Invalidate()
		})
	}

	tokens := service.NewTokenService(verifier, signer, auditor, metrics, cfg.JWT.Audience, log)

	router := apihttp.NewRouter(apihttp.RouterDeps{
		Config:   cfg,
		Tokens:   handlers.NewTokenHandler(tokens, log),
		JWKS:     handlers.NewJWKSHandler(keyRegistry, log),
		Health:   handlers.NewHealthHandler(version),
		Admitter: admitter,
		Metrics:  metrics,
		Registry: registry,
		Log:      log,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", logger.String("addr", srv.Addr), logger.String("version", version))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", logger.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
