package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/healthcoresys/core/internal/application/service"
	"github.com/healthcoresys/core/internal/config"
	"github.com/healthcoresys/core/internal/infrastructure/audit"
	"github.com/healthcoresys/core/internal/infrastructure/crypto"
	"github.com/healthcoresys/core/internal/infrastructure/kms"
	"github.com/healthcoresys/core/internal/infrastructure/monitoring"
	"github.com/healthcoresys/core/pkg/logger"
)

type adminContext struct {
	cfg      *config.Config
	log      logger.Logger
	registry *crypto.FileRegistry
	keys     *service.KeyService
}

func newRootCmd() *cobra.Command {
	var jwksPath string

	root := &cobra.Command{
		Use:           "broker-admin",
		Short:         "Manage the token broker's signing keys and published key set",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&jwksPath, "jwks", "", "path to the published key set file (defaults to the configured jwt.jwks_path)")

	root.AddCommand(newKeyCmd(&jwksPath))
	root.AddCommand(newJWKSCmd(&jwksPath))
	return root
}

// buildContext loads configuration and wires the key lifecycle services the
// same way the server does, minus the HTTP surface.
func buildContext(jwksPathOverride string) (*adminContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if jwksPathOverride != "" {
		cfg.JWT.JWKSPath = jwksPathOverride
	}

	log, err := monitoring.NewLogger(cfg.Log.Level, "console")
	if err != nil {
		return nil, err
	}

	var secrets kms.SecretStore
	if cfg.JWT.SecretRef != "" {
		store, err := kms.NewVaultStore(&cfg.Vault, log)
		if err != nil {
			return nil, fmt.Errorf("vault client: %w", err)
		}
		secrets = store
	}

	registry := crypto.NewFileRegistry(cfg.JWT.JWKSPath)
	rotator := crypto.NewRotator(registry, secrets, cfg.JWT.SecretRef, log)
	auditor := audit.NewRecorder(audit.NewLogSink(log), log)

	return &adminContext{
		cfg:      cfg,
		log:      log,
		registry: registry,
		keys:     service.NewKeyService(rotator, auditor, nil, log),
	}, nil
}
