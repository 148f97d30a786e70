package kms

import (
	"context"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"

	"github.com/healthcoresys/core/internal/config"
	"github.com/healthcoresys/core/pkg/logger"
)

// VaultStore is a SecretStore backed by HashiCorp Vault's KVv2 engine.
type VaultStore struct {
	client    *vault.Client
	mountPath string
	timeout   time.Duration
	log       logger.Logger
}

// NewVaultStore creates a Vault-backed secret store.
func NewVaultStore(cfg *config.VaultConfig, log logger.Logger) (*VaultStore, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &VaultStore{
		client:    client,
		mountPath: cfg.MountPath,
		timeout:   timeout,
		log:       log.WithComponent("vault_store"),
	}, nil
}

// Fetch reads the envelope stored under ref. The request carries a bounded
// timeout: a hung secret store surfaces as a resolver failure, never as an
// indefinite hang on the mint path.
func (s *VaultStore) Fetch(ctx context.Context, ref string) (*SecretEnvelope, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	secret, err := s.client.KVv2(s.mountPath).Get(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("read secret %q: %w", ref, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret %q not found", ref)
	}

	env := &SecretEnvelope{}
	if v, ok := secret.Data["privateKey"].(string); ok {
		env.PrivateKey = v
	}
	if v, ok := secret.Data["private_key"].(string); ok {
		env.PrivateKeyAlt = v
	}
	if v, ok := secret.Data["privateKeyPem"].(string); ok {
		env.PrivateKeyPem = v
	}
	if v, ok := secret.Data["keyId"].(string); ok {
		env.KeyID = v
	}
	if v, ok := secret.Data["createdAt"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			env.CreatedAt = t
		}
	}

	if env.PEM() == "" {
		return nil, fmt.Errorf("secret %q carries no private key material", ref)
	}

	return env, nil
}

// Store writes the envelope under ref in the canonical field layout.
func (s *VaultStore) Store(ctx context.Context, ref string, env *SecretEnvelope) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data := map[string]interface{}{
		"privateKey": env.PEM(),
		"keyId":      env.KeyID,
		"createdAt":  env.CreatedAt.Format(time.RFC3339),
	}

	if _, err := s.client.KVv2(s.mountPath).Put(ctx, ref, data); err != nil {
		return fmt.Errorf("write secret %q: %w", ref, err)
	}

	s.log.Info("secret stored", logger.String("ref", ref), logger.String("kid", env.KeyID))
	return nil
}

var _ SecretStore = (*VaultStore)(nil)
