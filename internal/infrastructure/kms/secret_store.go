// Package kms resolves private signing key material. The broker never embeds
// a specific secret-management vendor's protocol: the SecretStore contract is
// the whole interface, and any key-management backend can satisfy it.
package kms

import (
	"context"
	"time"
)

// SecretEnvelope is the JSON record a secret store holds for one signing key.
// The PEM may appear under any of several historical field names; PEM()
// resolves the drift so no other code has to.
type SecretEnvelope struct {
	PrivateKey    string    `json:"privateKey,omitempty"`
	PrivateKeyAlt string    `json:"private_key,omitempty"`
	PrivateKeyPem string    `json:"privateKeyPem,omitempty"`
	KeyID         string    `json:"keyId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewSecretEnvelope builds an envelope in the canonical field layout.
func NewSecretEnvelope(pem, keyID string, createdAt time.Time) *SecretEnvelope {
	return &SecretEnvelope{PrivateKey: pem, KeyID: keyID, CreatedAt: createdAt}
}

// PEM returns the private key material, tolerating field-name drift across
// envelope producers. Empty when no variant is populated.
func (e *SecretEnvelope) PEM() string {
	switch {
	case e.PrivateKey != "":
		return e.PrivateKey
	case e.PrivateKeyAlt != "":
		return e.PrivateKeyAlt
	default:
		return e.PrivateKeyPem
	}
}

// SecretStore is the external secret-management collaborator.
type SecretStore interface {
	// Fetch retrieves the envelope stored under ref. A missing or
	// unreadable secret is an error; the caller maps it to KeyUnavailable.
	Fetch(ctx context.Context, ref string) (*SecretEnvelope, error)

	// Store persists the envelope under ref. Used by rotation only.
	Store(ctx context.Context, ref string, env *SecretEnvelope) error
}
