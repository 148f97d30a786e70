// Package crypto implements token signing, key rotation, and publication of
// the broker's JWKS document.
package crypto

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"

	"github.com/healthcoresys/core/internal/domain/models"
	"github.com/healthcoresys/core/pkg/constants"
)

// base64URLPattern matches unpadded base64url, the required encoding for the
// n and e members of a JWK.
var base64URLPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// NewJWK renders an RSA public key as a published key record.
func NewJWK(pub *rsa.PublicKey, kid string) models.JWK {
	return models.JWK{
		Kty:    "RSA",
		Use:    "sig",
		KeyOps: []string{"verify"},
		Alg:    constants.SigningAlgorithm,
		Kid:    kid,
		N:      base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:      base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// PublicKeyFromJWK reconstructs the RSA public key from a key record.
func PublicKeyFromJWK(jwk models.JWK) (*rsa.PublicKey, error) {
	if jwk.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type %q", jwk.Kty)
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() <= 0 {
		return nil, fmt.Errorf("exponent out of range")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}

// ParseKeySet decodes a JWKS document.
func ParseKeySet(data []byte) (*models.KeySet, error) {
	var set models.KeySet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse key set: %w", err)
	}
	return &set, nil
}

// ValidateKeySet checks a candidate key set against the publication rules.
// Violations accumulate, one per violated rule per key, so an operator sees
// the complete list instead of the first failure. An empty result means the
// set is publishable. The check reads only its input: validating the same
// set twice yields the same violations.
func ValidateKeySet(set *models.KeySet) []string {
	var violations []string

	if set == nil || len(set.Keys) == 0 {
		return []string{"key set is empty"}
	}

	seen := make(map[string]bool, len(set.Keys))
	for i, key := range set.Keys {
		label := fmt.Sprintf("key %d", i)
		if key.Kid != "" {
			label = fmt.Sprintf("key %d (kid %s)", i, key.Kid)
		}

		if key.Kid == "" {
			violations = append(violations, label+": missing kid")
		}
		if key.Kty == "" {
			violations = append(violations, label+": missing kty")
		} else if key.Kty != "RSA" {
			violations = append(violations, fmt.Sprintf("%s: invalid kty %q, expected RSA", label, key.Kty))
		}
		if key.Use == "" {
			violations = append(violations, label+": missing use")
		} else if key.Use != "sig" {
			violations = append(violations, fmt.Sprintf("%s: invalid use %q, expected sig", label, key.Use))
		}
		if key.Alg == "" {
			violations = append(violations, label+": missing alg")
		} else if key.Alg != constants.SigningAlgorithm {
			violations = append(violations, fmt.Sprintf("%s: invalid alg %q, expected %s", label, key.Alg, constants.SigningAlgorithm))
		}
		if !containsOp(key.KeyOps, "verify") {
			violations = append(violations, label+": key_ops must include \"verify\"")
		}
		if key.N == "" {
			violations = append(violations, label+": missing n")
		} else if !base64URLPattern.MatchString(key.N) {
			violations = append(violations, label+": n is not base64url")
		}
		if key.E == "" {
			violations = append(violations, label+": missing e")
		} else if !base64URLPattern.MatchString(key.E) {
			violations = append(violations, label+": e is not base64url")
		}

		if key.Kid != "" {
			if seen[key.Kid] {
				violations = append(violations, fmt.Sprintf("duplicate kid %q", key.Kid))
			}
			seen[key.Kid] = true
		}
	}

	return violations
}

func containsOp(ops []string, want string) bool {
	for _, op := range ops {
		if op == want {
			return true
		}
	}
	return false
}
