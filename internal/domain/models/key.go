// Package models holds the domain types of the token broker: signing keys,
// published key sets, token claims, admission decisions, and audit entries.
package models

import "time"

// StorageSource records where a signing key's private half lives. Exactly one
// source holds the private material; the record is persisted so the answer is
// retrievable later rather than inferred.
type StorageSource string

const (
	// StorageInline means the private PEM is installed in configuration.
	StorageInline StorageSource = "inline"

	// StorageSecretStore means the private PEM lives in the secret store
	// under the recorded reference.
	StorageSecretStore StorageSource = "secret_store"
)

// JWK is one public key record in the published key set.
type JWK struct {
	Kty    string   `json:"kty"`
	Use    string   `json:"use"`
	KeyOps []string `json:"key_ops"`
	Alg    string   `json:"alg"`
	Kid    string   `json:"kid"`
	N      string   `json:"n"`
	E      string   `json:"e"`
}

// KeySet is the published JWKS document: an ordered, append-only collection
// of public key records with unique key ids.
type KeySet struct {
	Keys []JWK `json:"keys"`
}

// Contains reports whether the set holds a record with the given key id.
func (s *KeySet) Contains(kid string) bool {
	_, ok := s.Lookup(kid)
	return ok
}

// Lookup returns the record with the given key id.
func (s *KeySet) Lookup(kid string) (JWK, bool) {
	for _, k := range s.Keys {
		if k.Kid == kid {
			return k, true
		}
	}
	return JWK{}, false
}

// Append adds a record to the set. The caller guarantees kid uniqueness;
// rotation treats a collision as fatal before ever reaching this point.
func (s *KeySet) Append(k JWK) {
	s.Keys = append(s.Keys, k)
}

// Remove deletes the record with the given key id, reporting whether it was
// present. Used only by operator-driven pruning, never by the request path.
func (s *KeySet) Remove(kid string) bool {
	for i, k := range s.Keys {
		if k.Kid == kid {
			s.Keys = append(s.Keys[:i], s.Keys[i+1:]...)
			return true
		}
	}
	return false
}

// KeyIDs returns the key ids in publication order.
func (s *KeySet) KeyIDs() []string {
	ids := make([]string, 0, len(s.Keys))
	for _, k := range s.Keys {
		ids = append(ids, k.Kid)
	}
	return ids
}

// SigningKey is a freshly rotated signing key: the private half headed for
// exactly one storage source, the public half headed for the key set.
type SigningKey struct {
	KID        string
	PrivatePEM string
	Public     JWK
	Storage    StorageSource
	StorageRef string
	CreatedAt  time.Time
}

// RotationRecord is the append-only history entry kept per signing key. It
// outlives the key set entry so pruning decisions can be audited and the
// storage source of any key remains retrievable.
type RotationRecord struct {
	KID          string        `json:"kid"`
	Storage      StorageSource `json:"storage"`
	StorageRef   string        `json:"storageRef,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	SupersededAt *time.Time    `json:"supersededAt,omitempty"`
	PrunedAt     *time.Time    `json:"prunedAt,omitempty"`
}

// Active reports whether the key is still the one producing new signatures.
func (r *RotationRecord) Active() bool {
	return r.SupersededAt == nil && r.PrunedAt == nil
}
