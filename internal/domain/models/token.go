package models

import "github.com/golang-jwt/jwt/v5"

// AccessClaims is the claim set of a token minted by this service.
// Claim names mirror what downstream resource servers expect: registered
// claims plus a space-separated scope string and optional tenant/patient
// context identifiers.
type AccessClaims struct {
	jwt.RegisteredClaims

	Scope     string `json:"scope"`
	TenantID  string `json:"tenantId,omitempty"`
	PatientID string `json:"patientId,omitempty"`
}
