// Package dto defines the request and response shapes of the HTTP surface.
package dto

import "time"

// MintRequest is the body of POST /api/tokens/mint. The audience is
// deliberately not part of the body: minted tokens always target the
// configured downstream service.
type MintRequest struct {
	Scope     string `json:"scope" binding:"required"`
	PatientID string `json:"patientId" binding:"required"`
}

// MintResponse carries a freshly minted access token.
type MintResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	ExpiresIn int    `json:"expiresIn"` // seconds
}

// Envelope is the uniform response wrapper. Exactly one of Data and Error
// is set.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     interface{} `json:"error,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// OK wraps a successful payload.
func OK(data interface{}) Envelope {
	return Envelope{Success: true, Data: data, CreatedAt: time.Now().UTC()}
}

// Fail wraps an error payload.
func Fail(err interface{}) Envelope {
	return Envelope{Success: false, Error: err, CreatedAt: time.Now().UTC()}
}
