// Package service composes the infrastructure pieces into the broker's
// use cases.
package service

import (
	"context"
	"time"

	"github.com/healthcoresys/core/internal/application/dto"
	"github.com/healthcoresys/core/internal/domain/models"
	"github.com/healthcoresys/core/internal/infrastructure/audit"
	"github.com/healthcoresys/core/internal/infrastructure/crypto"
	"github.com/healthcoresys/core/internal/infrastructure/idp"
	"github.com/healthcoresys/core/internal/infrastructure/monitoring"
	"github.com/healthcoresys/core/pkg/constants"
	"github.com/healthcoresys/core/pkg/errors"
	"github.com/healthcoresys/core/pkg/logger"
)

// RequestMeta carries the transport-level facts the service records but
// never trusts for authorization decisions.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// TokenService handles the mint flow: authenticate the upstream bearer
// credential, validate the request, sign a downstream token, record the
// grant. Admission runs in middleware before this code is reached.
type TokenService struct {
	verifier *idp.Verifier
	signer   *crypto.Signer
	auditor  *audit.Recorder
	metrics  *monitoring.Metrics
	audience string
	log      logger.Logger
}

// NewTokenService wires the mint flow.
func NewTokenService(verifier *idp.Verifier, signer *crypto.Signer, auditor *audit.Recorder, metrics *monitoring.Metrics, audience string, log logger.Logger) *TokenService {
	return &TokenService{
		verifier: verifier,
		signer:   signer,
		auditor:  auditor,
		metrics:  metrics,
		audience: audience,
		log:      log.WithComponent("token_service"),
	}
}

// Mint exchanges a verified upstream credential for a short-lived
// downstream access token.
func (s *TokenService) Mint(ctx context.Context, authorization string, req *dto.MintRequest, meta RequestMeta) (*dto.MintResponse, error) {
	started := time.Now()

	identity, err := s.verifier.Verify(ctx, authorization)
	if err != nil {
		s.metrics.MintRequests.WithLabelValues("unauthenticated").Inc()
		return nil, err
	}

	token, err := s.signer.Mint(ctx, identity.Subject, req.Scope, s.audience, identity.TenantID, req.PatientID)
	if err != nil {
		result := "error"
		if errors.IsCode(err, errors.CodeKeyUnavailable) {
			result = "key_unavailable"
		}
		s.metrics.MintRequests.WithLabelValues(result).Inc()
		return nil, err
	}

	s.auditor.Record(ctx, &models.AuditEntry{
		ActorID:  identity.Subject,
		TenantID: identity.TenantID,
		Action:   constants.AuditActionTokenMint,
		Resource: "patient/" + req.PatientID,
		Details: map[string]interface{}{
			"scope":    req.Scope,
			"audience": s.audience,
			"ttl":      int(s.signer.TTL().Seconds()),
		},
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	})

	s.metrics.MintRequests.WithLabelValues("success").Inc()
	s.metrics.MintDuration.Observe(time.Since(started).Seconds())

	return &dto.MintResponse{
		Token:     token,
		TokenType: constants.TokenTypeBearer,
		ExpiresIn: int(s.signer.TTL().Seconds()),
	}, nil
}
