package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthcoresys/core/internal/domain/models"
	"github.com/healthcoresys/core/pkg/logger"
)

type captureSink struct {
	entries []*models.AuditEntry
	err     error
}

func (c *captureSink) Write(_ context.Context, entry *models.AuditEntry) error {
	if c.err != nil {
		return c.err
	}
	c.entries = append(c.entries, entry)
	return nil
}

func (c *captureSink) Close() error { return nil }

func TestRecorderRedactsBeforeSink(t *testing.T) {
	sink := &captureSink{}
	recorder := NewRecorder(sink, logger.NewNop())

	recorder.Record(context.Background(), &models.AuditEntry{
		ActorID:  "auth0|clinician-7",
		TenantID: "tenant-a",
		Action:   "token.mint",
		Resource: "note for patient-4821",
		Details: map[string]interface{}{
			"reason":   "ssn 123-45-6789 disclosed",
			"password": "hunter2",
		},
	})

	require.Len(t, sink.entries, 1)
	got := sink.entries[0]
	assert.Equal(t, "auth0|clinician-7", got.ActorID)
	assert.Equal(t, "note for [PATIENT_ID]", got.Resource)
	assert.Equal(t, "ssn [SSN] disclosed", got.Details["reason"])
	assert.Equal(t, "[REDACTED]", got.Details["password"])
	assert.False(t, got.At.IsZero(), "timestamp is stamped when absent")
}

func TestRecorderSwallowsSinkFailures(t *testing.T) {
	recorder := NewRecorder(&captureSink{err: assert.AnError}, logger.NewNop())

	// Must not panic or propagate; the request path keeps going.
	recorder.Record(context.Background(), &models.AuditEntry{Action: "token.mint"})
}
