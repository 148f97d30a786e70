package audit

import (
	"context"
	"encoding/json"

	"github.com/healthcoresys/core/internal/domain/models"
	"github.com/healthcoresys/core/pkg/logger"
)

// Sink receives redacted audit entries. Implementations must tolerate
// being called concurrently.
type Sink interface {
	Write(ctx context.Context, entry *models.AuditEntry) error
	Close() error
}

// LogSink emits audit entries through the structured logger. It is the
// default sink when no event stream is configured.
type LogSink struct {
	log logger.Logger
}

// NewLogSink creates a sink writing to the given logger.
func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log.WithComponent("audit")}
}

func (s *LogSink) Write(_ context.Context, entry *models.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		details = []byte("{}")
	}
	s.log.Info("audit event",
		logger.String("action", entry.Action),
		logger.String("actor_id", entry.ActorID),
		logger.String("tenant_id", entry.TenantID),
		logger.String("resource", entry.Resource),
		logger.String("ip", entry.IP),
		logger.String("user_agent", entry.UserAgent),
		logger.String("details", string(details)),
		logger.Time("at", entry.At))
	return nil
}

func (s *LogSink) Close() error { return nil }

var _ Sink = (*LogSink)(nil)
