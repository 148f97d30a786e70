package audit

import (
	"context"
	"time"

	"github.com/healthcoresys/core/internal/domain/models"
	"github.com/healthcoresys/core/pkg/logger"
)

// Recorder redacts and emits audit entries. A sink failure is logged and
// swallowed: an audit outage must never take the request path down with it.
type Recorder struct {
	redactor *Redactor
	sink     Sink
	log      logger.Logger
	now      func() time.Time
}

// NewRecorder creates a recorder writing redacted entries to sink.
func NewRecorder(sink Sink, log logger.Logger) *Recorder {
	return &Recorder{
		redactor: NewRedactor(),
		sink:     sink,
		log:      log.WithComponent("audit_recorder"),
		now:      time.Now,
	}
}

// Record scrubs the entry and hands it to the sink. The caller's entry is
// not mutated; redaction happens on a copy.
func (r *Recorder) Record(ctx context.Context, entry *models.AuditEntry) {
	scrubbed := &models.AuditEntry{
		ActorID:   r.redactor.RedactString(entry.ActorID),
		TenantID:  entry.TenantID,
		Action:    entry.Action,
		Resource:  r.redactor.RedactString(entry.Resource),
		IP:        entry.IP,
		UserAgent: r.redactor.RedactString(entry.UserAgent),
		At:        entry.At,
	}
	if scrubbed.At.IsZero() {
		scrubbed.At = r.now().UTC()
	}
	if entry.Details != nil {
		scrubbed.Details = r.redactor.RedactValue(entry.Details).(map[string]interface{})
	}

	if err := r.sink.Write(ctx, scrubbed); err != nil {
		r.log.Error("audit sink write failed", err,
			logger.String("action", entry.Action))
	}
}

// Close flushes the underlying sink.
func (r *Recorder) Close() error {
	return r.sink.Close()
}
