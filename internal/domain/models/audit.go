package models

import "time"

// AuditEntry is one redaction-ready record handed to the audit sink.
// The broker produces these entries; storing them is the sink's concern.
type AuditEntry struct {
	ActorID   string                 `json:"actorId"`
	TenantID  string                 `json:"tenantId,omitempty"`
	Action    string                 `json:"action"`
	Resource  string                 `json:"resource,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	IP        string                 `json:"ip,omitempty"`
	UserAgent string                 `json:"userAgent,omitempty"`
	At        time.Time              `json:"at"`
}
