package textpost

import (
	"context"
	"log/slog"
)

// NoopAuditSink is a no-operation implementation of AuditSink
// Useful for testing or when audit records are not needed
type NoopAuditSink struct{}

// NewNoopAuditSink creates a new no-operation audit sink
func NewNoopAuditSink() AuditSink {
	return &NoopAuditSink{}
}

// RecordAudit does nothing and returns nil
func (n *NoopAuditSink) RecordAudit(ctx context.Context, record AuditRecord) error {
	return nil
}

// LoggingAuditSink writes audit records to a structured logger
type LoggingAuditSink struct {
	logger *slog.Logger
}

// NewLoggingAuditSink creates a new logging audit sink. A nil logger uses
// slog.Default().
func NewLoggingAuditSink(logger *slog.Logger) AuditSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingAuditSink{logger: logger}
}

// RecordAudit logs the audit record
func (l *LoggingAuditSink) RecordAudit(ctx context.Context, record AuditRecord) error {
	l.logger.InfoContext(ctx, "an admin performed a silent edit",
		"event", record.Event,
		"post_id", record.PostID.String(),
		"mode", string(record.Mode),
		"timestamp", record.Timestamp,
		"reconciled", record.Reconciled,
	)
	return nil
}
