package textpost

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultAuditRetries = 3
	defaultAuditBackoff = 100 * time.Millisecond
)

// commitSilentEdit finishes a committed silent write. The persisted flag is
// reset first and the audit record is emitted only once the reset is durable;
// a post whose reset failed is picked up by ReconcileSilentEdits instead.
func (s *service) commitSilentEdit(ctx context.Context, post *Post, mode WriteMode) {
	if !post.SilentEdit {
		return
	}
	post.SilentEdit = false

	if err := s.repository.ClearSilentEdit(ctx, post.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to reset silent edit flag, leaving it for reconciliation",
			"post_id", post.ID.String(), "error", err)
		return
	}

	s.emitAudit(ctx, AuditRecord{
		Event:     AuditEventSilentEdit,
		Timestamp: s.now(),
		PostID:    post.ID,
		Mode:      mode,
	})
}

// releaseWithheldAudit emits the record withheld from an earlier silent write
// whose flag reset failed. The write that just committed over it has already
// persisted the flag as false, so the reconciler would never see it.
func (s *service) releaseWithheldAudit(ctx context.Context, previous *Post) {
	if !previous.SilentEdit {
		return
	}
	s.emitAudit(ctx, AuditRecord{
		Event:      AuditEventSilentEdit,
		Timestamp:  s.now(),
		PostID:     previous.ID,
		Reconciled: true,
	})
}

// emitAudit delivers the record to the sink, synchronously or on a tracked
// goroutine depending on configuration. Delivery failures are logged.
func (s *service) emitAudit(ctx context.Context, record AuditRecord) {
	if !s.asyncAudit {
		if err := s.deliverAudit(ctx, record); err != nil {
			s.logAuditFailure(ctx, record, err)
		}
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if err := s.deliverAudit(ctx, record); err != nil {
			s.logAuditFailure(ctx, record, err)
		}
		return
	}
	s.pending.Add(1)
	s.mu.Unlock()

	// The request context may end before delivery completes.
	detached := context.WithoutCancel(ctx)
	go func() {
		defer s.pending.Done()
		if err := s.deliverAudit(detached, record); err != nil {
			s.logAuditFailure(detached, record, err)
		}
	}()
}

func (s *service) deliverAudit(ctx context.Context, record AuditRecord) error {
	backoff := retry.WithMaxRetries(s.auditRetries, retry.NewExponential(s.auditBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.auditSink.RecordAudit(ctx, record); err != nil {
			return retry.RetryableError(fmt.Errorf("record audit: %w", err))
		}
		return nil
	})
}

func (s *service) logAuditFailure(ctx context.Context, record AuditRecord, err error) {
	s.logger.ErrorContext(ctx, "failed to deliver audit record",
		"event", record.Event,
		"post_id", record.PostID.String(),
		"error", err)
}

// ReconcileSilentEdits resets every post whose silent edit flag survived its
// write and emits the audit record that was withheld for it.
func (s *service) ReconcileSilentEdits(ctx context.Context) (int, error) {
	posts, err := s.repository.ListPendingSilentEdits(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending silent edits: %w", err)
	}

	reconciled := 0
	var firstErr error
	for _, p := range posts {
		if err := s.repository.ClearSilentEdit(ctx, p.ID); err != nil {
			s.logger.WarnContext(ctx, "reconciliation could not reset silent edit flag",
				"post_id", p.ID.String(), "error", err)
			if firstErr == nil {
				firstErr = &PostError{PostID: p.ID, Op: "reconcile", Err: persistenceError(err)}
			}
			continue
		}
		s.emitAudit(ctx, AuditRecord{
			Event:      AuditEventSilentEdit,
			Timestamp:  s.now(),
			PostID:     p.ID,
			Reconciled: true,
		})
		reconciled++
	}

	if reconciled > 0 {
		s.logger.InfoContext(ctx, "reconciled silent edits", "count", reconciled)
	}
	return reconciled, firstErr
}

// Close waits for in-flight audit deliveries. Later emissions run
// synchronously.
func (s *service) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.pending.Wait()
	return nil
}
