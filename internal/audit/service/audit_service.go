package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/GoSim-25-26J-441/ea-backend/internal/audit/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/metrics"
)

// Store is the persistence the audit service needs.
type Store interface {
	Insert(ctx context.Context, e *domain.Entry) error
	List(ctx context.Context, f domain.Filter) ([]domain.Entry, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditService records and queries the audit log
type AuditService struct {
	store Store
	now   func() time.Time
}

func NewAuditService(store Store) *AuditService {
	return &AuditService{store: store, now: time.Now}
}

// Record writes an entry. Audit failures are logged and returned so callers
// can decide whether they matter; inventory mutations do not roll back.
func (s *AuditService) Record(ctx context.Context, e domain.Entry) error {
	if err := s.store.Insert(ctx, &e); err != nil {
		slog.ErrorContext(ctx, "audit record failed",
			"action", e.Action, "entity_type", e.EntityType, "entity_id", e.EntityID, "error", err)
		return err
	}
	return nil
}

func (s *AuditService) List(ctx context.Context, f domain.Filter) ([]domain.Entry, error) {
	if f.Limit > 1000 {
		f.Limit = 1000
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.store.List(ctx, f)
}

// Prune removes entries older than retention. A zero retention keeps everything.
func (s *AuditService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	n, err := s.store.PruneBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	metrics.RecordAuditPruned(n)
	slog.InfoContext(ctx, "audit log pruned", "removed", n, "retention", retention.String())
	return n, nil
}
