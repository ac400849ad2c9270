package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"usagelens/internal/db"
)

// DefaultRetentionDays is the retention window applied when the caller
// passes a non-positive value.
const DefaultRetentionDays = 30

// CleanupOldRecords bulk-deletes usage records and custom metrics older
// than retentionDays. API keys may request a shorter window for the usage
// records they ingested; retentionDays is the ceiling any key's setting is
// clamped to. The deletions run concurrently; the call returns once all
// finish. Repeated calls with an unchanged cutoff delete nothing further.
func (s *Service) CleanupOldRecords(ctx context.Context, retentionDays int) error {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	now := time.Now()
	cutoff := now.Add(-time.Duration(retentionDays) * 24 * time.Hour)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("created_at < ?", cutoff).
			Delete(&db.UsageRecord{}).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("created_at < ?", cutoff).
			Delete(&db.CustomMetric{}).Error
	})
	g.Go(func() error {
		return s.cleanupPerKeyOverrides(gctx, now, retentionDays)
	})

	return g.Wait()
}

// cleanupPerKeyOverrides deletes usage records past a key's own retention
// window. Keys whose setting meets or exceeds the global window are already
// covered by the global cutoff.
func (s *Service) cleanupPerKeyOverrides(ctx context.Context, now time.Time, retentionDays int) error {
	var keys []db.APIKey
	err := s.db.WithContext(ctx).
		Where("retention_days > 0 AND retention_days < ?", retentionDays).
		Find(&keys).Error
	if err != nil {
		return err
	}

	for _, key := range keys {
		keyCutoff := now.Add(-time.Duration(key.RetentionDays) * 24 * time.Hour)
		err := s.db.WithContext(ctx).
			Where("api_key_id = ? AND created_at < ?", key.KeyID, keyCutoff).
			Delete(&db.UsageRecord{}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// StartRetentionWorker launches a background goroutine that runs retention
// cleanup once at startup and then once per day.
func (s *Service) StartRetentionWorker(retentionDays int) {
	go func() {
		if err := s.CleanupOldRecords(context.Background(), retentionDays); err != nil {
			s.log.Error("retention cleanup failed (startup)", zap.Error(err))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if err := s.CleanupOldRecords(context.Background(), retentionDays); err != nil {
				s.log.Error("retention cleanup failed", zap.Error(err))
			}
		}
	}()
}
