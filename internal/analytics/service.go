// Package analytics computes request-performance statistics (latency
// percentiles, error rates, endpoint rankings, hourly distributions) over
// the usage record log, and provides the best-effort logger those records
// are appended through.
package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"usagelens/internal/db"
)

// Service is the analytics engine. Each method is a one-shot computation
// over store-provided data; there is no shared mutable state, so independent
// calls are safe to run in parallel.
type Service struct {
	db  *gorm.DB
	log *zap.Logger
	loc *time.Location
}

// NewService returns a Service reading and writing through gdb. loc is the
// zone used for hour-of-day decomposition; nil means UTC.
func NewService(gdb *gorm.DB, log *zap.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		db:  gdb,
		log: log.Named("analytics"),
		loc: loc,
	}
}

// RequestSample carries the measured facts about one completed request,
// plus the optional sub-scope identifiers attached to it. All identifier
// fields are opaque strings owned by the caller.
type RequestSample struct {
	CompanyID string
	UserID    string
	APIKeyID  string

	Endpoint   string
	Method     string
	StatusCode int

	ResponseTimeMs    float64
	RequestSizeBytes  int64
	ResponseSizeBytes int64

	UserAgent string
	IPAddress string
}

// LogUsage appends one usage record for the tenant. Ingestion is
// best-effort: a storage failure is logged and suppressed so that
// observability never becomes a source of request failure. The record's
// timestamp is assigned by the store at insert time.
func (s *Service) LogUsage(ctx context.Context, tenant string, sample RequestSample) {
	rec := db.UsageRecord{
		TenantID:          tenant,
		CompanyID:         sample.CompanyID,
		UserID:            sample.UserID,
		APIKeyID:          sample.APIKeyID,
		Endpoint:          sample.Endpoint,
		Method:            sample.Method,
		StatusCode:        sample.StatusCode,
		ResponseTimeMs:    sample.ResponseTimeMs,
		RequestSizeBytes:  sample.RequestSizeBytes,
		ResponseSizeBytes: sample.ResponseSizeBytes,
		UserAgent:         sample.UserAgent,
		IPAddress:         sample.IPAddress,
	}

	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		s.log.Error("failed to log usage record",
			zap.String("tenant", tenant),
			zap.String("endpoint", sample.Endpoint),
			zap.Error(err))
		return
	}

	observeRequest(tenant, sample)
}

// scoped returns a UsageRecord query restricted to one tenant and an
// inclusive [start, end] window, optionally narrowed to one company. An
// inverted window matches nothing.
func (s *Service) scoped(ctx context.Context, tenant string, start, end time.Time, company string) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&db.UsageRecord{}).
		Where("tenant_id = ?", tenant).
		Where("created_at >= ? AND created_at <= ?", start, end)
	if company != "" {
		q = q.Where("company_id = ?", company)
	}
	return q
}
