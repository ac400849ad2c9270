package handlers

import (
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"usagelens/internal/analytics"
	dbpkg "usagelens/internal/db"
)

// UsageAnalyticsHandler serves the aggregate usage view for the
// authenticated key's tenant.
func UsageAnalyticsHandler(svc *analytics.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		key, ok := MustAPIKey(ctx)
		if !ok {
			return
		}
		start, end := parseWindow(ctx)

		result, err := svc.GetUsageAnalytics(ctx, key.TenantID, start, end, companyScope(ctx, key))
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to compute usage analytics")
			return
		}
		jsonResponse(ctx, result)
	}
}

// PerformanceMetricsHandler serves latency percentiles and error totals.
func PerformanceMetricsHandler(svc *analytics.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		key, ok := MustAPIKey(ctx)
		if !ok {
			return
		}
		start, end := parseWindow(ctx)

		result, err := svc.GetPerformanceMetrics(ctx, key.TenantID, start, end, companyScope(ctx, key))
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to compute performance metrics")
			return
		}
		jsonResponse(ctx, result)
	}
}

type recentRequest struct {
	ID                uint    `json:"id"`
	CreatedAt         string  `json:"created_at"` // ISO 8601 UTC
	Method            string  `json:"method"`
	Endpoint          string  `json:"endpoint"`
	StatusCode        int     `json:"status_code"`
	ResponseTimeMs    float64 `json:"response_time_ms"`
	CompanyID         string  `json:"company_id,omitempty"`
	UserID            string  `json:"user_id,omitempty"`
	RequestSizeBytes  int64   `json:"request_size_bytes,omitempty"`
	ResponseSizeBytes int64   `json:"response_size_bytes,omitempty"`
}

// RecentRequests lists the newest raw usage records for the tenant with
// limit/offset pagination.
func RecentRequests(gdb *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		key, ok := MustAPIKey(ctx)
		if !ok {
			return
		}

		limit := 10
		if s := string(ctx.QueryArgs().Peek("limit")); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				if n > 200 {
					n = 200
				}
				limit = n
			}
		}
		offset := 0
		if s := string(ctx.QueryArgs().Peek("offset")); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n >= 0 {
				offset = n
			}
		}

		q := gdb.Model(&dbpkg.UsageRecord{}).Where("tenant_id = ?", key.TenantID)
		if company := companyScope(ctx, key); company != "" {
			q = q.Where("company_id = ?", company)
		}

		var totalCount int64
		if err := q.Count(&totalCount).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to count records")
			return
		}

		var records []dbpkg.UsageRecord
		if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&records).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query recent records")
			return
		}

		rows := make([]recentRequest, 0, len(records))
		for _, r := range records {
			rows = append(rows, recentRequest{
				ID:                r.ID,
				CreatedAt:         r.CreatedAt.UTC().Format(time.RFC3339),
				Method:            r.Method,
				Endpoint:          r.Endpoint,
				StatusCode:        r.StatusCode,
				ResponseTimeMs:    r.ResponseTimeMs,
				CompanyID:         r.CompanyID,
				UserID:            r.UserID,
				RequestSizeBytes:  r.RequestSizeBytes,
				ResponseSizeBytes: r.ResponseSizeBytes,
			})
		}

		hasMore := offset+limit < int(totalCount)
		jsonResponse(ctx, map[string]any{"records": rows, "total": totalCount, "has_more": hasMore})
	}
}
